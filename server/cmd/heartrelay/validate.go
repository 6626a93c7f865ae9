package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartrelay/heartrelay/server/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a heartrelay configuration file without starting the relay.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  heartrelay validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s := cfg.Server

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Relay:            %s:%d\n", s.ListenHost, s.HTTPPort)
	fmt.Printf("  Staleness window: %s\n", s.StalenessWindow)
	fmt.Printf("  Admin:            %s\n", onOff(s.Admin.Enabled, s.Admin.Port))
	fmt.Printf("  gRPC ingress:     %s\n", onOff(s.Ingress.GRPC.Enabled, s.Ingress.GRPC.Port))
	if s.Ingress.Redis.Enabled {
		fmt.Printf("  Redis ingress:    %s (%s)\n", s.Ingress.Redis.Addr, s.Ingress.Redis.Channel)
	} else {
		fmt.Printf("  Redis ingress:    disabled\n")
	}
	fmt.Printf("  Alert rules:      %d\n", len(s.Alerts.Rules))

	return nil
}

func onOff(enabled bool, port int) string {
	if !enabled {
		return "disabled"
	}
	return fmt.Sprintf("port %d", port)
}
