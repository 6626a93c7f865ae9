// Package main is the entry point for the heartrelay CLI.
//
// Usage:
//
//	heartrelay serve                  # Start the relay with built-in defaults
//	heartrelay serve -c config.yaml   # Start the relay from a config file
//	heartrelay validate -c config.yaml
//	heartrelay submit 72              # Push one reading over gRPC
//	heartrelay version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "heartrelay",
	Short: "Relay the latest heart-rate reading to browser overlays",
	Long: `heartrelay keeps the most recent heart-rate reading in memory and serves it
to browser sources over HTTP.

  GET /            polling HTML page
  GET /api/heart   {"heart_beat": 72} or {"heart_beat": null}

A reading older than the staleness window (30s by default) is reported as
null. Producers push readings over gRPC (heartrelay submit, heartrelay-agent)
or an optional Redis channel.

Quick start:
  heartrelay serve
  heartrelay submit 72
  curl http://127.0.0.1:25872/api/heart`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error.
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heartrelay %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
