package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heartrelay/heartrelay/server/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay",
	Long: `Start the relay.

Without -c the relay listens on 127.0.0.1:25872 with a 30s staleness window,
the admin listener on 25873 and the gRPC ingress on 25874.

With -c the file is watched: staleness_window and log_level apply live,
everything else needs a restart.

The relay runs until interrupted (Ctrl+C) or it receives SIGTERM. Failing
to bind the relay port is fatal. If the admin or gRPC port is taken, the
error is logged and the relay starts without that listener.

Example:
  heartrelay serve
  heartrelay serve -c /etc/heartrelay/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Server.SlogLevel())
	slog.SetDefault(newLogger(level))

	slog.Info("heartrelay starting",
		"version", version,
		"config", configFile,
		"http_port", cfg.Server.HTTPPort,
		"staleness_window", cfg.Server.StalenessWindow.String(),
	)

	r, err := newRelay(cfg, level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if configFile != "" {
		go func() {
			if err := config.Watch(ctx, configFile, r.reload); err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	if err := r.run(ctx); err != nil {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

// newLogger writes JSON records to stdout at the given level.
func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
