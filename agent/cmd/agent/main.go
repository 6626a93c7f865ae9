package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heartrelay/heartrelay/agent/internal/compute"
	"github.com/heartrelay/heartrelay/agent/internal/config"
	"github.com/heartrelay/heartrelay/agent/internal/scraper"
	"github.com/heartrelay/heartrelay/agent/internal/shipper"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to config file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("heartrelay-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"sources", len(cfg.Agent.Sources),
		"scrape_interval", cfg.Agent.ScrapeInterval,
		"filter_min", cfg.Agent.Filter.Min,
		"filter_max", cfg.Agent.Filter.Max,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	type source struct {
		id string
		s  scraper.Scraper
	}
	var sources []source
	for _, src := range cfg.Agent.Sources {
		s, err := scraper.New(src)
		if err != nil {
			slog.Error("skipping source, could not build scraper", "source", src.ID, "err", err)
			continue
		}
		sources = append(sources, source{id: src.ID, s: s})
		slog.Info("registered source", "id", src.ID, "type", src.Type, "endpoint", src.Endpoint)
	}
	if len(sources) == 0 {
		slog.Warn("no sources configured, agent will idle")
	}

	engine := compute.NewEngine(cfg.Agent.Filter)

	// Only the filter bounds apply live; sources and endpoint need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			engine.SetFilter(updated.Agent.Filter)
			slog.Info("filter updated", "min", updated.Agent.Filter.Min, "max", updated.Agent.Filter.Max)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Agent.ScrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				for _, src := range sources {
					if res := engine.Process(src.s.Scrape(ctx), t); res != nil {
						ship.Ship(res)
						slog.Debug("reading queued", "source", src.id, "bpm", res.BPM)
					}
				}
			}
		}
	}()

	<-ctx.Done()
	slog.Info("heartrelay-agent shutting down")
}
