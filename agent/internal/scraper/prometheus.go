package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heartrelay/heartrelay/agent/internal/config"
)

type promScraper struct {
	src    config.Source
	client *http.Client
}

// Scrape reads src.Metric from a Prometheus text exposition. When the
// family has several series the first one wins.
func (s *promScraper) Scrape(ctx context.Context) *Reading {
	res := newReading(s.src.ID)

	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		res.Err = fmt.Errorf("prometheus scrape %q: %w", s.src.ID, err)
		slog.Warn("scraper: prometheus fetch failed", "source", s.src.ID, "err", err)
		return res
	}

	v, ok := firstValue(mfs[s.src.Metric])
	if !ok {
		res.Err = fmt.Errorf("prometheus scrape %q: metric %q not found", s.src.ID, s.src.Metric)
		return res
	}
	res.Value = v
	return res
}
