package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/heartrelay/heartrelay/agent/internal/config"
	"github.com/heartrelay/heartrelay/pkg/types"
)

// maxJSONBody caps how much of a json source response is read.
const maxJSONBody = 64 << 10

type jsonScraper struct {
	src    config.Source
	client *http.Client
}

// Scrape reads {"heart_rate": N} from the source. A null or missing
// heart_rate is an error; the sensor has nothing to report.
func (s *jsonScraper) Scrape(ctx context.Context) *Reading {
	res := newReading(s.src.ID)

	resp, err := get(ctx, s.client, s.src.Endpoint, "application/json")
	if err != nil {
		res.Err = fmt.Errorf("json scrape %q: %w", s.src.ID, err)
		slog.Warn("scraper: json fetch failed", "source", s.src.ID, "err", err)
		return res
	}
	defer resp.Body.Close()

	var sample types.Sample
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(&sample); err != nil {
		res.Err = fmt.Errorf("json scrape %q: decode: %w", s.src.ID, err)
		return res
	}
	if sample.HeartRate == nil {
		res.Err = fmt.Errorf("json scrape %q: %w", s.src.ID, errNoValue)
		return res
	}
	res.Value = float64(*sample.HeartRate)
	return res
}

var errNoValue = errors.New("heart_rate missing")
