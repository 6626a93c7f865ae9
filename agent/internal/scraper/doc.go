// Package scraper polls sensor bridges for the current heart rate.
//
// Two source types exist: prometheus reads a gauge (default heart_rate_bpm)
// from a text exposition and json reads {"heart_rate": N}. New(config.Source)
// returns the matching Scraper. Scrape never returns an error directly; a
// failed poll is reported through Reading.Err so the caller can log and move on.
//
// Authentication (mTLS, API key, bearer token, basic) is handled by the
// shared authRoundTripper in base.go.
package scraper
