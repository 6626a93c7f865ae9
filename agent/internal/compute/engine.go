package compute

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/heartrelay/heartrelay/agent/internal/config"
	"github.com/heartrelay/heartrelay/agent/internal/scraper"
)

// Result is a reading that passed the filter, ready for the shipper.
type Result struct {
	SourceID string
	BPM      int
	At       time.Time
}

// Engine turns raw scraper readings into forwardable bpm values and tracks
// per-source failure streaks for logging.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	filter config.FilterConfig
	states map[string]*sourceState
}

type sourceState struct {
	failures int
}

// NewEngine returns an Engine applying filter.
func NewEngine(filter config.FilterConfig) *Engine {
	return &Engine{filter: filter, states: make(map[string]*sourceState)}
}

// SetFilter replaces the bounds used by later Process calls.
func (e *Engine) SetFilter(filter config.FilterConfig) {
	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()
}

// Process returns the Result for r, or nil when r failed or its rounded
// value is outside the filter. Values at or below zero are always dropped.
//
// now is passed explicitly so tests control the clock.
func (e *Engine) Process(r *scraper.Reading, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(r.SourceID)
	if r.Err != nil {
		st.failures++
		if st.failures == 1 {
			slog.Warn("compute: source failing", "source", r.SourceID, "err", r.Err)
		}
		return nil
	}
	if st.failures > 0 {
		slog.Info("compute: source recovered", "source", r.SourceID, "failed_scrapes", st.failures)
		st.failures = 0
	}

	bpm, ok := e.accept(r.Value)
	if !ok {
		slog.Debug("compute: reading filtered", "source", r.SourceID, "value", r.Value)
		return nil
	}
	return &Result{SourceID: r.SourceID, BPM: bpm, At: now}
}

// Failures returns the current failure streak for source.
func (e *Engine) Failures(source string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[source]; ok {
		return st.failures
	}
	return 0
}

func (e *Engine) accept(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	rounded := math.Round(v)
	if rounded <= 0 || rounded > math.MaxInt32 {
		return 0, false
	}
	bpm := int(rounded)
	if bpm < e.filter.Min {
		return 0, false
	}
	if e.filter.Max > 0 && bpm > e.filter.Max {
		return 0, false
	}
	return bpm, true
}

func (e *Engine) stateFor(id string) *sourceState {
	st, ok := e.states[id]
	if !ok {
		st = &sourceState{}
		e.states[id] = st
	}
	return st
}
