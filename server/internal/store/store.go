package store

import (
	"errors"
	"sync"
	"time"
)

// DefaultWindow is how long a reading stays fresh after it was set.
const DefaultWindow = 30 * time.Second

// ErrClockUnavailable is returned by Set when the wall clock cannot be read
// as a time after the Unix epoch. The previous reading is kept.
var ErrClockUnavailable = errors.New("clock unavailable")

var unixEpoch = time.Unix(0, 0)

// Reading is a heart-rate value together with the time the store accepted it.
type Reading struct {
	Value      int
	ObservedAt time.Time
}

// Store is a thread-safe single-slot reading store with a staleness window.
type Store struct {
	mu      sync.Mutex
	reading *Reading
	window  time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates an empty Store. A non-positive window selects DefaultWindow.
func New(window time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window: window,
		now:    time.Now,
	}
}

// NewWithClock is New with an explicit clock, for callers that replay or
// simulate time.
func NewWithClock(window time.Duration, now func() time.Time) *Store {
	s := New(window)
	if now != nil {
		s.now = now
	}
	return s
}

// Set stamps value with the current time and replaces any existing reading.
// Every call overwrites; there is no ordering, deduplication or range check.
func (s *Store) Set(value int) error {
	_, err := s.Put(value)
	return err
}

// Put is Set that also returns the reading as stored, so callers can act on
// the same timestamp readers will see.
func (s *Store) Put(value int) (Reading, error) {
	t := s.now()
	if t.Before(unixEpoch) {
		return Reading{}, ErrClockUnavailable
	}

	r := Reading{Value: value, ObservedAt: t}
	s.mu.Lock()
	s.reading = &r
	s.mu.Unlock()
	return r, nil
}

// Get returns the current value if a reading exists and is no older than the
// window. It never mutates the store.
func (s *Store) Get() (int, bool) {
	r, ok := s.Latest()
	return r.Value, ok
}

// Latest returns a copy of the fresh reading, or false when there is none.
// Age is measured in whole Unix seconds: a reading is fresh while
// now.Unix() - observed.Unix() does not exceed the window's whole seconds.
func (s *Store) Latest() (Reading, bool) {
	now := s.now()
	if now.Before(unixEpoch) {
		return Reading{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reading == nil || now.Unix()-s.reading.ObservedAt.Unix() > int64(s.window/time.Second) {
		return Reading{}, false
	}
	return *s.reading, true
}

// Window returns the current staleness window.
func (s *Store) Window() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// SetWindow changes the staleness window. Non-positive values are ignored.
// The stored reading is untouched; only future reads use the new window.
func (s *Store) SetWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.window = d
	s.mu.Unlock()
}
