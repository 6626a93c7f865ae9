package store

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestGet_EmptyStore(t *testing.T) {
	st := New(DefaultWindow)
	if v, ok := st.Get(); ok {
		t.Fatalf("Get on empty store: got (%d, true), want none", v)
	}
}

func TestSetAndGet(t *testing.T) {
	st := New(DefaultWindow)
	if err := st.Set(72); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := st.Get()
	if !ok {
		t.Fatal("Get: expected a value, got none")
	}
	if v != 72 {
		t.Errorf("Get: got %d, want 72", v)
	}
}

func TestSet_Overwrites(t *testing.T) {
	st := New(DefaultWindow)
	st.Set(60) //nolint:errcheck
	st.Set(95) //nolint:errcheck

	v, ok := st.Get()
	if !ok || v != 95 {
		t.Errorf("Get after two Sets: got (%d, %v), want (95, true)", v, ok)
	}
}

func TestSet_AcceptsAnyInteger(t *testing.T) {
	st := New(DefaultWindow)
	for _, v := range []int{0, -5, 100000} {
		if err := st.Set(v); err != nil {
			t.Fatalf("Set(%d): %v", v, err)
		}
		if got, ok := st.Get(); !ok || got != v {
			t.Errorf("Get after Set(%d): got (%d, %v)", v, got, ok)
		}
	}
}

func TestGet_Freshness(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		setAt time.Duration
		getAt time.Duration
		want  bool
	}{
		{"immediately", 0, 0, true},
		{"five seconds", 0, 5 * time.Second, true},
		{"exactly at window", 0, 30 * time.Second, true},
		{"same whole second past window", 0, 30*time.Second + 999*time.Millisecond, true},
		{"next whole second", 0, 31 * time.Second, false},
		{"forty seconds", 0, 40 * time.Second, false},
		// 10.9s -> 40.95s is 30 whole seconds apart (10 -> 40).
		{"sub-second set, age thirty", 10900 * time.Millisecond, 40950 * time.Millisecond, true},
		{"sub-second set, age thirty-one", 10900 * time.Millisecond, 41 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(30 * time.Second)
			st.now = fixedClock(base.Add(tt.setAt))
			st.Set(72) //nolint:errcheck

			st.now = fixedClock(base.Add(tt.getAt))
			v, ok := st.Get()
			if ok != tt.want {
				t.Fatalf("set at %v, get at %v: ok = %v, want %v", tt.setAt, tt.getAt, ok, tt.want)
			}
			if ok && v != 72 {
				t.Errorf("Get: got %d, want 72", v)
			}
		})
	}
}

func TestSet_RefreshesStaleReading(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := New(30 * time.Second)

	st.now = fixedClock(base)
	st.Set(70) //nolint:errcheck

	st.now = fixedClock(base.Add(time.Minute))
	if _, ok := st.Get(); ok {
		t.Fatal("expected stale reading to be hidden")
	}

	st.Set(80) //nolint:errcheck
	if v, ok := st.Get(); !ok || v != 80 {
		t.Errorf("Get after refresh: got (%d, %v), want (80, true)", v, ok)
	}
}

func TestSet_ClockUnavailable_KeepsPrevious(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := New(30 * time.Second)

	st.now = fixedClock(base)
	st.Set(66) //nolint:errcheck

	st.now = fixedClock(time.Unix(-1, 0))
	if err := st.Set(99); !errors.Is(err, ErrClockUnavailable) {
		t.Fatalf("Set with broken clock: got %v, want ErrClockUnavailable", err)
	}

	st.now = fixedClock(base.Add(time.Second))
	if v, ok := st.Get(); !ok || v != 66 {
		t.Errorf("Get: got (%d, %v), want previous value 66", v, ok)
	}
}

func TestGet_ClockUnavailable_ReportsNoData(t *testing.T) {
	st := New(30 * time.Second)
	st.Set(66) //nolint:errcheck

	st.now = fixedClock(time.Unix(-1, 0))
	if _, ok := st.Get(); ok {
		t.Error("Get with broken clock: expected no data")
	}
}

func TestLatest_ReturnsCopy(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := New(30 * time.Second)
	st.now = fixedClock(base)
	st.Set(72) //nolint:errcheck

	r, ok := st.Latest()
	if !ok {
		t.Fatal("Latest: expected reading")
	}
	if !r.ObservedAt.Equal(base) {
		t.Errorf("ObservedAt: got %v, want %v", r.ObservedAt, base)
	}
	r.Value = 1
	if v, _ := st.Get(); v != 72 {
		t.Errorf("mutating copy changed store: got %d, want 72", v)
	}
}

func TestSetWindow(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := New(30 * time.Second)
	st.now = fixedClock(base)
	st.Set(72) //nolint:errcheck

	st.now = fixedClock(base.Add(45 * time.Second))
	if _, ok := st.Get(); ok {
		t.Fatal("expected stale with 30s window")
	}

	st.SetWindow(time.Minute)
	if st.Window() != time.Minute {
		t.Errorf("Window: got %v, want 1m", st.Window())
	}
	if v, ok := st.Get(); !ok || v != 72 {
		t.Errorf("Get with 1m window: got (%d, %v), want (72, true)", v, ok)
	}

	st.SetWindow(0)
	if st.Window() != time.Minute {
		t.Errorf("SetWindow(0) changed window to %v", st.Window())
	}
}

func TestNew_DefaultWindow(t *testing.T) {
	if w := New(0).Window(); w != DefaultWindow {
		t.Errorf("Window: got %v, want %v", w, DefaultWindow)
	}
}

func TestConcurrentSetAndGet_NoTornReads(t *testing.T) {
	st := New(time.Hour)
	var wg sync.WaitGroup

	base := time.Unix(1_700_000_000, 0)
	st.now = fixedClock(base)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			st.Set(n) //nolint:errcheck
		}(i)
	}
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, ok := st.Latest(); ok {
				if r.Value < 0 || r.Value >= 50 {
					t.Errorf("unexpected value %d", r.Value)
				}
				if !r.ObservedAt.Equal(base) {
					t.Errorf("unexpected timestamp %v", r.ObservedAt)
				}
			}
		}()
	}
	wg.Wait()

	if _, ok := st.Get(); !ok {
		t.Error("expected a value after concurrent writers finished")
	}
}

func TestNewWithClock(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := NewWithClock(10*time.Second, fixedClock(base))
	st.Set(50) //nolint:errcheck

	r, ok := st.Latest()
	if !ok || !r.ObservedAt.Equal(base) {
		t.Errorf("Latest: got (%+v, %v), want observed at %v", r, ok, base)
	}
	if NewWithClock(0, nil).now == nil {
		t.Error("nil clock must fall back to time.Now")
	}
}

func TestPut_ReturnsStoredReading(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	st := NewWithClock(30*time.Second, fixedClock(base))

	r, err := st.Put(64)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	latest, ok := st.Latest()
	if !ok || latest != r {
		t.Errorf("Put returned %+v, Latest has (%+v, %v)", r, latest, ok)
	}

	st.now = fixedClock(time.Unix(-1, 0))
	if _, err := st.Put(65); !errors.Is(err, ErrClockUnavailable) {
		t.Errorf("Put with broken clock: got %v, want ErrClockUnavailable", err)
	}
}
