package receiver

import (
	"github.com/heartrelay/heartrelay/server/internal/alerts"
	"github.com/heartrelay/heartrelay/server/internal/metrics"
	"github.com/heartrelay/heartrelay/server/internal/store"
)

// Ingress accepts producer readings.
type Ingress struct {
	store   *store.Store
	alerts  *alerts.Engine
	metrics *metrics.Collector
}

// NewIngress creates an Ingress writing to st. eng and m may be nil.
func NewIngress(st *store.Store, eng *alerts.Engine, m *metrics.Collector) *Ingress {
	return &Ingress{store: st, alerts: eng, metrics: m}
}

// Submit stores value as the current reading. It returns
// store.ErrClockUnavailable ("clock unavailable") when the reading could not
// be timestamped.
func (i *Ingress) Submit(value int) error {
	r, err := i.store.Put(value)
	if err != nil {
		i.metrics.ObserveSubmission(false)
		return err
	}
	i.metrics.ObserveSubmission(true)
	i.alerts.Evaluate(r.Value, r.ObservedAt)
	return nil
}
