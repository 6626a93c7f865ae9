package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartrelay/heartrelay/server/internal/store"
)

const namespace = "heartrelay"

// Result labels.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFresh    = "fresh"
	ResultAbsent   = "absent"
)

// Collector records relay activity.
type Collector struct {
	reg *prometheus.Registry

	submissions *prometheus.CounterVec
	reads       *prometheus.CounterVec
	connsOpen   prometheus.Gauge
	wsClients   prometheus.Gauge
}

// New creates a Collector whose bpm and freshness gauges are read from st at
// scrape time.
func New(st *store.Store) *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Heart-rate submissions by result (accepted, rejected).",
		}, []string{"result"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heart_reads_total",
			Help:      "GET /api/heart responses by result (fresh, absent).",
		}, []string{"result"}),
		connsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "connections_open",
			Help:      "Relay HTTP connections currently open.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "WebSocket clients currently subscribed to /ws/heart.",
		}),
	}

	bpm := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "heart_rate_bpm",
		Help:      "Latest fresh heart-rate reading, 0 when none.",
	}, func() float64 {
		v, ok := st.Get()
		if !ok {
			return 0
		}
		return float64(v)
	})
	fresh := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reading_fresh",
		Help:      "1 when a reading within the staleness window is available.",
	}, func() float64 {
		if _, ok := st.Get(); ok {
			return 1
		}
		return 0
	})

	c.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.submissions, c.reads, c.connsOpen, c.wsClients, bpm, fresh,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// ObserveSubmission counts one producer submission.
func (c *Collector) ObserveSubmission(accepted bool) {
	if c == nil {
		return
	}
	if accepted {
		c.submissions.WithLabelValues(ResultAccepted).Inc()
		return
	}
	c.submissions.WithLabelValues(ResultRejected).Inc()
}

// ObserveRead counts one /api/heart response.
func (c *Collector) ObserveRead(fresh bool) {
	if c == nil {
		return
	}
	if fresh {
		c.reads.WithLabelValues(ResultFresh).Inc()
		return
	}
	c.reads.WithLabelValues(ResultAbsent).Inc()
}

// ConnOpened and ConnClosed track relay connections.
func (c *Collector) ConnOpened() {
	if c != nil {
		c.connsOpen.Inc()
	}
}

func (c *Collector) ConnClosed() {
	if c != nil {
		c.connsOpen.Dec()
	}
}

// WSClientAdded and WSClientRemoved track WebSocket subscribers.
func (c *Collector) WSClientAdded() {
	if c != nil {
		c.wsClients.Inc()
	}
}

func (c *Collector) WSClientRemoved() {
	if c != nil {
		c.wsClients.Dec()
	}
}
