package alerts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/heartrelay/heartrelay/server/internal/config"
)

const defaultCooldown = 5 * time.Minute

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one fire or resolve event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      int        `json:"value"` // bpm that fired or, once resolved, cleared the rule
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond config.Condition
}

// Engine evaluates alert rules against accepted readings.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // for cooldown
	client   *http.Client
	deliver  func(*Alert) // injectable for tests
}

// New creates an Engine from the alert configuration. Rules whose condition
// does not parse are skipped with a warning; config.Load already rejects them.
// An Engine with no rules is valid and Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, r := range cfg.Rules {
		cond, err := config.ParseCondition(r.Condition)
		if err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		e.rules = append(e.rules, rule{AlertRule: r, cond: cond})
	}
	e.deliver = e.deliverWebhooks
	return e
}

// Evaluate tests every rule against value observed at now. Firing and
// resolving alerts are delivered asynchronously.
func (e *Engine) Evaluate(value int, now time.Time) {
	if e == nil || len(e.rules) == 0 {
		return
	}

	var events []*Alert
	e.mu.Lock()
	for _, r := range e.rules {
		if r.cond.Match(float64(value)) {
			if a := e.fire(r, value, now); a != nil {
				events = append(events, a)
			}
			continue
		}
		if a := e.resolve(r, value, now); a != nil {
			events = append(events, a)
		}
	}
	e.mu.Unlock()

	for _, a := range events {
		if a.State == StateFiring {
			slog.Warn("alert fired", "rule", a.RuleName, "value", a.Value, "severity", a.Severity)
		} else {
			slog.Info("alert resolved", "rule", a.RuleName, "value", a.Value)
		}
		go e.deliver(a)
	}
}

// fire records a firing alert for r unless it is already firing or cooling
// down. Returns a copy for delivery, or nil. Must hold e.mu.
func (e *Engine) fire(r rule, value int, now time.Time) *Alert {
	if _, firing := e.active[r.Name]; firing {
		return nil
	}
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[r.Name]; ok && now.Sub(last) < cooldown {
		return nil
	}

	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        fmt.Sprintf("%s:%d", r.Name, now.UnixNano()),
		RuleName:  r.Name,
		Severity:  sev,
		Condition: r.Condition,
		Value:     value,
		Message:   fmt.Sprintf("%s: heart rate %d bpm matches %s", r.Name, value, r.Condition),
		FiredAt:   now,
		State:     StateFiring,
	}
	e.active[r.Name] = a
	e.lastFire[r.Name] = now
	cp := *a
	return &cp
}

// resolve clears a firing alert for r; value is the reading that no longer
// matches. Must hold e.mu.
func (e *Engine) resolve(r rule, value int, now time.Time) *Alert {
	a, ok := e.active[r.Name]
	if !ok {
		return nil
	}
	delete(e.active, r.Name)

	resolved := now
	cp := *a
	cp.State = StateResolved
	cp.Value = value
	cp.ResolvedAt = &resolved
	return &cp
}

// Active returns copies of all currently firing alerts, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// ServeHTTP lists the firing alerts as JSON. Mounted at /alerts on the admin
// listener.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e.Active()) //nolint:errcheck
}
