package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notification is the body posted to "http" webhooks for every fire and
// resolve event.
type Notification struct {
	Event      string     `json:"event"` // always "heart_rate_alert"
	AlertID    string     `json:"alert_id"`
	Rule       string     `json:"rule"`
	Condition  string     `json:"condition"`
	Severity   string     `json:"severity"`
	State      string     `json:"state"`
	Resolved   bool       `json:"resolved"`
	BPM        int        `json:"bpm"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Summary    string     `json:"summary"`
}

func notificationFor(a *Alert) Notification {
	return Notification{
		Event:      "heart_rate_alert",
		AlertID:    a.ID,
		Rule:       a.RuleName,
		Condition:  a.Condition,
		Severity:   a.Severity,
		State:      a.State,
		Resolved:   a.State == StateResolved,
		BPM:        a.Value,
		FiredAt:    a.FiredAt,
		ResolvedAt: a.ResolvedAt,
		Summary:    summary(a),
	}
}

// summary is the one-line human form used by the chat integrations.
func summary(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("%s resolved: heart rate back to %d bpm", a.RuleName, a.Value)
	}
	return fmt.Sprintf("%s: heart rate %d bpm (%s)", a.RuleName, a.Value, a.Condition)
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color    string       `json:"color"`
	Fallback string       `json:"fallback"`
	Fields   []slackField `json:"fields"`
	Ts       int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func slackPayload(a *Alert) slackMessage {
	n := notificationFor(a)
	at := n.FiredAt
	if n.ResolvedAt != nil {
		at = *n.ResolvedAt
	}
	return slackMessage{
		Text: fmt.Sprintf("*%s* %s", stateLabel(a), n.Summary),
		Attachments: []slackAttachment{{
			Color:    "#" + stateColor(a),
			Fallback: n.Summary,
			Fields: []slackField{
				{Title: "Heart rate", Value: fmt.Sprintf("%d bpm", n.BPM), Short: true},
				{Title: "State", Value: n.State, Short: true},
				{Title: "Rule", Value: n.Condition, Short: true},
				{Title: "Severity", Value: n.Severity, Short: true},
			},
			Ts: at.Unix(),
		}},
	}
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle string      `json:"activityTitle"`
	Facts         []teamsFact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Sections   []teamsSection `json:"sections"`
}

func teamsPayload(a *Alert) teamsCard {
	n := notificationFor(a)
	facts := []teamsFact{
		{Name: "Heart rate", Value: fmt.Sprintf("%d bpm", n.BPM)},
		{Name: "State", Value: n.State},
		{Name: "Condition", Value: n.Condition},
		{Name: "Severity", Value: n.Severity},
		{Name: "Fired at", Value: n.FiredAt.UTC().Format(time.RFC3339)},
	}
	if n.ResolvedAt != nil {
		facts = append(facts, teamsFact{Name: "Resolved at", Value: n.ResolvedAt.UTC().Format(time.RFC3339)})
	}
	return teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: stateColor(a),
		Summary:    n.Summary,
		Title:      fmt.Sprintf("%s %s", stateLabel(a), n.Rule),
		Sections:   []teamsSection{{ActivityTitle: n.Summary, Facts: facts}},
	}
}

// deliverWebhooks posts a to every configured target. Failures are logged.
func (e *Engine) deliverWebhooks(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var payload any
		switch wh.Type {
		case "slack":
			payload = slackPayload(a)
		case "teams":
			payload = teamsPayload(a)
		case "http":
			payload = notificationFor(a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, payload); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "bpm", a.Value, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func (e *Engine) post(url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func stateLabel(a *Alert) string {
	if a.State == StateResolved {
		return "[RESOLVED]"
	}
	switch a.Severity {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

// stateColor is green once resolved, otherwise keyed by severity.
func stateColor(a *Alert) string {
	if a.State == StateResolved {
		return "2EB67D"
	}
	switch a.Severity {
	case "critical":
		return "E01E5A"
	case "warning":
		return "ECB22E"
	default:
		return "36C5F0"
	}
}
