package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// webhookDeadline bounds one POST, connect through response headers.
const webhookDeadline = 10 * time.Second

// Readings is the tracker state a rule was evaluated against when its alert
// fired or resolved.
type Readings struct {
	Status        string `json:"status"`
	QueueDepth    int    `json:"queue_depth"`
	StoreSize     int    `json:"store_size"`
	ActiveTargets int    `json:"active_targets"`
}

func readingsOf(s Sample) Readings {
	return Readings{
		Status:        string(s.Health.Status),
		QueueDepth:    s.Health.QueueDepth,
		StoreSize:     s.Health.StoreSize,
		ActiveTargets: s.Stats.ActiveTargets,
	}
}

type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// facts lists the rule and tracker values every payload carries, in display
// order.
func facts(a *Alert) []fact {
	r := a.Readings
	return []fact{
		{"rule", a.RuleName},
		{"condition", a.Condition},
		{"value", strconv.FormatFloat(a.Value, 'f', 2, 64)},
		{"status", r.Status},
		{"queue_depth", strconv.Itoa(r.QueueDepth)},
		{"store_size", strconv.Itoa(r.StoreSize)},
		{"active_targets", strconv.Itoa(r.ActiveTargets)},
	}
}

// payload renders a for one webhook kind. The generic http kind gets the
// alert itself, readings included.
func payload(kind string, a *Alert) ([]byte, error) {
	headline := fmt.Sprintf("radartrack %s %s: %s", a.Severity, a.State, a.RuleName)
	switch kind {
	case "slack":
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "*%s*", headline)
		for _, f := range facts(a) {
			fmt.Fprintf(&buf, "\n%s: `%s`", f.Name, f.Value)
		}
		return json.Marshal(map[string]string{"text": buf.String()})
	case "teams":
		return json.Marshal(map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": severityColor(a.Severity, a.State),
			"summary":    headline,
			"sections": []map[string]any{{
				"activityTitle": headline,
				"facts":         facts(a),
			}},
		})
	case "http":
		return json.Marshal(map[string]any{"alert": a})
	}
	return nil, fmt.Errorf("unknown webhook type %q", kind)
}

// deliver posts a to every webhook with a resolvable URL. Failures are logged
// per target.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		body, err := payload(wh.Type, a)
		if err == nil {
			err = e.post(url, body)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func (e *Engine) post(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), webhookDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook answered %d", resp.StatusCode)
	}
	return nil
}

// severityColor picks the Teams card accent. Resolved alerts are green
// regardless of severity.
func severityColor(severity, state string) string {
	if state == "resolved" {
		return "2EB67D"
	}
	if severity == "critical" {
		return "E01E5A"
	}
	return "ECB22E"
}
