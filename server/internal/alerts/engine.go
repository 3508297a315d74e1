package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radartrack/radartrack/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Condition  string     `json:"condition"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
	Readings   Readings   `json:"readings"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against Samples and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates an Engine from the server alert configuration. Every rule
// condition is parsed up front. An Engine with no rules is valid and Evaluate
// becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("alerts: rule with condition %q has no name", r.Condition)
		}
		c, err := parseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	return &Engine{
		rules:    rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{},
		now:      time.Now,
	}, nil
}

// Evaluate tests all configured rules against s.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(s Sample) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, r := range e.rules {
		fires, value := r.cond.eval(s)
		if fires {
			e.fire(r, value, s, now)
		} else {
			e.resolve(r, s, now)
		}
	}
}

func (e *Engine) fire(r rule, value float64, s Sample, now time.Time) {
	e.mu.Lock()
	if _, firing := e.active[r.Name]; firing {
		e.mu.Unlock()
		return
	}
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[r.Name]; ok && now.Sub(last) < cooldown {
		e.mu.Unlock()
		return
	}
	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  r.Name,
		Condition: r.Condition,
		Severity:  sev,
		Value:     value,
		Message:   fmt.Sprintf("[%s] %s fired: %s (value %.2f)", sev, r.Name, r.Condition, value),
		FiredAt:   now,
		State:     "firing",
		Readings:  readingsOf(s),
	}
	e.active[r.Name] = a
	e.lastFire[r.Name] = now
	alertCopy := *a
	e.mu.Unlock()

	slog.Warn("alerts: fired",
		"rule", r.Name,
		"value", value,
		"severity", sev,
	)
	e.dispatch(&alertCopy)
}

func (e *Engine) resolve(r rule, s Sample, now time.Time) {
	e.mu.Lock()
	a, ok := e.active[r.Name]
	if !ok {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = "resolved"
	a.ResolvedAt = &resolved
	a.Readings = readingsOf(s)
	delete(e.active, r.Name)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	e.mu.Unlock()

	slog.Info("alerts: resolved", "rule", r.Name)
	e.dispatch(&alertCopy)
}

func (e *Engine) dispatch(a *Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(a)
	}()
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.wg.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Run samples source every interval and evaluates the rules until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration, source func() Sample) {
	if len(e.rules) == 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Wait()
			return
		case <-t.C:
			e.Evaluate(source())
		}
	}
}
