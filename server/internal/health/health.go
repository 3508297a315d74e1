package health

import (
	"sync/atomic"
	"time"

	"github.com/radartrack/radartrack/server/internal/ingest"
)

// Status is the coarse health classification.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Thresholds are the ceilings and watermark the report is evaluated against.
type Thresholds struct {
	MaxStoredTargets  int `yaml:"max_stored_targets"  json:"max_stored_targets"`
	MaxQueueDepth     int `yaml:"max_queue_depth"     json:"max_queue_depth"`
	WarnStoredTargets int `yaml:"warn_stored_targets" json:"warn_stored_targets"`
}

// DefaultThresholds returns the stock ceilings: 1000 targets, 500 queued,
// warning above 500 targets.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxStoredTargets: 1000, MaxQueueDepth: 500, WarnStoredTargets: 500}
}

// Sample is the raw input to Evaluate.
type Sample struct {
	QueueDepth  int
	StoreSize   int
	CycleErrors uint64
	Ingest      ingest.Counters
}

// Report is the health view returned to callers.
type Report struct {
	IsHealthy     bool            `json:"is_healthy"`
	Status        Status          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
	QueueDepth    int             `json:"queue_depth"`
	StoreSize     int             `json:"store_size"`
	Warning       bool            `json:"warning"`
	WarningCount  int             `json:"warning_count"`
	ErrorCount    uint64          `json:"error_count"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Ingest        ingest.Counters `json:"ingest"`
	Thresholds    Thresholds      `json:"thresholds"`
}

// Evaluate applies th to s. It has no side effects.
func Evaluate(s Sample, th Thresholds) Report {
	r := Report{
		QueueDepth: s.QueueDepth,
		StoreSize:  s.StoreSize,
		ErrorCount: s.CycleErrors,
		Ingest:     s.Ingest,
		Thresholds: th,
		IsHealthy:  s.StoreSize < th.MaxStoredTargets && s.QueueDepth < th.MaxQueueDepth,
		Warning:    s.StoreSize > th.WarnStoredTargets,
	}
	if r.Warning {
		r.WarningCount = 1
	}
	switch {
	case !r.IsHealthy:
		r.Status = StatusUnhealthy
	case r.Warning:
		r.Status = StatusDegraded
	default:
		r.Status = StatusHealthy
	}
	return r
}

// Reporter stamps Evaluate results with time and uptime.
type Reporter struct {
	started    time.Time
	thresholds atomic.Pointer[Thresholds]
}

// NewReporter returns a Reporter whose uptime counts from started.
func NewReporter(th Thresholds, started time.Time) *Reporter {
	r := &Reporter{started: started}
	r.SetThresholds(th)
	return r
}

// SetThresholds replaces the thresholds used by subsequent reports.
func (r *Reporter) SetThresholds(th Thresholds) {
	r.thresholds.Store(&th)
}

// Thresholds returns the thresholds currently in effect.
func (r *Reporter) Thresholds() Thresholds {
	return *r.thresholds.Load()
}

// Report evaluates s as of now.
func (r *Reporter) Report(s Sample, now time.Time) Report {
	rep := Evaluate(s, r.Thresholds())
	rep.Timestamp = now
	rep.UptimeSeconds = now.Sub(r.started).Seconds()
	return rep
}
