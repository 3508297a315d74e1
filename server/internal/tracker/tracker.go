package tracker

import (
	"context"
	"time"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/engine"
	"github.com/radartrack/radartrack/server/internal/health"
	"github.com/radartrack/radartrack/server/internal/ingest"
	"github.com/radartrack/radartrack/server/internal/stats"
	"github.com/radartrack/radartrack/server/internal/store"
)

// Default tuning values.
const (
	DefaultProcessingInterval = engine.DefaultInterval
	DefaultExpiryWindow       = engine.DefaultExpiryWindow
	DefaultMaxBatchPerCycle   = engine.DefaultMaxBatch
	DefaultQueueCapacity      = ingest.DefaultCapacity
	DefaultAdmissionThreshold = 25.0
)

// CycleReport summarises one processing cycle.
type CycleReport = engine.CycleReport

// Config tunes the tracking core. It is the `tracking:` section of the server
// config file.
type Config struct {
	// ProcessingInterval is the tick period of the processing cycle (default 50ms).
	ProcessingInterval time.Duration `yaml:"processing_interval"`

	// ExpiryWindow is the age at which a target is swept (default 30s).
	ExpiryWindow time.Duration `yaml:"expiry_window"`

	// ActiveWindow bounds which targets queries report. Defaults to ExpiryWindow.
	ActiveWindow time.Duration `yaml:"active_window"`

	// AdmissionSignalThreshold is the minimum signal strength admitted (default 25).
	AdmissionSignalThreshold float64 `yaml:"admission_signal_threshold"`

	MaxBatchPerCycle int `yaml:"max_batch_per_cycle"`
	QueueCapacity    int `yaml:"queue_capacity"`

	// ThroughputWindow is the trailing window for the throughput estimate.
	ThroughputWindow time.Duration `yaml:"throughput_window"`

	Health health.Thresholds `yaml:"health"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ProcessingInterval:       DefaultProcessingInterval,
		ExpiryWindow:             DefaultExpiryWindow,
		AdmissionSignalThreshold: DefaultAdmissionThreshold,
		MaxBatchPerCycle:         DefaultMaxBatchPerCycle,
		QueueCapacity:            DefaultQueueCapacity,
		ThroughputWindow:         stats.DefaultThroughputWindow,
		Health:                   health.DefaultThresholds(),
	}
}

// EffectiveActiveWindow returns ActiveWindow, or ExpiryWindow when unset.
func (c Config) EffectiveActiveWindow() time.Duration {
	if c.ActiveWindow > 0 {
		return c.ActiveWindow
	}
	return c.ExpiryWindow
}

// Tracker is the assembled core.
type Tracker struct {
	queue  *ingest.Queue
	store  *store.Store
	engine *engine.Engine
	agg    *stats.Aggregator
	health *health.Reporter
	now    func() time.Time // injectable for deterministic tests
}

// New builds a Tracker from cfg. Extra observers receive every cycle report
// after the statistics aggregator has recorded it.
func New(cfg Config, observers ...func(CycleReport)) *Tracker {
	now := time.Now
	q := ingest.New(cfg.QueueCapacity, cfg.AdmissionSignalThreshold)
	st := store.New(cfg.EffectiveActiveWindow())
	agg := stats.NewAggregator(st, cfg.ThroughputWindow)

	record := func(r CycleReport) {
		agg.RecordCycle(stats.CycleMetrics{
			Processed:   r.Processed,
			Evicted:     r.Evicted,
			Errors:      r.Errors,
			Duration:    r.Duration,
			CompletedAt: r.CompletedAt,
		})
	}
	obs := []engine.Observer{record}
	for _, fn := range observers {
		obs = append(obs, fn)
	}
	eng := engine.New(q, st, engine.Options{
		Interval:     cfg.ProcessingInterval,
		ExpiryWindow: cfg.ExpiryWindow,
		MaxBatch:     cfg.MaxBatchPerCycle,
		Observers:    obs,
	})

	return &Tracker{
		queue:  q,
		store:  st,
		engine: eng,
		agg:    agg,
		health: health.NewReporter(cfg.Health, now()),
		now:    now,
	}
}

// SetClock replaces the clock used by queries and cycle timing.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
	t.store.SetClock(now)
	t.engine.SetClock(now)
}

// Submit offers obs to the ingest queue. It never blocks and reports whether
// the observation was admitted.
func (t *Tracker) Submit(obs types.Observation) bool {
	return t.queue.Submit(obs)
}

// Get returns the current observation for id.
func (t *Tracker) Get(id int) (types.Observation, bool) {
	return t.store.Get(id)
}

// ListActive returns active targets by descending signal strength.
func (t *Tracker) ListActive() []types.Observation {
	return t.store.ListActive()
}

// ListActiveByType returns active targets of one classification.
func (t *Tracker) ListActiveByType(class types.Classification) []types.Observation {
	return t.store.ListActiveByType(class)
}

// Statistics returns derived statistics as of now.
func (t *Tracker) Statistics() stats.Statistics {
	return t.agg.Statistics(t.now())
}

// Health returns the current health report.
func (t *Tracker) Health() health.Report {
	return t.health.Report(health.Sample{
		QueueDepth:  t.queue.Depth(),
		StoreSize:   t.store.Len(),
		CycleErrors: t.agg.CycleErrors(),
		Ingest:      t.queue.Counters(),
	}, t.now())
}

// QueueDepth is the number of observations awaiting the next cycle.
func (t *Tracker) QueueDepth() int { return t.queue.Depth() }

// QueueCapacity is the ingest queue bound.
func (t *Tracker) QueueCapacity() int { return t.queue.Capacity() }

// StoreSize is the number of stored targets, including ones not yet swept.
func (t *Tracker) StoreSize() int { return t.store.Len() }

// CountActiveByType returns active target counts per classification and the
// total.
func (t *Tracker) CountActiveByType() (map[types.Classification]int, int) {
	return t.store.CountActiveByType()
}

// IngestCounters returns the admission counters.
func (t *Tracker) IngestCounters() ingest.Counters { return t.queue.Counters() }

// ActiveWindow is the liveness window used by queries.
func (t *Tracker) ActiveWindow() time.Duration { return t.store.ActiveWindow() }

// Tick runs one processing cycle immediately.
func (t *Tracker) Tick() CycleReport {
	return t.engine.Tick(t.now())
}

// Run drives the processing cycle until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	t.engine.Run(ctx)
}

// Reconfigure applies the runtime-tunable subset of cfg: the admission
// threshold and the health thresholds.
func (t *Tracker) Reconfigure(cfg Config) {
	t.queue.SetThreshold(cfg.AdmissionSignalThreshold)
	t.health.SetThresholds(cfg.Health)
}
