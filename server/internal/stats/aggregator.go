package stats

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/radartrack/radartrack/pkg/types"
)

const (
	// DefaultThroughputWindow is the trailing window used for the rate estimate.
	DefaultThroughputWindow = 5 * time.Second

	// durationSamples is how many recent cycle durations feed the p95.
	durationSamples = 128

	// bytesPerTarget is the nominal wire size of one observation, used only
	// for the Mbps estimate.
	bytesPerTarget = 100
)

// CycleMetrics is what the processing cycle reports after each tick.
type CycleMetrics struct {
	Processed   int
	Evicted     int
	Errors      int
	Duration    time.Duration
	CompletedAt time.Time
}

// Counter is the part of the target store the aggregator reads.
type Counter interface {
	CountActiveByType() (map[types.Classification]int, int)
}

// Statistics is the derived view returned to query callers.
type Statistics struct {
	ActiveTargets       int                          `json:"active_targets"`
	TargetsByType       map[types.Classification]int `json:"targets_by_type"`
	ProcessingLatencyMs float64                      `json:"processing_latency_ms"`
	ProcessingTimeMs    float64                      `json:"processing_time_ms"`
	CycleP95Ms          float64                      `json:"cycle_p95_ms"`
	ThroughputPerSec    float64                      `json:"throughput_per_sec"`
	DataThroughputMbps  float64                      `json:"data_throughput_mbps"`
	LastProcessedTime   time.Time                    `json:"last_processed_time"`
	CycleCount          uint64                       `json:"cycle_count"`
	ProcessedTotal      uint64                       `json:"processed_total"`
	EvictedTotal        uint64                       `json:"evicted_total"`
	CycleErrors         uint64                       `json:"cycle_errors"`
}

type sample struct {
	at        time.Time
	processed int
}

// Aggregator accumulates cycle metrics and computes Statistics on demand.
//
// All exported methods are safe for concurrent use.
type Aggregator struct {
	store  Counter
	window time.Duration

	mu             sync.Mutex
	cycles         uint64
	processedTotal uint64
	evictedTotal   uint64
	errors         uint64
	avgMs          float64
	lastMs         float64
	lastCompleted  time.Time
	recent         []sample
	durations      [durationSamples]float64
	durIdx         int
	durLen         int
}

// NewAggregator returns an Aggregator reading target counts from st. A
// non-positive window selects DefaultThroughputWindow.
func NewAggregator(st Counter, window time.Duration) *Aggregator {
	if window <= 0 {
		window = DefaultThroughputWindow
	}
	return &Aggregator{store: st, window: window}
}

// RecordCycle folds one cycle's metrics into the rolling state.
func (a *Aggregator) RecordCycle(m CycleMetrics) {
	ms := float64(m.Duration) / float64(time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cycles++
	a.processedTotal += uint64(m.Processed)
	a.evictedTotal += uint64(m.Evicted)
	a.errors += uint64(m.Errors)
	a.avgMs = (a.avgMs + ms) / 2
	a.lastMs = ms
	a.lastCompleted = m.CompletedAt

	a.durations[a.durIdx] = ms
	a.durIdx = (a.durIdx + 1) % durationSamples
	if a.durLen < durationSamples {
		a.durLen++
	}

	if m.Processed > 0 {
		a.recent = append(a.recent, sample{at: m.CompletedAt, processed: m.Processed})
	}
	a.trim(m.CompletedAt)
}

// trim drops samples older than the window. Caller holds a.mu.
func (a *Aggregator) trim(now time.Time) {
	cutoff := now.Add(-a.window)
	i := 0
	for i < len(a.recent) && !a.recent[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		a.recent = append(a.recent[:0], a.recent[i:]...)
	}
}

// CycleErrors returns the number of cycle-internal failures recorded so far.
func (a *Aggregator) CycleErrors() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errors
}

// Statistics computes the current statistics as of now.
func (a *Aggregator) Statistics(now time.Time) Statistics {
	a.mu.Lock()
	out := Statistics{
		ProcessingLatencyMs: a.avgMs,
		ProcessingTimeMs:    a.lastMs,
		LastProcessedTime:   a.lastCompleted,
		CycleCount:          a.cycles,
		ProcessedTotal:      a.processedTotal,
		EvictedTotal:        a.evictedTotal,
		CycleErrors:         a.errors,
	}
	recent := append([]sample(nil), a.recent...)
	durations := append([]float64(nil), a.durations[:a.durLen]...)
	a.mu.Unlock()

	out.ThroughputPerSec = rate(recent, now, a.window)
	out.DataThroughputMbps = out.ThroughputPerSec * bytesPerTarget * 8 / (1024 * 1024)
	out.CycleP95Ms = p95(durations)
	out.TargetsByType, out.ActiveTargets = a.store.CountActiveByType()
	return out
}

// rate is the number of items merged in (now-window, now] per second.
func rate(recent []sample, now time.Time, window time.Duration) float64 {
	cutoff := now.Add(-window)
	var n int
	for _, s := range recent {
		if s.at.After(cutoff) && !s.at.After(now) {
			n += s.processed
		}
	}
	return float64(n) / window.Seconds()
}

func p95(durations []float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	sort.Float64s(durations)
	return stat.Quantile(0.95, stat.Empirical, durations, nil)
}
