package ingest

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/radartrack/radartrack/pkg/types"
)

// DefaultCapacity is large enough that sustained overflow indicates an
// operational problem rather than a burst.
const DefaultCapacity = 10000

// Counters is a point-in-time copy of the queue's admission counters.
type Counters struct {
	Accepted       uint64 `json:"accepted"`
	BelowThreshold uint64 `json:"below_threshold"`
	QueueFull      uint64 `json:"queue_full"`
	Malformed      uint64 `json:"malformed"`
}

// Dropped is the total of all rejected submissions.
func (c Counters) Dropped() uint64 {
	return c.BelowThreshold + c.QueueFull + c.Malformed
}

// Queue is a bounded multi-producer buffer of pending observations.
type Queue struct {
	buf       chan types.Observation
	threshold atomic.Uint64 // math.Float64bits of the admission threshold

	accepted       atomic.Uint64
	belowThreshold atomic.Uint64
	queueFull      atomic.Uint64
	malformed      atomic.Uint64
}

// New creates a Queue holding at most capacity observations and admitting
// only those with SignalStrength >= threshold.
func New(capacity int, threshold float64) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{buf: make(chan types.Observation, capacity)}
	q.SetThreshold(threshold)
	return q
}

// SetThreshold changes the admission threshold for subsequent submissions.
func (q *Queue) SetThreshold(v float64) {
	q.threshold.Store(math.Float64bits(v))
}

// Threshold returns the current admission threshold.
func (q *Queue) Threshold() float64 {
	return math.Float64frombits(q.threshold.Load())
}

// Submit offers obs for admission and reports whether it was queued.
func (q *Queue) Submit(obs types.Observation) bool {
	if err := obs.Validate(); err != nil {
		q.malformed.Add(1)
		slog.Debug("ingest: malformed observation dropped", "id", obs.ID, "err", err)
		return false
	}
	if obs.SignalStrength < q.Threshold() {
		q.belowThreshold.Add(1)
		slog.Debug("ingest: below admission threshold",
			"id", obs.ID, "signal", obs.SignalStrength, "threshold", q.Threshold())
		return false
	}
	select {
	case q.buf <- obs:
		q.accepted.Add(1)
		return true
	default:
		q.queueFull.Add(1)
		return false
	}
}

// Drain removes and returns up to max queued observations without blocking.
func (q *Queue) Drain(max int) []types.Observation {
	if max <= 0 {
		return nil
	}
	n := len(q.buf)
	if n > max {
		n = max
	}
	out := make([]types.Observation, 0, n)
	for len(out) < max {
		select {
		case obs := <-q.buf:
			out = append(out, obs)
		default:
			return out
		}
	}
	return out
}

// Depth is the number of observations currently waiting.
func (q *Queue) Depth() int { return len(q.buf) }

// Capacity is the maximum number of observations the queue can hold.
func (q *Queue) Capacity() int { return cap(q.buf) }

// Counters returns a copy of the admission counters.
func (q *Queue) Counters() Counters {
	return Counters{
		Accepted:       q.accepted.Load(),
		BelowThreshold: q.belowThreshold.Load(),
		QueueFull:      q.queueFull.Load(),
		Malformed:      q.malformed.Load(),
	}
}
