package api

import (
	"fmt"

	"github.com/radartrack/radartrack/server/internal/health"
	"github.com/radartrack/radartrack/server/internal/stats"
)

// DiagnosticHint is one human-readable insight about the tracker's state.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional number associated with the hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from a health report and statistics.
// Hints are ordered critical first, then warnings, then info.
func computeDiagnostics(h health.Report, s stats.Statistics) []DiagnosticHint {
	var critical, warning, info []DiagnosticHint
	th := h.Thresholds

	// Queue pressure.
	if th.MaxQueueDepth > 0 && h.QueueDepth > 0 {
		pct := float64(h.QueueDepth) / float64(th.MaxQueueDepth) * 100
		v := float64(h.QueueDepth)
		switch {
		case h.QueueDepth >= th.MaxQueueDepth:
			critical = append(critical, DiagnosticHint{
				Key:   "queue_backlog",
				Level: "critical",
				Title: "Queue over ceiling",
				Detail: fmt.Sprintf(
					"%d observations are waiting, at or above the ceiling of %d. "+
						"The processing cycle merges a bounded batch per tick, so a sustained "+
						"feed rate above that batch rate will keep the queue growing. "+
						"Raise max_batch_per_cycle or lower the feed rate.",
					h.QueueDepth, th.MaxQueueDepth),
				Value: &v,
			})
		case pct >= 80:
			warning = append(warning, DiagnosticHint{
				Key:   "queue_backlog",
				Level: "warning",
				Title: fmt.Sprintf("Queue at %.0f%%", pct),
				Detail: fmt.Sprintf(
					"%d of %d queued observations allowed before the service reports unhealthy.",
					h.QueueDepth, th.MaxQueueDepth),
				Value: &v,
			})
		}
	}

	// Overflow drops.
	if h.Ingest.QueueFull > 0 {
		v := float64(h.Ingest.QueueFull)
		critical = append(critical, DiagnosticHint{
			Key:   "queue_overflow",
			Level: "critical",
			Title: "Observations dropped",
			Detail: fmt.Sprintf(
				"%d observations were dropped because the ingest queue was full. "+
					"Those reports are lost; the affected targets update again on their next report.",
				h.Ingest.QueueFull),
			Value: &v,
		})
	}

	// Store size.
	switch {
	case th.MaxStoredTargets > 0 && h.StoreSize >= th.MaxStoredTargets:
		v := float64(h.StoreSize)
		critical = append(critical, DiagnosticHint{
			Key:   "store_ceiling",
			Level: "critical",
			Title: "Too many targets",
			Detail: fmt.Sprintf(
				"%d targets are stored, at or above the ceiling of %d. "+
					"Targets leave the store only when they stop reporting for the expiry window.",
				h.StoreSize, th.MaxStoredTargets),
			Value: &v,
		})
	case h.Warning:
		v := float64(h.StoreSize)
		warning = append(warning, DiagnosticHint{
			Key:    "store_watermark",
			Level:  "warning",
			Title:  "Busy airspace",
			Detail: fmt.Sprintf("%d targets stored, above the warning watermark of %d.", h.StoreSize, th.WarnStoredTargets),
			Value:  &v,
		})
	}

	// Cycle failures.
	if s.CycleErrors > 0 {
		v := float64(s.CycleErrors)
		warning = append(warning, DiagnosticHint{
			Key:   "cycle_errors",
			Level: "warning",
			Title: "Cycle failures",
			Detail: fmt.Sprintf(
				"%d item or sweep failures were recovered inside processing cycles. "+
					"Each one is logged with the affected target id.",
				s.CycleErrors),
			Value: &v,
		})
	}

	// Weak signals.
	total := h.Ingest.Accepted + h.Ingest.Dropped()
	if total > 0 && h.Ingest.BelowThreshold > 0 {
		pct := float64(h.Ingest.BelowThreshold) / float64(total) * 100
		if pct >= 25 {
			v := pct
			info = append(info, DiagnosticHint{
				Key:   "weak_signals",
				Level: "info",
				Title: fmt.Sprintf("%.0f%% below threshold", pct),
				Detail: "A large share of reports arrive below the admission signal threshold " +
					"and are ignored. Check the threshold against the stations' typical signal levels.",
				Value: &v,
			})
		}
	}

	// Idle feed.
	if s.ActiveTargets == 0 && s.ThroughputPerSec == 0 {
		info = append(info, DiagnosticHint{
			Key:    "no_traffic",
			Level:  "info",
			Title:  "No traffic",
			Detail: "No observations have been merged recently and no targets are active.",
		})
	}

	hints := append(append(critical, warning...), info...)
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"Tracking %d active targets at %.0f observations per second with no drops from overflow.",
				s.ActiveTargets, s.ThroughputPerSec),
		})
	}
	return hints
}
