package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/radartrack/radartrack/server/internal/health"
	"github.com/radartrack/radartrack/server/internal/stats"
)

// Sample is one observation of the tracker that rules are evaluated against.
type Sample struct {
	Health health.Report
	Stats  stats.Statistics
}

// numericFields maps a condition field to its value in a Sample.
var numericFields = map[string]func(Sample) float64{
	"queue_depth":             func(s Sample) float64 { return float64(s.Health.QueueDepth) },
	"store_size":              func(s Sample) float64 { return float64(s.Health.StoreSize) },
	"active_targets":          func(s Sample) float64 { return float64(s.Stats.ActiveTargets) },
	"processing_latency_ms":   func(s Sample) float64 { return s.Stats.ProcessingLatencyMs },
	"cycle_p95_ms":            func(s Sample) float64 { return s.Stats.CycleP95Ms },
	"throughput_per_sec":      func(s Sample) float64 { return s.Stats.ThroughputPerSec },
	"cycle_errors":            func(s Sample) float64 { return float64(s.Stats.CycleErrors) },
	"dropped_queue_full":      func(s Sample) float64 { return float64(s.Health.Ingest.QueueFull) },
	"dropped_below_threshold": func(s Sample) float64 { return float64(s.Health.Ingest.BelowThreshold) },
	"dropped_malformed":       func(s Sample) float64 { return float64(s.Health.Ingest.Malformed) },
}

// condition is a parsed "field op value" expression.
type condition struct {
	field     string
	op        string
	threshold float64
	status    health.Status // set when field == "status"
}

// parseCondition compiles expr.
func parseCondition(expr string) (condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		if op != "==" && op != "!=" {
			return condition{}, fmt.Errorf("condition %q: status supports == and != only", expr)
		}
		switch st := health.Status(rhs); st {
		case health.StatusHealthy, health.StatusDegraded, health.StatusUnhealthy:
			return condition{field: field, op: op, status: st}, nil
		default:
			return condition{}, fmt.Errorf("condition %q: unknown status %q", expr, rhs)
		}
	}

	if _, ok := numericFields[field]; !ok {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", expr, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: value: %w", expr, err)
	}
	return condition{field: field, op: op, threshold: threshold}, nil
}

// eval returns whether c holds for s and the value that was compared. Status
// conditions report 1 when firing.
func (c condition) eval(s Sample) (bool, float64) {
	if c.field == "status" {
		match := s.Health.Status == c.status
		if c.op == "!=" {
			match = !match
		}
		if match {
			return true, 1
		}
		return false, 0
	}
	v := numericFields[c.field](s)
	return compareFloat(v, c.op, c.threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
