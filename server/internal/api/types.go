package api

import (
	"time"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/health"
	"github.com/radartrack/radartrack/server/internal/stats"
)

// TargetResponse is one target in the targets endpoints.
type TargetResponse struct {
	ID                 int                  `json:"id"`
	X                  float64              `json:"x"`
	Y                  float64              `json:"y"`
	Velocity           float64              `json:"velocity"`
	Heading            float64              `json:"heading"`
	Type               types.Classification `json:"type"`
	SignalStrength     float64              `json:"signal_strength"`
	StationID          string               `json:"station_id,omitempty"`
	ObservedAt         time.Time            `json:"observed_at"`
	RecordedAt         time.Time            `json:"recorded_at"`
	AgeSeconds         float64              `json:"age_seconds"`
	DistanceFromOrigin float64              `json:"distance_from_origin"`
	IsActive           bool                 `json:"is_active"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	health.Report
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Targets     []TargetResponse `json:"targets"`
	Statistics  stats.Statistics `json:"statistics"`
	Health      HealthResponse   `json:"health"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

func toTargetResponse(o types.Observation, now time.Time, window time.Duration) TargetResponse {
	return TargetResponse{
		ID:                 o.ID,
		X:                  o.X,
		Y:                  o.Y,
		Velocity:           o.Velocity,
		Heading:            o.Heading,
		Type:               o.Class,
		SignalStrength:     o.SignalStrength,
		StationID:          o.StationID,
		ObservedAt:         o.ObservedAt,
		RecordedAt:         o.RecordedAt,
		AgeSeconds:         o.Age(now).Seconds(),
		DistanceFromOrigin: o.DistanceFromOrigin(),
		IsActive:           o.IsActive(now, window),
	}
}

func toTargetResponses(list []types.Observation, now time.Time, window time.Duration) []TargetResponse {
	out := make([]TargetResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toTargetResponse(o, now, window))
	}
	return out
}
