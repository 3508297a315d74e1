package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Validation errors returned by Observation.Validate. Producers reject the
// observation at the boundary; it never reaches the ingest queue.
var (
	ErrMissingID             = errors.New("observation: missing id")
	ErrNegativeVelocity      = errors.New("observation: negative velocity")
	ErrNonFinite             = errors.New("observation: non-finite value")
	ErrUnknownClassification = errors.New("observation: unknown classification")
)

// Observation is one reported state of a target at a point in time.
//
// ObservedAt is supplied by the feed. RecordedAt is stamped by the processing
// cycle when the observation is merged into the target store and is the only
// timestamp used for liveness and expiry.
type Observation struct {
	ID             int
	X              float64 // meters
	Y              float64 // meters
	Velocity       float64 // meters/second
	Heading        float64 // degrees, not necessarily normalized
	Class          Classification
	ObservedAt     time.Time
	SignalStrength float64
	StationID      string

	RecordedAt time.Time
}

// Validate checks the structural constraints a producer must satisfy before
// calling Submit. Signal strength is not checked here; that is an admission
// decision made by the ingest queue.
func (o Observation) Validate() error {
	if o.ID == 0 {
		return ErrMissingID
	}
	for _, v := range [...]struct {
		name string
		val  float64
	}{
		{"x", o.X},
		{"y", o.Y},
		{"velocity", o.Velocity},
		{"heading", o.Heading},
		{"signal_strength", o.SignalStrength},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, v.name)
		}
	}
	if o.Velocity < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeVelocity, o.Velocity)
	}
	if !o.Class.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownClassification, int(o.Class))
	}
	return nil
}

// DistanceFromOrigin is the planar range from (0, 0) in meters.
func (o Observation) DistanceFromOrigin() float64 {
	return math.Hypot(o.X, o.Y)
}

// Age is the time elapsed since the observation was recorded.
func (o Observation) Age(now time.Time) time.Duration {
	return now.Sub(o.RecordedAt)
}

// IsActive reports whether the observation was recorded less than window ago.
func (o Observation) IsActive(now time.Time, window time.Duration) bool {
	return o.Age(now) < window
}

// NormalizeHeading maps any angle in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}
