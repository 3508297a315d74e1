package shipper

import (
	"context"
	"math/rand"
	"time"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/pkg/wire"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
)

// Sender delivers observations to the server.
type Sender interface {
	Ship(ctx context.Context, obs []types.Observation) error
	Stats() Stats
}

// Stats counts packets by outcome since the sender was created.
type Stats struct {
	Sent    uint64 `json:"sent"`
	Failed  uint64 `json:"failed"`
	Evicted uint64 `json:"evicted"`
}

// toPackets converts obs for the wire, filling in stationID where an
// observation carries none.
func toPackets(obs []types.Observation, stationID string) []wire.Packet {
	out := make([]wire.Packet, len(obs))
	for i, o := range obs {
		out[i] = wire.FromObservation(o)
		if out[i].RadarStationID == "" {
			out[i].RadarStationID = stationID
		}
	}
	return out
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	d += time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
