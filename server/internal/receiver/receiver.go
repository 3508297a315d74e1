package receiver

import (
	"sync/atomic"

	"github.com/radartrack/radartrack/pkg/types"
)

// Submitter is the producer side of the tracking core.
type Submitter interface {
	Submit(obs types.Observation) bool
}

// Stats is a point-in-time copy of a receiver's counters.
type Stats struct {
	Received  uint64 `json:"received"`
	Malformed uint64 `json:"malformed"`
	Accepted  uint64 `json:"accepted"`
}

type counters struct {
	received  atomic.Uint64
	malformed atomic.Uint64
	accepted  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:  c.received.Load(),
		Malformed: c.malformed.Load(),
		Accepted:  c.accepted.Load(),
	}
}
