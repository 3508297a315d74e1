package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/pkg/wire"
)

// UDP sends one datagram per observation.
type UDP struct {
	conn      net.Conn
	limiter   *rate.Limiter
	stationID string

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewUDP connects a datagram socket to endpoint. perSecond caps the send
// rate; 0 disables pacing.
func NewUDP(endpoint, stationID string, perSecond float64) (*UDP, error) {
	conn, err := net.Dial("udp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("shipper: udp dial %q: %w", endpoint, err)
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &UDP{
		conn:      conn,
		limiter:   rate.NewLimiter(limit, 1),
		stationID: stationID,
	}, nil
}

// Ship writes each observation as its own datagram. Write failures are
// counted and logged; only cancellation aborts the batch.
func (u *UDP) Ship(ctx context.Context, obs []types.Observation) error {
	for _, p := range toPackets(obs, u.stationID) {
		if err := u.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("shipper: udp: %w", err)
		}
		b, err := wire.Encode(p)
		if err != nil {
			u.failed.Add(1)
			slog.Warn("shipper: udp encode failed", "target_id", p.TargetID, "err", err)
			continue
		}
		if _, err := u.conn.Write(b); err != nil {
			u.failed.Add(1)
			slog.Warn("shipper: udp send failed", "target_id", p.TargetID, "err", err)
			continue
		}
		u.sent.Add(1)
	}
	return nil
}

// Stats returns delivery counters.
func (u *UDP) Stats() Stats {
	return Stats{Sent: u.sent.Load(), Failed: u.failed.Load()}
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
