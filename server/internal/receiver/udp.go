package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/radartrack/radartrack/pkg/wire"
)

const (
	maxDatagram  = 8192
	readDeadline = 100 * time.Millisecond
)

// UDP reads observation packets from a datagram socket.
type UDP struct {
	sub Submitter
	c   counters
}

// NewUDP returns a UDP receiver submitting to sub.
func NewUDP(sub Submitter) *UDP {
	return &UDP{sub: sub}
}

// Stats returns the receiver's counters.
func (u *UDP) Stats() Stats { return u.c.snapshot() }

// ListenAndServe binds addr and serves until ctx is cancelled.
func (u *UDP) ListenAndServe(ctx context.Context, addr string) error {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("receiver: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("receiver: listen %q: %w", addr, err)
	}
	return u.Serve(ctx, conn)
}

// Serve reads from conn until ctx is cancelled, then closes conn.
func (u *UDP) Serve(ctx context.Context, conn *net.UDPConn) error {
	defer conn.Close()
	slog.Info("receiver: udp listening", "addr", conn.LocalAddr().String())

	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			slog.Info("receiver: udp stopped")
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("receiver: set read deadline: %w", err)
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("receiver: udp read failed", "err", err)
			continue
		}
		u.handle(buf[:n], from)
	}
}

func (u *UDP) handle(data []byte, from *net.UDPAddr) {
	u.c.received.Add(1)

	p, err := wire.Decode(data)
	if err != nil {
		u.c.malformed.Add(1)
		slog.Warn("receiver: malformed datagram", "from", from.String(), "err", err)
		return
	}
	obs, err := p.Observation()
	if err != nil {
		u.c.malformed.Add(1)
		slog.Warn("receiver: invalid observation", "from", from.String(), "target_id", p.TargetID, "err", err)
		return
	}
	if u.sub.Submit(obs) {
		u.c.accepted.Add(1)
	}
}
