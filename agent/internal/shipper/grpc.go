package shipper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/pkg/wire"
)

const (
	sendTimeout = 10 * time.Second

	breakerTrips   = 3
	breakerTimeout = 5 * time.Second
)

// GRPCOptions configures a GRPC sender.
type GRPCOptions struct {
	Endpoint   string
	StationID  string
	BufferSize int
	BatchSize  int
}

// GRPC buffers packets and ships them to the server in batches.
// Ship is non-blocking; when the buffer is full the oldest packet is evicted.
// Run must be called in a goroutine to drain the buffer and handle reconnection.
type GRPC struct {
	opts    GRPCOptions
	buf     chan wire.Packet
	breaker *gobreaker.CircuitBreaker
	dialFn  dialFunc // injectable for tests

	sent    atomic.Uint64
	failed  atomic.Uint64
	evicted atomic.Uint64
}

// dialFunc opens a gRPC connection. Tests swap it for a local listener.
type dialFunc func(ctx context.Context, endpoint string) (*grpc.ClientConn, error)

// NewGRPC creates a GRPC sender. Non-positive sizes fall back to 1.
func NewGRPC(opts GRPCOptions) *GRPC {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &GRPC{
		opts:    opts,
		buf:     make(chan wire.Packet, opts.BufferSize),
		breaker: newBreaker(opts.Endpoint),
		dialFn:  defaultDial,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "shipper:" + name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanentError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("shipper: circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Ship enqueues obs for delivery by Run. It never blocks and never fails.
func (s *GRPC) Ship(_ context.Context, obs []types.Observation) error {
	for _, p := range toPackets(obs, s.opts.StationID) {
		s.enqueue(p)
	}
	return nil
}

func (s *GRPC) enqueue(p wire.Packet) {
	for {
		select {
		case s.buf <- p:
			return
		default:
		}
		select {
		case <-s.buf:
			s.evicted.Add(1)
		default:
		}
	}
}

// Stats returns delivery counters.
func (s *GRPC) Stats() Stats {
	return Stats{Sent: s.sent.Load(), Failed: s.failed.Load(), Evicted: s.evicted.Load()}
}

// Pending returns the number of buffered packets.
func (s *GRPC) Pending() int {
	return len(s.buf)
}

// Run drains the buffer, sending batches to the server.
// It reconnects with exponential backoff when the connection is lost.
// Run blocks until ctx is cancelled.
func (s *GRPC) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.opts.Endpoint)
		if err != nil {
			wait := bo.next()
			slog.Error("shipper: dial failed, will retry",
				"endpoint", s.opts.Endpoint,
				"err", err,
				"retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("shipper: connected", "endpoint", s.opts.Endpoint)

		err = s.drain(ctx, wire.NewObservationServiceClient(conn), bo)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("shipper: connection lost, will reconnect",
			"endpoint", s.opts.Endpoint,
			"err", err,
			"retry_in", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// drain sends batches until a transient send failure or ctx is cancelled.
// The backoff resets after every successful send.
func (s *GRPC) drain(ctx context.Context, client wire.ObservationServiceClient, bo *backoff) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case first := <-s.buf:
			batch := s.collect(first)
			err := s.send(ctx, client, batch)
			switch {
			case err == nil:
				bo.reset()
			case isPermanentError(err):
				slog.Error("shipper: batch rejected, discarding",
					"packets", len(batch), "err", err)
			default:
				return err
			}
		}
	}
}

// collect gathers up to BatchSize packets without waiting.
func (s *GRPC) collect(first wire.Packet) []wire.Packet {
	batch := make([]wire.Packet, 1, s.opts.BatchSize)
	batch[0] = first
	for len(batch) < s.opts.BatchSize {
		select {
		case p := <-s.buf:
			batch = append(batch, p)
		default:
			return batch
		}
	}
	return batch
}

// send delivers one batch through the breaker. Failed batches are counted and
// dropped.
func (s *GRPC) send(ctx context.Context, client wire.ObservationServiceClient, batch []wire.Packet) error {
	req, err := wire.EncodeBatch(batch)
	if err != nil {
		s.failed.Add(uint64(len(batch)))
		return status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.breaker.Execute(func() (interface{}, error) {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if s.opts.StationID != "" {
			sendCtx = metadata.AppendToOutgoingContext(sendCtx, wire.StationMetadataKey, s.opts.StationID)
		}
		return client.SubmitBatch(sendCtx, req)
	})
	if err != nil {
		s.failed.Add(uint64(len(batch)))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("shipper: %w", err)
		}
		return fmt.Errorf("shipper: submit batch: %w", err)
	}

	s.sent.Add(uint64(len(batch)))
	if out, ok := resp.(interface{ GetValue() uint32 }); ok {
		slog.Debug("shipper: batch delivered", "packets", len(batch), "accepted", out.GetValue())
	}
	return nil
}

// isPermanentError returns true for gRPC errors that indicate the batch
// itself is invalid and should not be retried.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

func defaultDial(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, endpoint, //nolint:staticcheck // DialContext kept for grpc 1.62 compat
		grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
