package receiver

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/radartrack/radartrack/pkg/wire"
)

// GRPC implements wire.ObservationServiceServer.
type GRPC struct {
	sub Submitter
	c   counters
}

// NewGRPC returns a gRPC receiver submitting to sub.
func NewGRPC(sub Submitter) *GRPC {
	return &GRPC{sub: sub}
}

// Stats returns the receiver's counters. Received counts observations, not
// batches.
func (g *GRPC) Stats() Stats { return g.c.snapshot() }

// SubmitBatch is the unary RPC handler called by simulator agents.
func (g *GRPC) SubmitBatch(ctx context.Context, in *structpb.Struct) (*wrapperspb.UInt32Value, error) {
	packets, invalid, err := wire.DecodeBatch(in)
	if errors.Is(err, wire.ErrNoObservations) {
		return nil, status.Error(codes.InvalidArgument, "observations is required")
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode batch: %v", err)
	}
	g.c.received.Add(uint64(len(packets) + invalid))
	g.c.malformed.Add(uint64(invalid))
	if len(packets) == 0 && invalid == 0 {
		return nil, status.Error(codes.InvalidArgument, "batch is empty")
	}

	station := StationFromContext(ctx)
	var accepted, bad uint32
	for _, p := range packets {
		obs, err := p.Observation()
		if err != nil {
			bad++
			continue
		}
		if obs.StationID == "" {
			obs.StationID = station
		}
		if g.sub.Submit(obs) {
			accepted++
		}
	}
	g.c.malformed.Add(uint64(bad))
	g.c.accepted.Add(uint64(accepted))

	if len(packets)-int(bad) == 0 {
		return nil, status.Error(codes.InvalidArgument, "batch has no valid observations")
	}

	slog.Debug("receiver: batch submitted",
		"station", station,
		"observations", len(packets)+invalid,
		"accepted", accepted,
		"invalid", invalid+int(bad),
	)
	return wrapperspb.UInt32(accepted), nil
}
