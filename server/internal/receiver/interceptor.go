package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/radartrack/radartrack/pkg/wire"
)

// StationHeader is the gRPC metadata key naming the sending radar station.
const StationHeader = wire.StationMetadataKey

type stationKey struct{}

// StationFromContext returns the station set by StationInterceptor, or "".
func StationFromContext(ctx context.Context) string {
	s, _ := ctx.Value(stationKey{}).(string)
	return s
}

// StationInterceptor copies the StationHeader metadata value into the request
// context. Calls without the header pass through unchanged.
func StationInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}
		if vals := md.Get(StationHeader); len(vals) > 0 && vals[0] != "" {
			ctx = context.WithValue(ctx, stationKey{}, vals[0])
		}
		return handler(ctx, req)
	}
}

// RecoveryInterceptor converts a handler panic into codes.Internal.
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("receiver: handler panic", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
