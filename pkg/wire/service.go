package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "radartrack.v1.ObservationService"

// StationMetadataKey is the request metadata key naming the sending station.
// Packets without a radarStationId inherit it.
const StationMetadataKey = "x-radar-station"

const submitBatchMethod = "/" + ServiceName + "/SubmitBatch"

// ObservationServiceServer is implemented by the server's gRPC receiver.
type ObservationServiceServer interface {
	SubmitBatch(context.Context, *structpb.Struct) (*wrapperspb.UInt32Value, error)
}

// RegisterObservationServiceServer attaches srv to s.
func RegisterObservationServiceServer(s grpc.ServiceRegistrar, srv ObservationServiceServer) {
	s.RegisterService(&ObservationServiceDesc, srv)
}

func submitBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ObservationServiceServer).SubmitBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitBatchMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ObservationServiceServer).SubmitBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ObservationServiceDesc describes the service for grpc.Server.RegisterService.
var ObservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ObservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitBatch", Handler: submitBatchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "radartrack/v1/observation.proto",
}

// ObservationServiceClient is the client side of the service.
type ObservationServiceClient interface {
	SubmitBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.UInt32Value, error)
}

type observationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewObservationServiceClient returns a client bound to cc.
func NewObservationServiceClient(cc grpc.ClientConnInterface) ObservationServiceClient {
	return &observationServiceClient{cc: cc}
}

func (c *observationServiceClient) SubmitBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.UInt32Value, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.cc.Invoke(ctx, submitBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
