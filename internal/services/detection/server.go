package detection

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TrackerServer is implemented by anything serving TrackMethod
type TrackerServer interface {
	Track(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func trackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrackerServer).Track(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TrackMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrackerServer).Track(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// TrackerServiceDesc registers a TrackerServer on a grpc.Server
var TrackerServiceDesc = grpc.ServiceDesc{
	ServiceName: "tracker.v1.Tracker",
	HandlerType: (*TrackerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Track",
			Handler:    trackHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tracker/v1/tracker.proto",
}

// RegisterTrackerServer registers srv on s
func RegisterTrackerServer(s grpc.ServiceRegistrar, srv TrackerServer) {
	s.RegisterService(&TrackerServiceDesc, srv)
}
