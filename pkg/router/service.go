package router

import (
	"context"

	"google.golang.org/grpc"
)

// UplinkHandler is the server side of the delivery RPC. Deliver receives
// the encoded destination and payload of one message and returns the id it
// was processed under.
type UplinkHandler interface {
	Deliver(ctx context.Context, dest, payload []byte) ([32]byte, error)
}

var uplinkServiceDesc = grpc.ServiceDesc{
	ServiceName: "conduit.Uplink",
	HandlerType: (*UplinkHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: uplinkDeliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "conduit/uplink.proto",
}

// RegisterUplinkHandler registers h on the given gRPC server under the
// service name DialUplink clients invoke.
func RegisterUplinkHandler(s grpc.ServiceRegistrar, h UplinkHandler) {
	s.RegisterService(&uplinkServiceDesc, h)
}

func uplinkDeliverHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(deliverRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*deliverRequest)
		id, err := srv.(UplinkHandler).Deliver(ctx, r.Dest, r.Payload)
		if err != nil {
			return nil, err
		}
		return &deliverResponse{MessageId: id[:]}, nil
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	return interceptor(ctx, in, info, handle)
}
