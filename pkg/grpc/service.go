package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Every method takes and returns a google.protobuf.Struct, so the service is
// registered by hand instead of from generated code.
const ServiceName = "costmeter.v1.UsageService"

const (
	MethodIngest           = "Ingest"
	MethodGetAlerts        = "GetAlerts"
	MethodAcknowledgeAlert = "AcknowledgeAlert"
	MethodRecalculateCosts = "RecalculateCosts"
)

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type UsageServiceServer interface {
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcknowledgeAlert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecalculateCosts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(UsageServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(method string, call unaryCall) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(UsageServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var UsageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UsageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodIngest, Handler: unaryHandler(MethodIngest, UsageServiceServer.Ingest)},
		{MethodName: MethodGetAlerts, Handler: unaryHandler(MethodGetAlerts, UsageServiceServer.GetAlerts)},
		{MethodName: MethodAcknowledgeAlert, Handler: unaryHandler(MethodAcknowledgeAlert, UsageServiceServer.AcknowledgeAlert)},
		{MethodName: MethodRecalculateCosts, Handler: unaryHandler(MethodRecalculateCosts, UsageServiceServer.RecalculateCosts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "costmeter/v1/usage.proto",
}

func RegisterUsageServiceServer(s grpc.ServiceRegistrar, srv UsageServiceServer) {
	s.RegisterService(&UsageServiceDesc, srv)
}

type UsageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewUsageServiceClient(cc grpc.ClientConnInterface) *UsageServiceClient {
	return &UsageServiceClient{cc: cc}
}

func (c *UsageServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *UsageServiceClient) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodIngest, in, opts...)
}

func (c *UsageServiceClient) GetAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAlerts, in, opts...)
}

func (c *UsageServiceClient) AcknowledgeAlert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAcknowledgeAlert, in, opts...)
}

func (c *UsageServiceClient) RecalculateCosts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRecalculateCosts, in, opts...)
}
