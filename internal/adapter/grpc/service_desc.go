package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
// Requests and responses are google.protobuf.Struct messages.
const ServiceName = "transferflow.v1.TransferService"

// Method names
const (
	MethodOpenAccount     = "OpenAccount"
	MethodGetAccount      = "GetAccount"
	MethodCreateTransfer  = "CreateTransfer"
	MethodApproveTransfer = "ApproveTransfer"
	MethodRejectTransfer  = "RejectTransfer"
	MethodListTransfers   = "ListTransfers"
)

// FullMethod returns the "/service/method" path of a TransferService method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// TransferServiceServer is the server API for TransferService
type TransferServiceServer interface {
	OpenAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RejectTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransfers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(TransferServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var transferServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodOpenAccount, Handler: unaryHandler(MethodOpenAccount, TransferServiceServer.OpenAccount)},
		{MethodName: MethodGetAccount, Handler: unaryHandler(MethodGetAccount, TransferServiceServer.GetAccount)},
		{MethodName: MethodCreateTransfer, Handler: unaryHandler(MethodCreateTransfer, TransferServiceServer.CreateTransfer)},
		{MethodName: MethodApproveTransfer, Handler: unaryHandler(MethodApproveTransfer, TransferServiceServer.ApproveTransfer)},
		{MethodName: MethodRejectTransfer, Handler: unaryHandler(MethodRejectTransfer, TransferServiceServer.RejectTransfer)},
		{MethodName: MethodListTransfers, Handler: unaryHandler(MethodListTransfers, TransferServiceServer.ListTransfers)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterTransferServiceServer registers srv on s
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&transferServiceDesc, srv)
}

// unaryHandler adapts a TransferServiceServer method to grpc.MethodDesc,
// decoding the request and running it through the interceptor chain.
func unaryHandler(method string, call methodFunc) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TransferServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TransferServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TransferServiceClient is the client API for TransferService
type TransferServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTransferServiceClient creates a client on top of cc
func NewTransferServiceClient(cc grpc.ClientConnInterface) *TransferServiceClient {
	return &TransferServiceClient{cc: cc}
}

func (c *TransferServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransferServiceClient) OpenAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodOpenAccount, in, opts...)
}

func (c *TransferServiceClient) GetAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAccount, in, opts...)
}

func (c *TransferServiceClient) CreateTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateTransfer, in, opts...)
}

func (c *TransferServiceClient) ApproveTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodApproveTransfer, in, opts...)
}

func (c *TransferServiceClient) RejectTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRejectTransfer, in, opts...)
}

func (c *TransferServiceClient) ListTransfers(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListTransfers, in, opts...)
}
