// Package calculatorv1 defines the calculator.v1.CalculatorService gRPC contract.
// Requests and responses are google.protobuf.Struct documents.
package calculatorv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "calculator.v1.CalculatorService"

const (
	EvaluateRegularFullMethodName     = "/" + ServiceName + "/EvaluateRegular"
	EvaluateForceFullMethodName       = "/" + ServiceName + "/EvaluateForce"
	EvaluateRevisionFullMethodName    = "/" + ServiceName + "/EvaluateRevision"
	PriceBondFullMethodName           = "/" + ServiceName + "/PriceBond"
	GetPortfolioSummaryFullMethodName = "/" + ServiceName + "/GetPortfolioSummary"
)

// CalculatorServiceServer is the server API for CalculatorService
type CalculatorServiceServer interface {
	EvaluateRegular(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateForce(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateRevision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PriceBond(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCalculatorServiceServer must be embedded to have forward compatible implementations
type UnimplementedCalculatorServiceServer struct{}

func (UnimplementedCalculatorServiceServer) EvaluateRegular(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EvaluateRegular not implemented")
}

func (UnimplementedCalculatorServiceServer) EvaluateForce(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EvaluateForce not implemented")
}

func (UnimplementedCalculatorServiceServer) EvaluateRevision(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EvaluateRevision not implemented")
}

func (UnimplementedCalculatorServiceServer) PriceBond(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PriceBond not implemented")
}

func (UnimplementedCalculatorServiceServer) GetPortfolioSummary(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetPortfolioSummary not implemented")
}

// RegisterCalculatorServiceServer registers srv on s
func RegisterCalculatorServiceServer(s grpc.ServiceRegistrar, srv CalculatorServiceServer) {
	s.RegisterService(&CalculatorService_ServiceDesc, srv)
}

type unaryCall func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CalculatorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CalculatorServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CalculatorService_ServiceDesc is the grpc.ServiceDesc for CalculatorService
var CalculatorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "EvaluateRegular",
			Handler: unaryHandler(EvaluateRegularFullMethodName, func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.EvaluateRegular(ctx, in)
			}),
		},
		{
			MethodName: "EvaluateForce",
			Handler: unaryHandler(EvaluateForceFullMethodName, func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.EvaluateForce(ctx, in)
			}),
		},
		{
			MethodName: "EvaluateRevision",
			Handler: unaryHandler(EvaluateRevisionFullMethodName, func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.EvaluateRevision(ctx, in)
			}),
		},
		{
			MethodName: "PriceBond",
			Handler: unaryHandler(PriceBondFullMethodName, func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.PriceBond(ctx, in)
			}),
		},
		{
			MethodName: "GetPortfolioSummary",
			Handler: unaryHandler(GetPortfolioSummaryFullMethodName, func(srv CalculatorServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetPortfolioSummary(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calculator/v1/calculator.proto",
}

// CalculatorServiceClient is the client API for CalculatorService
type CalculatorServiceClient interface {
	EvaluateRegular(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	EvaluateForce(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	EvaluateRevision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PriceBond(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetPortfolioSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type calculatorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCalculatorServiceClient creates a client over cc
func NewCalculatorServiceClient(cc grpc.ClientConnInterface) CalculatorServiceClient {
	return &calculatorServiceClient{cc: cc}
}

func (c *calculatorServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *calculatorServiceClient) EvaluateRegular(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EvaluateRegularFullMethodName, in, opts...)
}

func (c *calculatorServiceClient) EvaluateForce(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EvaluateForceFullMethodName, in, opts...)
}

func (c *calculatorServiceClient) EvaluateRevision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EvaluateRevisionFullMethodName, in, opts...)
}

func (c *calculatorServiceClient) PriceBond(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PriceBondFullMethodName, in, opts...)
}

func (c *calculatorServiceClient) GetPortfolioSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetPortfolioSummaryFullMethodName, in, opts...)
}
