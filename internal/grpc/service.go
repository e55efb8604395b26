// Package grpc exposes the transform service over gRPC. Messages are the
// well-known Struct and ListValue types carrying the same JSON documents the
// HTTP surface accepts, so no generated stubs are needed.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "soltix.transform.v1.TransformService"

const (
	methodEvaluate      = "/" + ServiceName + "/Evaluate"
	methodEvaluateQuery = "/" + ServiceName + "/EvaluateQuery"
	methodFunctions     = "/" + ServiceName + "/Functions"
)

// TransformServer is the server API for TransformService
type TransformServer interface {
	// Evaluate applies one function to inline series
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// EvaluateQuery applies one function to series read from the datastore
	EvaluateQuery(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Functions lists the registered function names
	Functions(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterTransformServer registers srv on s
func RegisterTransformServer(s grpc.ServiceRegistrar, srv TransformServer) {
	s.RegisterService(&TransformServiceDesc, srv)
}

func structHandler(method string, call func(TransformServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TransformServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TransformServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func functionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServer).Functions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodFunctions}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformServer).Functions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// TransformServiceDesc is the grpc.ServiceDesc for TransformService
var TransformServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransformServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler: structHandler(methodEvaluate, func(s TransformServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Evaluate(ctx, in)
			}),
		},
		{
			MethodName: "EvaluateQuery",
			Handler: structHandler(methodEvaluateQuery, func(s TransformServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.EvaluateQuery(ctx, in)
			}),
		},
		{
			MethodName: "Functions",
			Handler:    functionsHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
