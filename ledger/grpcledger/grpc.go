// Package grpcledger exposes the certificate registry over gRPC, so issuing
// services can talk to a remote registry daemon that holds the chain
// connection and signing credentials.
package grpcledger

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "acadcert.ledger.registry.v1.Registry"

// RegistryServer is the server API for the Registry gRPC service.
//
// Structured payloads travel as canonical JSON inside protobuf well-known
// wrapper types, so this package does not require a protoc/codegen toolchain.
type RegistryServer interface {
	Issue(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Revoke(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	Reactivate(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	Get(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
	IsValid(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error)
	Height(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
}

// UnimplementedRegistryServer can be embedded to have forward compatible implementations.
type UnimplementedRegistryServer struct{}

func (UnimplementedRegistryServer) Issue(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Issue not implemented")
}
func (UnimplementedRegistryServer) Revoke(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Revoke not implemented")
}
func (UnimplementedRegistryServer) Reactivate(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Reactivate not implemented")
}
func (UnimplementedRegistryServer) Get(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedRegistryServer) IsValid(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method IsValid not implemented")
}
func (UnimplementedRegistryServer) Height(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method Height not implemented")
}

// RegisterRegistryServer registers the Registry service on a gRPC server.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&Registry_ServiceDesc, srv)
}

// RegistryClient is the client API for the Registry gRPC service.
type RegistryClient interface {
	Issue(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Revoke(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Reactivate(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	IsValid(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Height(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error)
}

type registryClient struct{ cc grpc.ClientConnInterface }

func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient { return &registryClient{cc: cc} }

func (c *registryClient) Issue(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Issue", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Revoke(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Revoke", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Reactivate(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Reactivate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) IsValid(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/IsValid", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Height(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Height", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Registry_Issue_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Issue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Issue"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Issue(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Revoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Revoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Revoke"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Revoke(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Reactivate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Reactivate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Reactivate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Reactivate(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Get(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_IsValid_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).IsValid(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/IsValid"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).IsValid(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _Registry_Height_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Height(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Height"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServer).Height(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Registry_ServiceDesc is the grpc.ServiceDesc for the Registry service.
var Registry_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: _Registry_Issue_Handler},
		{MethodName: "Revoke", Handler: _Registry_Revoke_Handler},
		{MethodName: "Reactivate", Handler: _Registry_Reactivate_Handler},
		{MethodName: "Get", Handler: _Registry_Get_Handler},
		{MethodName: "IsValid", Handler: _Registry_IsValid_Handler},
		{MethodName: "Height", Handler: _Registry_Height_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registry.proto",
}
