package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceDesc describes TenancyService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TenancyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCurrentContext", Handler: getCurrentContextHandler},
		{MethodName: "ListOrganizations", Handler: listOrganizationsHandler},
		{MethodName: "SetActiveOrganization", Handler: setActiveOrganizationHandler},
		{MethodName: "GetActiveGym", Handler: getActiveGymHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getCurrentContextHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenancyServer).GetCurrentContext(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetCurrentContextFullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TenancyServer).GetCurrentContext(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrganizationsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenancyServer).ListOrganizations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListOrganizationsFullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TenancyServer).ListOrganizations(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func setActiveOrganizationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenancyServer).SetActiveOrganization(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetActiveOrganizationFullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TenancyServer).SetActiveOrganization(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getActiveGymHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TenancyServer).GetActiveGym(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetActiveGymFullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TenancyServer).GetActiveGym(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
