// Package proto describes the accounts.v1.AccountService gRPC contract.
//
// Requests and responses are protobuf well-known types, so the service needs
// no generated code: credentials and account records travel as
// structpb.Struct, single tokens as wrapperspb.StringValue and empty
// payloads as emptypb.Empty. The descriptor, server registration and client
// stub below play the role protoc-gen-go-grpc output would.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "accounts.v1.AccountService"

const (
	RegisterMethod            = "/" + ServiceName + "/Register"
	LoginMethod               = "/" + ServiceName + "/Login"
	RefreshMethod             = "/" + ServiceName + "/Refresh"
	LogoutMethod              = "/" + ServiceName + "/Logout"
	LogoutAllMethod           = "/" + ServiceName + "/LogoutAll"
	ValidateAccessTokenMethod = "/" + ServiceName + "/ValidateAccessToken"
	VerifyEmailMethod         = "/" + ServiceName + "/VerifyEmail"
	DeleteAccountMethod       = "/" + ServiceName + "/DeleteAccount"
)

// AccountServiceServer is the server API for AccountService.
type AccountServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Logout(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	LogoutAll(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ValidateAccessToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	VerifyEmail(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteAccount(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// unary adapts a typed server method to grpc.MethodHandler.
func unary[Req any, Resp any](fullMethod string, call func(AccountServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccountService_ServiceDesc is the grpc.ServiceDesc for AccountService.
var AccountService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(RegisterMethod, AccountServiceServer.Register)},
		{MethodName: "Login", Handler: unary(LoginMethod, AccountServiceServer.Login)},
		{MethodName: "Refresh", Handler: unary(RefreshMethod, AccountServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unary(LogoutMethod, AccountServiceServer.Logout)},
		{MethodName: "LogoutAll", Handler: unary(LogoutAllMethod, AccountServiceServer.LogoutAll)},
		{MethodName: "ValidateAccessToken", Handler: unary(ValidateAccessTokenMethod, AccountServiceServer.ValidateAccessToken)},
		{MethodName: "VerifyEmail", Handler: unary(VerifyEmailMethod, AccountServiceServer.VerifyEmail)},
		{MethodName: "DeleteAccount", Handler: unary(DeleteAccountMethod, AccountServiceServer.DeleteAccount)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accounts/v1/accounts.proto",
}

func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountService_ServiceDesc, srv)
}

// AccountServiceClient is the client API for AccountService.
type AccountServiceClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Refresh(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Logout(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	LogoutAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ValidateAccessToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifyEmail(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type accountServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountServiceClient(cc grpc.ClientConnInterface) AccountServiceClient {
	return &accountServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, RegisterMethod, in, opts)
}

func (c *accountServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, LoginMethod, in, opts)
}

func (c *accountServiceClient) Refresh(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, RefreshMethod, in, opts)
}

func (c *accountServiceClient) Logout(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, LogoutMethod, in, opts)
}

func (c *accountServiceClient) LogoutAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, LogoutAllMethod, in, opts)
}

func (c *accountServiceClient) ValidateAccessToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, ValidateAccessTokenMethod, in, opts)
}

func (c *accountServiceClient) VerifyEmail(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, VerifyEmailMethod, in, opts)
}

func (c *accountServiceClient) DeleteAccount(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, DeleteAccountMethod, in, opts)
}
