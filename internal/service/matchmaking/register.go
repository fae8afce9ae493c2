package matchmaking

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oggyb/anonchat/internal/app"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "anonchat.v1.Matchmaking"

// MatchmakingServer is the server API for the Matchmaking service.
// All payloads are protobuf well-known types, so no generated code is needed.
type MatchmakingServer interface {
	RequestSearch(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
	CancelSearch(context.Context, *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error)
	ExitChat(context.Context, *wrapperspb.Int64Value) (*wrapperspb.BoolValue, error)
	SendMessage(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetUser(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	UpdateFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the Matchmaking service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchmakingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RequestSearch", MatchmakingServer.RequestSearch),
		unary("CancelSearch", MatchmakingServer.CancelSearch),
		unary("ExitChat", MatchmakingServer.ExitChat),
		unary("SendMessage", MatchmakingServer.SendMessage),
		unary("GetUser", MatchmakingServer.GetUser),
		unary("UpdateProfile", MatchmakingServer.UpdateProfile),
		unary("UpdateFilter", MatchmakingServer.UpdateFilter),
		unary("Stats", MatchmakingServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "anonchat/v1/matchmaking.proto",
}

// unary builds the method descriptor that protoc-gen-go-grpc would generate
// for a single unary RPC.
func unary[Req any, Resp any](name string, call func(MatchmakingServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MatchmakingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MatchmakingServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Registrar ties the Matchmaking service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Matchmaking service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Name is reported to the health service.
func (r *Registrar) Name() string { return ServiceName }

// Register attaches the Matchmaking service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewMatchmakingService(r.appCtx))
}
