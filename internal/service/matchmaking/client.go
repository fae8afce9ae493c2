package matchmaking

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a thin typed client for the Matchmaking service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestSearch(ctx context.Context, userID int64, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "RequestSearch", wrapperspb.Int64(userID), opts...)
	return err
}

func (c *Client) CancelSearch(ctx context.Context, userID int64, opts ...grpc.CallOption) (bool, error) {
	out, err := invoke[wrapperspb.BoolValue](ctx, c.cc, "CancelSearch", wrapperspb.Int64(userID), opts...)
	return out.GetValue(), err
}

func (c *Client) ExitChat(ctx context.Context, userID int64, opts ...grpc.CallOption) (bool, error) {
	out, err := invoke[wrapperspb.BoolValue](ctx, c.cc, "ExitChat", wrapperspb.Int64(userID), opts...)
	return out.GetValue(), err
}

func (c *Client) SendMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "SendMessage", in, opts...)
	return err
}

func (c *Client) GetUser(ctx context.Context, userID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "GetUser", wrapperspb.Int64(userID), opts...)
}

func (c *Client) UpdateProfile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "UpdateProfile", in, opts...)
	return err
}

func (c *Client) UpdateFilter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "UpdateFilter", in, opts...)
}

func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Stats", &emptypb.Empty{}, opts...)
}
