package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// Client calls a remote TransformService
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for address. Extra options are appended to the
// defaults (insecure transport, message size limits).
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(utils.GRPCMaxMessageSize),
			grpc.MaxCallSendMsgSize(utils.GRPCMaxMessageSize),
		),
	}
	conn, err := grpc.NewClient(address, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection to %s: %w", address, err)
	}
	return &Client{conn: conn}, nil
}

// Evaluate applies one function to inline series on the server
func (c *Client) Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluateResponse, error) {
	return c.evaluate(ctx, methodEvaluate, req)
}

// EvaluateQuery applies one function to series stored on the server
func (c *Client) EvaluateQuery(ctx context.Context, req *models.QueryEvaluateRequest) (*models.EvaluateResponse, error) {
	return c.evaluate(ctx, methodEvaluateQuery, req)
}

func (c *Client) evaluate(ctx context.Context, method string, req interface{}) (*models.EvaluateResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}

	var resp models.EvaluateResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Functions lists the functions registered on the server
func (c *Client) Functions(ctx context.Context) ([]string, error) {
	out := &structpb.ListValue{}
	if err := c.conn.Invoke(ctx, methodFunctions, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.conn.Close()
}
