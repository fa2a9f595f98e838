package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Client calls a remote wordlens.v1.Dictionary. cmd/wordlens uses it to
// query a running server from the shell.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr. Extra options are appended after the
// defaults (insecure transport, trace propagation).
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unavailable, "dial dictionary service").WithMetadata("addr", addr)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Define returns the entry for word. Errors carry the server's code.
func (c *Client) Define(ctx context.Context, word string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, defineMethod, wrapperspb.String(word), out); err != nil {
		return "", errors.FromGRPCError(err)
	}
	return out.GetValue(), nil
}

// LookupAt returns the entry for the word at p on d.
func (c *Client) LookupAt(ctx context.Context, p geometry.Point, d geometry.Display) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		"x":         p.X,
		"y":         p.Y,
		"display_x": d.X,
		"display_y": d.Y,
		"width":     d.Width,
		"height":    d.Height,
		"scale":     d.Scale(),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.InvalidArgument, "encode location")
	}
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, lookupAtMethod, in, out); err != nil {
		return "", errors.FromGRPCError(err)
	}
	return out.GetValue(), nil
}
