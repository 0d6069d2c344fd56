package rpc

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// Client calls one catalog service over a long-lived connection.
type Client struct {
	conn   *grpc.ClientConn
	schema catalog.Schema
}

// NewClient creates a client for the kind's service at target. The connection
// is established lazily on the first call.
func NewClient(target string, schema catalog.Schema, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "rpc", "NewClient", "create connection to "+target)
	}
	return &Client{conn: conn, schema: schema}, nil
}

// Schema returns the kind the client talks to.
func (c *Client) Schema() catalog.Schema {
	return c.schema
}

// Call invokes op and classifies any failure with FromStatus.
func (c *Client) Call(ctx context.Context, op catalog.Operation, req *Request) (*Reply, error) {
	method := c.schema.MethodName(op)
	if method == "" {
		return nil, errors.WrapInvalid(errors.ErrUnknownOp, "rpc", "Call", string(op))
	}

	reply := new(Reply)
	if err := c.conn.Invoke(ctx, c.schema.FullMethod(op), req, reply, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, FromStatus(err, method)
	}
	return reply, nil
}

// Check asks the service for its health with the standard gRPC health protocol.
func (c *Client) Check(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: c.schema.Service})
	if err != nil {
		return false, FromStatus(err, "Check")
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// Target returns the address the client dials.
func (c *Client) Target() string {
	return c.conn.Target()
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
