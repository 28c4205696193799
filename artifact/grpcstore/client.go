// Package grpcstore serves an artifact.Store over gRPC and provides the
// matching client.
package grpcstore

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/waelchateur/ApkSignatureKill/artifact"
)

// Client implements artifact.Store against a remote Store service.
type Client struct {
	cc     *grpc.ClientConn
	client StoreClient

	// Timeout bounds each RPC when non-zero, on top of the caller's context.
	Timeout time.Duration
}

var _ artifact.Store = (*Client)(nil)

type DialOptions struct {
	// Timeout bounds the initial connection when non-zero.
	Timeout time.Duration
	// MaxMsgBytes sets both send and receive limits when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
		))
	}
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
	}
	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection; Close will close it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewStoreClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	want, err := artifact.ID(data)
	if err != nil {
		return cid.Undef, err
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, fromStatus(err)
	}
	id, err := artifact.Parse(reply.GetValue())
	if err != nil {
		return cid.Undef, err
	}
	if !id.Equals(want) {
		return cid.Undef, artifact.ErrIDMismatch
	}
	return id, nil
}

func (c *Client) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, artifact.ErrInvalidID
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, fromStatus(err)
	}
	b := reply.GetValue()
	if err := artifact.Check(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, fromStatus(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
