package grpckv

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"contractum.io/stash/storage"
)

// Client implements storage.KV over the KV gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client KVClient

	// Timeout applies per unary RPC when non-zero. Scan streams run
	// without a deadline; the caller bounds them by returning an error
	// from the callback.
	Timeout time.Duration
}

var _ storage.KV = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewKVClient(cc)}, nil
}

func (c *Client) callCtx() (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.Timeout)
	}
	return context.Background(), func() {}
}

func (c *Client) Get(key []byte) ([]byte, error) {
	ctx, cancel := c.callCtx()
	defer cancel()
	out, err := c.client.Get(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return nil, mapRPC(err)
	}
	return out.GetValue(), nil
}

func (c *Client) Put(key, value []byte) error {
	ctx, cancel := c.callCtx()
	defer cancel()
	if _, err := c.client.Put(ctx, wrapperspb.Bytes(EncodeEntry(key, value))); err != nil {
		return mapRPC(err)
	}
	return nil
}

func (c *Client) Has(key []byte) bool {
	ctx, cancel := c.callCtx()
	defer cancel()
	out, err := c.client.Has(ctx, wrapperspb.Bytes(key))
	return err == nil && out.GetValue()
}

func (c *Client) Delete(key []byte) error {
	ctx, cancel := c.callCtx()
	defer cancel()
	if _, err := c.client.Delete(ctx, wrapperspb.Bytes(key)); err != nil {
		return mapRPC(err)
	}
	return nil
}

func (c *Client) Scan(prefix []byte, fn func(key, value []byte) error) error {
	stream, err := c.client.Scan(context.Background(), wrapperspb.Bytes(prefix))
	if err != nil {
		return mapRPC(err)
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return mapRPC(err)
		}
		key, value, err := DecodeEntry(msg.GetValue())
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

func (c *Client) Close() error { return c.cc.Close() }
