package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dmagro/eth-console/internal/transport"
)

// roundTripper carries one request/response exchange over a connection.
type roundTripper interface {
	roundTrip(ctx context.Context, req *Request) (*Response, error)
	close() error
}

// ClientConfig describes how to reach a node.
type ClientConfig struct {
	Name    string
	URL     string
	Timeout time.Duration // per-exchange limit over HTTP; 0 = none
	Headers http.Header
}

// Client is a minimal JSON-RPC 2.0 client. It issues one call at a time per
// connection and never retries.
type Client struct {
	name   string
	url    string
	conn   roundTripper
	nextID atomic.Uint64
}

// Dial classifies cfg.URL and connects over the matching transport. HTTP
// endpoints are not contacted until the first call.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	ep, err := transport.Resolve(cfg.URL)
	if err != nil {
		return nil, err
	}

	var conn roundTripper
	switch ep.Kind {
	case transport.HTTP:
		conn = newHTTPConn(ep.Address, cfg.Timeout, cfg.Headers)
	case transport.Socket:
		conn, err = dialWebsocket(ctx, ep.Address, cfg.Timeout, cfg.Headers)
	case transport.LocalSocket:
		conn, err = dialIPC(ctx, ep.Address)
	}
	if err != nil {
		return nil, &transport.ConnectError{Kind: ep.Kind, URL: ep.URL, Err: err}
	}
	return &Client{name: cfg.Name, url: ep.URL, conn: conn}, nil
}

func (c *Client) Name() string { return c.name }
func (c *Client) URL() string  { return c.url }

// Call executes a JSON-RPC method and returns the raw response together with
// the round-trip latency. A node-side error is returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (*Response, time.Duration, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := &Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	start := time.Now()
	resp, err := c.conn.roundTrip(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return nil, latency, err
	}
	if resp.Error != nil {
		return nil, latency, resp.Error
	}
	return resp, latency, nil
}

// CallContext decodes the result of method into result, matching the
// signature of go-ethereum's rpc.Client so both can sit behind one facade.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	resp, _, err := c.Call(ctx, method, args...)
	if err != nil {
		return err
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("invalid %s result: %w", method, err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	_ = c.conn.close()
}
