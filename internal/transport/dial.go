package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
)

// Options tune the connection made by Dial.
type Options struct {
	// Headers are sent with every HTTP request and with the WebSocket handshake.
	Headers http.Header
	// Timeout bounds an HTTP round trip and the WebSocket handshake. Zero
	// means no limit.
	Timeout time.Duration
}

// ConnectError reports a failed connection attempt. The underlying client
// library error is available through Unwrap.
type ConnectError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s endpoint %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Dial resolves rawurl and opens a go-ethereum RPC client over the matching
// transport. Nothing is dialed when the scheme is unsupported.
func Dial(ctx context.Context, rawurl string, opts Options) (*gethrpc.Client, error) {
	ep, err := Resolve(rawurl)
	if err != nil {
		return nil, err
	}
	return DialEndpoint(ctx, ep, opts)
}

// DialEndpoint connects to an already classified endpoint.
func DialEndpoint(ctx context.Context, ep Endpoint, opts Options) (*gethrpc.Client, error) {
	var (
		client *gethrpc.Client
		err    error
	)
	switch ep.Kind {
	case Socket:
		dialer := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.Timeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		}
		client, err = gethrpc.DialOptions(ctx, ep.Address,
			gethrpc.WithWebsocketDialer(dialer),
			gethrpc.WithHeaders(opts.Headers),
		)
	case HTTP:
		client, err = gethrpc.DialOptions(ctx, ep.Address,
			gethrpc.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
			gethrpc.WithHeaders(opts.Headers),
		)
	case LocalSocket:
		client, err = gethrpc.DialIPC(ctx, ep.Address)
	default:
		return nil, &UnsupportedSchemeError{URL: ep.URL}
	}
	if err != nil {
		return nil, &ConnectError{Kind: ep.Kind, URL: ep.URL, Err: err}
	}
	return client, nil
}
