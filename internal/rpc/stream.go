package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmagro/eth-console/internal/transport"
)

// streamCodec is the framing of a long-lived connection.
type streamCodec interface {
	writeJSON(v interface{}) error
	readJSON(v interface{}) error
	setDeadline(t time.Time) error
	close() error
}

// streamConn serialises exchanges over one streaming connection. Messages
// that do not answer the pending request (subscription notifications, stale
// replies) are dropped.
type streamConn struct {
	mu    sync.Mutex
	codec streamCodec
}

func (c *streamConn) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.codec.setDeadline(deadline); err != nil {
		return nil, err
	}
	// Unblock the read when the caller gives up. A callback that already
	// started must finish before the next exchange resets the deadline.
	expired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(expired)
		_ = c.codec.setDeadline(time.Now())
	})
	defer func() {
		if !stop() {
			<-expired
		}
	}()

	if err := c.codec.writeJSON(req); err != nil {
		return nil, contextErr(ctx, err)
	}
	for {
		var resp Response
		if err := c.codec.readJSON(&resp); err != nil {
			return nil, contextErr(ctx, err)
		}
		if resp.ID == req.ID && resp.Method == "" {
			return &resp, nil
		}
	}
}

func (c *streamConn) close() error {
	return c.codec.close()
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// The connection deadline can fire just before the context's own timer.
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return err
}

type wsCodec struct {
	conn *websocket.Conn
}

func dialWebsocket(ctx context.Context, url string, timeout time.Duration, headers http.Header) (*streamConn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: %s", err, resp.Status)
		}
		return nil, err
	}
	return &streamConn{codec: &wsCodec{conn: conn}}, nil
}

func (c *wsCodec) writeJSON(v interface{}) error { return c.conn.WriteJSON(v) }
func (c *wsCodec) readJSON(v interface{}) error { return c.conn.ReadJSON(v) }

func (c *wsCodec) setDeadline(t time.Time) error {
	if err := c.conn.SetWriteDeadline(t); err != nil {
		return err
	}
	return c.conn.SetReadDeadline(t)
}

func (c *wsCodec) close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

type ipcCodec struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// ErrNamedPipe is returned when the lite client is pointed at a Windows named
// pipe. Only Unix domain sockets are dialed; the geth library handles pipes.
var ErrNamedPipe = errors.New("named pipes are not supported by the lite client")

func dialIPC(ctx context.Context, path string) (*streamConn, error) {
	if transport.IsNamedPipe(path) {
		return nil, ErrNamedPipe
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &streamConn{codec: &ipcCodec{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}}, nil
}

func (c *ipcCodec) writeJSON(v interface{}) error { return c.enc.Encode(v) }
func (c *ipcCodec) readJSON(v interface{}) error { return c.dec.Decode(v) }
func (c *ipcCodec) setDeadline(t time.Time) error { return c.conn.SetDeadline(t) }
func (c *ipcCodec) close() error { return c.conn.Close() }
