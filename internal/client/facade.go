package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmagro/eth-console/internal/stats"
)

// Facade is the console-facing view of one client library: block lookup,
// generic passthrough calls and version metadata. Facades share nothing.
type Facade struct {
	name        string
	version     string
	backend     Backend
	callTimeout time.Duration
	recorder    stats.Recorder
}

// Config configures a Facade.
type Config struct {
	Name    string
	Version string
	// CallTimeout bounds every call; 0 leaves calls bounded only by the
	// caller's context.
	CallTimeout time.Duration
}

// New wraps backend.
func New(backend Backend, cfg Config) *Facade {
	return &Facade{
		name:        cfg.Name,
		version:     cfg.Version,
		backend:     backend,
		callTimeout: cfg.CallTimeout,
	}
}

func (f *Facade) Name() string         { return f.name }
func (f *Facade) Version() string      { return f.version }
func (f *Facade) Backend() Backend     { return f.backend }
func (f *Facade) Stats() stats.Summary { return f.recorder.Summary() }

// Close releases the backend connection.
func (f *Facade) Close() { f.backend.Close() }

// Request is the object form of a generic call.
type Request struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

var errNoMethod = errors.New("request: method is required")

// GetBlock fetches a block by number, tag or hash. It returns nil when the
// node does not know the block.
func (f *Facade) GetBlock(ctx context.Context, id BlockID, fullTx bool) (*Block, error) {
	method := "eth_getBlockByNumber"
	if id.IsHash() {
		method = "eth_getBlockByHash"
	}
	var raw json.RawMessage
	if err := f.call(ctx, &raw, method, id.Arg(), fullTx); err != nil {
		return nil, err
	}
	return decodeBlock(raw)
}

// Send calls method with params and returns the decoded result.
func (f *Facade) Send(ctx context.Context, method string, params ...any) (any, error) {
	if method == "" {
		return nil, errNoMethod
	}
	var raw json.RawMessage
	if err := f.call(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid %s result: %w", method, err)
	}
	return result, nil
}

// Request is Send taking its arguments as one object.
func (f *Facade) Request(ctx context.Context, req Request) (any, error) {
	return f.Send(ctx, req.Method, req.Params...)
}

// call issues one call through the backend. Backend errors are returned as is.
func (f *Facade) call(ctx context.Context, result any, method string, args ...any) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := f.backend.CallContext(ctx, result, method, args...)
	f.recorder.Observe(time.Since(start), err)
	return err
}

func (f *Facade) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.callTimeout)
}
