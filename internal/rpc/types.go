// =============================================================================
// FILE: internal/rpc/types.go
// ROLE: Wire vocabulary of the lite JSON-RPC client
// =============================================================================
//
// SYSTEM CONTEXT
// ==============
// The console can attach more than one client library to the same node. The
// primary one is go-ethereum's rpc package; this package is the second one, a
// deliberately small JSON-RPC 2.0 codec that speaks to the node over HTTP, a
// WebSocket or a local socket. Every transport exchanges the same two
// envelopes defined here:
//
//   Client ──[ Request JSON ]──▶ Node
//   Client ◀──[ Response JSON ]── Node
//
// Request IDs matter for the streaming transports (WebSocket, IPC): the node
// may push subscription notifications on the same connection, and the reader
// skips every message whose ID does not match the request it is waiting for.
// Over HTTP each POST carries exactly one exchange.
//
// The "result" member is kept as json.RawMessage. Its shape depends on the
// method (a hex string for eth_blockNumber, an object for
// eth_getBlockByNumber, null for an unknown block), so decoding is left to the
// caller, who knows what to expect.
// =============================================================================

package rpc

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC 2.0 request.
//
//	{"jsonrpc": "2.0", "method": "eth_blockNumber", "params": [], "id": 1}
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// Response is a JSON-RPC 2.0 response. Error is nil on success.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method,omitempty"` // set on notifications only
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
//
// Standard codes: -32700 parse error, -32600 invalid request, -32601 method
// not found, -32602 invalid params, -32603 internal error. Nodes use the
// -32000 range for their own failures (execution reverted, header not found).
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code, mirroring go-ethereum's rpc.Error.
func (e *RPCError) ErrorCode() int { return e.Code }
