// Package transport maps a node URL onto one of the three transports an
// Ethereum node serves JSON-RPC over and dials it.
//
// Classification is purely lexical: the URL prefix decides the transport and
// nothing else about the URL is validated. An unrecognised prefix is reported
// before any connection is attempted.
package transport

import (
	"fmt"
	"strings"
)

// Kind is the transport selected for an endpoint.
type Kind int

const (
	// Socket is a streaming WebSocket connection (ws://, wss://).
	Socket Kind = iota
	// HTTP is a request/response connection (http://, https://).
	HTTP
	// LocalSocket is a Unix domain socket or Windows named pipe (ipc:// or a path).
	LocalSocket
)

func (k Kind) String() string {
	switch k {
	case Socket:
		return "websocket"
	case HTTP:
		return "http"
	case LocalSocket:
		return "ipc"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	ipcPrefix  = "ipc://"
	pipePrefix = `\\.\pipe\`
)

// prefixes is checked in order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"ws://", Socket},
	{"wss://", Socket},
	{"http://", HTTP},
	{"https://", HTTP},
	{ipcPrefix, LocalSocket},
}

// UnsupportedSchemeError reports a URL whose prefix matches no transport.
type UnsupportedSchemeError struct {
	URL string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported endpoint scheme: %q (expected ws://, wss://, http://, https://, ipc:// or a socket path)", e.URL)
}

// Endpoint is a classified connection URL.
type Endpoint struct {
	Kind Kind
	// URL is the string as given by the user.
	URL string
	// Address is the dialable form: the URL itself for network transports,
	// the bare socket path for local sockets.
	Address string
}

// Classify returns the transport kind for rawurl.
func Classify(rawurl string) (Kind, error) {
	ep, err := Resolve(rawurl)
	if err != nil {
		return 0, err
	}
	return ep.Kind, nil
}

// Resolve classifies rawurl and derives its dialable address.
func Resolve(rawurl string) (Endpoint, error) {
	url := strings.TrimSpace(rawurl)
	if url == "" {
		return Endpoint{}, &UnsupportedSchemeError{URL: rawurl}
	}
	lower := strings.ToLower(url)
	for _, p := range prefixes {
		if !strings.HasPrefix(lower, p.prefix) {
			continue
		}
		ep := Endpoint{Kind: p.kind, URL: url, Address: url}
		if p.kind == LocalSocket {
			ep.Address = url[len(ipcPrefix):]
			if ep.Address == "" {
				return Endpoint{}, &UnsupportedSchemeError{URL: rawurl}
			}
		}
		return ep, nil
	}
	if isSocketPath(url) {
		return Endpoint{Kind: LocalSocket, URL: url, Address: url}, nil
	}
	return Endpoint{}, &UnsupportedSchemeError{URL: rawurl}
}

// IsNamedPipe reports whether addr is a Windows named pipe path.
func IsNamedPipe(addr string) bool {
	return strings.HasPrefix(addr, pipePrefix)
}

// isSocketPath accepts the local-path conventions geth uses for its IPC
// endpoint: absolute Unix paths, Windows pipes and relative *.ipc files.
func isSocketPath(s string) bool {
	if strings.Contains(s, "://") {
		return false
	}
	return strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, pipePrefix) ||
		strings.HasSuffix(s, ".ipc")
}
