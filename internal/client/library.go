// Package client wraps the JSON-RPC client libraries behind a common facade.
package client

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/dmagro/eth-console/internal/rpc"
	"github.com/dmagro/eth-console/internal/transport"
)

// Backend is the part of a client library the facade relies on. Both
// go-ethereum's *rpc.Client and the in-repo *rpc.Client satisfy it.
type Backend interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Library is a client library that can be attached to a node.
type Library struct {
	Name string
	// Module is the Go module the library ships in, used for its version.
	Module string
	Dial   func(ctx context.Context, ep transport.Endpoint, opts transport.Options) (Backend, error)
}

const (
	Geth = "geth"
	Lite = "lite"
)

var libraries = map[string]Library{
	Geth: {
		Name:   Geth,
		Module: "github.com/ethereum/go-ethereum",
		Dial: func(ctx context.Context, ep transport.Endpoint, opts transport.Options) (Backend, error) {
			c, err := transport.DialEndpoint(ctx, ep, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	},
	Lite: {
		Name: Lite,
		Dial: func(ctx context.Context, ep transport.Endpoint, opts transport.Options) (Backend, error) {
			c, err := rpc.Dial(ctx, rpc.ClientConfig{
				Name:    Lite,
				URL:     ep.URL,
				Timeout: opts.Timeout,
				Headers: opts.Headers,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	},
}

// DefaultLibraries is the library set used when none is configured.
var DefaultLibraries = []string{Geth, Lite}

// LookupLibrary returns the library registered under name.
func LookupLibrary(name string) (Library, error) {
	lib, ok := libraries[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Library{}, fmt.Errorf("unknown client library %q (available: %s)", name, strings.Join(LibraryNames(), ", "))
	}
	return lib, nil
}

// LibraryNames lists the registered libraries alphabetically.
func LibraryNames() []string {
	names := make([]string, 0, len(libraries))
	for name := range libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Version reports the library version recorded in the binary's build info.
func (l Library) Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if l.Module == "" {
		return mainVersion(info)
	}
	for _, dep := range info.Deps {
		if dep.Path == l.Module {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "unknown"
}

func mainVersion(info *debug.BuildInfo) string {
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return "devel"
}
