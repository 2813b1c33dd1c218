// Package banner prints the console's welcome text.
package banner

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dmagro/eth-console/internal/client"
	"github.com/dmagro/eth-console/internal/format"
)

// Source is the connection the banner is fetched through.
type Source interface {
	Send(ctx context.Context, method string, params ...any) (any, error)
	GetBlock(ctx context.Context, id client.BlockID, fullTx bool) (*client.Block, error)
}

// Library names one client library and its version.
type Library struct {
	Name    string
	Version string
}

// Data is what the banner shows about the attached node.
type Data struct {
	ClientVersion string
	Block         *client.Block
	Modules       map[string]string
}

// Fetch issues web3_clientVersion, a latest block lookup and rpc_modules.
// The calls run concurrently; the first failure cancels the rest.
func Fetch(ctx context.Context, src Source) (*Data, error) {
	var d Data
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := src.Send(ctx, "web3_clientVersion")
		if err != nil {
			return errors.Wrap(err, "web3_clientVersion")
		}
		version, ok := res.(string)
		if !ok {
			return errors.Errorf("web3_clientVersion: unexpected result %v", res)
		}
		d.ClientVersion = version
		return nil
	})

	g.Go(func() error {
		block, err := src.GetBlock(ctx, client.Latest(), false)
		if err != nil {
			return errors.Wrap(err, "latest block")
		}
		if block == nil {
			return errors.New("latest block: node returned no block")
		}
		d.Block = block
		return nil
	})

	g.Go(func() error {
		res, err := src.Send(ctx, "rpc_modules")
		if err != nil {
			return errors.Wrap(err, "rpc_modules")
		}
		raw, ok := res.(map[string]any)
		if !ok {
			return errors.Errorf("rpc_modules: unexpected result %v", res)
		}
		d.Modules = make(map[string]string, len(raw))
		for name, version := range raw {
			d.Modules[name] = fmt.Sprint(version)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// BlockTime converts a block timestamp in seconds to the instant it denotes.
func BlockTime(ts uint64) time.Time {
	return time.UnixMilli(int64(ts) * 1000)
}

// Render writes the banner for d.
func Render(w io.Writer, d *Data, libs []Library) {
	fmt.Fprintf(w, "Welcome to the Ethereum console!\n\n")

	fmt.Fprintf(w, "REPL: %s %s\n", format.Green("goja"), format.Yellow(runtime.Version()))
	names := make([]string, 0, len(libs))
	for _, lib := range libs {
		fmt.Fprintf(w, "Client: %s %s\n", format.Green(lib.Name), format.Yellow(lib.Version))
		names = append(names, lib.Name)
	}
	fmt.Fprintln(w)

	modules := make([]string, 0, len(d.Modules))
	for name := range d.Modules {
		modules = append(modules, name)
	}
	sort.Strings(modules)

	fmt.Fprintf(w, "Attached: %s\n", d.ClientVersion)
	fmt.Fprintf(w, "At block: %d (%s)\n", d.Block.Number, format.FormatDate(BlockTime(d.Block.Timestamp)))
	fmt.Fprintf(w, " Exposed: %s\n\n", strings.Join(modules, " "))

	fmt.Fprintln(w, format.Dim("• Calls block until the node answers, Ctrl-C interrupts a slow one."))
	fmt.Fprintln(w, format.Dim("• The usual Geth API methods are exposed under eth, web3 and rpc."))
	fmt.Fprintln(w, format.Dim("• Every client library is exposed by name: "+strings.Join(names, " ")+"."))
	fmt.Fprintln(w, format.Dim("• The primary connection is exposed via the `client` field."))
	fmt.Fprintln(w)
}

// Print fetches the banner data and renders it. Nothing is written unless
// all three calls succeed.
func Print(ctx context.Context, w io.Writer, src Source, libs []Library) error {
	d, err := Fetch(ctx, src)
	if err != nil {
		return err
	}
	Render(w, d, libs)
	return nil
}
