// Package console ties a node connection to the interactive shell: it dials
// the configured client libraries, prints the welcome banner and exposes the
// libraries to the evaluator.
package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dmagro/eth-console/internal/banner"
	"github.com/dmagro/eth-console/internal/client"
	"github.com/dmagro/eth-console/internal/consistency"
	"github.com/dmagro/eth-console/internal/format"
	"github.com/dmagro/eth-console/internal/shell"
	"github.com/dmagro/eth-console/internal/transport"
)

// Options configures Attach.
type Options struct {
	URL     string
	Headers http.Header
	// Clients names the libraries to attach, primary first. Empty means
	// client.DefaultLibraries.
	Clients     []string
	CallTimeout time.Duration
	DialTimeout time.Duration
	Logger      *zap.Logger
}

// Session is an attached node: one facade per client library.
type Session struct {
	endpoint transport.Endpoint
	facades  []*client.Facade
	log      *zap.Logger
}

// Attach resolves opts.URL and dials every configured library. An
// unsupported URL fails before anything is dialed; a failed dial closes the
// connections made so far.
func Attach(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ep, err := transport.Resolve(opts.URL)
	if err != nil {
		return nil, err
	}

	names := opts.Clients
	if len(names) == 0 {
		names = client.DefaultLibraries
	}
	libs := make([]client.Library, 0, len(names))
	for _, name := range names {
		lib, err := client.LookupLibrary(name)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}

	s := &Session{endpoint: ep, log: log}
	for _, lib := range libs {
		dialCtx, cancel := dialContext(ctx, opts.DialTimeout)
		backend, err := lib.Dial(dialCtx, ep, transport.Options{Headers: opts.Headers, Timeout: opts.CallTimeout})
		cancel()
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "attach %s", lib.Name)
		}
		log.Debug("Attached client library",
			zap.String("library", lib.Name),
			zap.String("transport", ep.Kind.String()),
			zap.String("url", ep.URL))

		s.facades = append(s.facades, client.New(backend, client.Config{
			Name:        lib.Name,
			Version:     lib.Version(),
			CallTimeout: opts.CallTimeout,
		}))
	}
	return s, nil
}

func dialContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Endpoint is the resolved node address.
func (s *Session) Endpoint() transport.Endpoint { return s.endpoint }

// Primary is the facade of the first configured library.
func (s *Session) Primary() *client.Facade { return s.facades[0] }

// Facades lists the attached facades in configuration order.
func (s *Session) Facades() []*client.Facade { return s.facades }

// Libraries describes the attached libraries for the banner.
func (s *Session) Libraries() []banner.Library {
	libs := make([]banner.Library, len(s.facades))
	for i, f := range s.facades {
		libs[i] = banner.Library{Name: f.Name(), Version: f.Version()}
	}
	return libs
}

// Welcome prints the banner through the primary library.
func (s *Session) Welcome(ctx context.Context, w io.Writer) error {
	return banner.Print(ctx, w, s.Primary(), s.Libraries())
}

// Install exposes the session to h and registers the .stats command.
func (s *Session) Install(h *shell.Host) error {
	if err := h.Merge(s.Bindings(h.Context)); err != nil {
		return err
	}
	h.Handle(".stats", "Show call statistics per client library", s.printStats)
	h.Handle(".compare", "Check that every client library sees the same chain", func(w io.Writer) error {
		s.printCompare(h.Context(), w)
		return nil
	})
	return nil
}

func (s *Session) printStats(w io.Writer) error {
	tbl := format.NewTable(w, "Library", "Calls", "Failures", "P50", "P95", "P99", "Max")
	for _, f := range s.facades {
		st := f.Stats()
		tbl.AddRow(f.Name(), st.Calls, format.ColorFailures(st.Failures, st.Calls),
			format.ColorLatency(st.Latency.P50),
			format.ColorLatency(st.Latency.P95),
			format.ColorLatency(st.Latency.P99),
			format.ColorLatency(st.Latency.Max))
	}
	tbl.Print()
	return nil
}

func (s *Session) printCompare(ctx context.Context, w io.Writer) {
	r := consistency.Compare(ctx, s.facades)

	tbl := format.NewTable(w, "Library", "Head", fmt.Sprintf("Hash @ %d", r.ReferenceHeight))
	for _, f := range s.facades {
		name := f.Name()
		if err, failed := r.Errors[name]; failed {
			tbl.AddRow(name, "-", format.Red(err.Error()))
			continue
		}
		tbl.AddRow(name, r.Heights[name], r.Hashes[name])
	}
	tbl.Print()

	if r.Consistent {
		fmt.Fprintln(w, format.Green("✓ "+consistency.FormatHeightDrift(r.HeightDrift)+", hashes agree"))
		return
	}
	for _, issue := range r.Issues {
		fmt.Fprintln(w, format.Red("✗ "+issue))
	}
}

// Close closes every attached backend.
func (s *Session) Close() {
	for _, f := range s.facades {
		f.Close()
	}
	s.facades = nil
}

// Preload evaluates files in order. The first failing script aborts.
func Preload(h *shell.Host, files []string) error {
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrap(err, "preload")
		}
		if _, err := h.RunScript(file, string(src)); err != nil {
			return errors.Wrapf(err, "preload %s", file)
		}
	}
	return nil
}

// Exec evaluates expr once and prints its result to w. An expression that
// throws is reported as an error.
func Exec(h *shell.Host, w io.Writer, expr string) error {
	v, err := h.RunScript("<exec>", expr)
	if err != nil {
		return errors.Wrap(err, "exec")
	}
	if out, ok := h.Render(v); ok {
		fmt.Fprintln(w, out)
	}
	return nil
}
