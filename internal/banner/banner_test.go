package banner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-console/internal/client"
	"github.com/dmagro/eth-console/internal/format"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeSource struct {
	results map[string]any
	block   *client.Block
	errs    map[string]error
}

func (s *fakeSource) Send(ctx context.Context, method string, params ...any) (any, error) {
	if err := s.errs[method]; err != nil {
		return nil, err
	}
	return s.results[method], nil
}

func (s *fakeSource) GetBlock(ctx context.Context, id client.BlockID, fullTx bool) (*client.Block, error) {
	if err := s.errs["getBlock"]; err != nil {
		return nil, err
	}
	if id.TagName() != "latest" || fullTx {
		return nil, errors.New("banner must ask for the latest block without transactions")
	}
	return s.block, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		results: map[string]any{
			"web3_clientVersion": "Geth/v1.16.5-stable/linux-amd64/go1.24.3",
			"rpc_modules":        map[string]any{"web3": "1.0", "eth": "1.0", "net": "1.0", "rpc": "1.0"},
		},
		block: &client.Block{Number: 18573000, Timestamp: 1700000000},
		errs:  map[string]error{},
	}
}

var libs = []Library{{Name: "geth", Version: "v1.16.5"}, {Name: "lite", Version: "devel"}}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(context.Background(), &buf, newSource(), libs))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Welcome to the Ethereum console!\n"))
	assert.Contains(t, out, "REPL: goja go")
	assert.Contains(t, out, "Client: geth v1.16.5\nClient: lite devel\n")
	assert.Contains(t, out, "Attached: Geth/v1.16.5-stable/linux-amd64/go1.24.3\n")
	assert.Contains(t, out, " Exposed: eth net rpc web3\n")
	assert.Contains(t, out, "exposed by name: geth lite.")

	lines := strings.Split(out, "\n")
	var hints int
	for _, line := range lines {
		if strings.HasPrefix(line, "• ") {
			hints++
		}
	}
	assert.Equal(t, 4, hints)
}

func TestBlockTimeScalesOnce(t *testing.T) {
	at := BlockTime(1700000000)
	assert.Equal(t, int64(1700000000000), at.UnixMilli())
	assert.True(t, at.Equal(time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)))

	var buf bytes.Buffer
	require.NoError(t, Print(context.Background(), &buf, newSource(), libs))
	assert.Contains(t, buf.String(), "At block: 18573000 ("+format.FormatDate(at)+")\n")
}

func TestPrintNothingOnFailure(t *testing.T) {
	for _, call := range []string{"web3_clientVersion", "getBlock", "rpc_modules"} {
		t.Run(call, func(t *testing.T) {
			src := newSource()
			boom := errors.New("connection refused")
			src.errs[call] = boom

			var buf bytes.Buffer
			err := Print(context.Background(), &buf, src, libs)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, buf.String())
		})
	}
}

func TestPrintMissingBlock(t *testing.T) {
	src := newSource()
	src.block = nil

	var buf bytes.Buffer
	err := Print(context.Background(), &buf, src, libs)
	require.Error(t, err)
	assert.Empty(t, buf.String())
}
