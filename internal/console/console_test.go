package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/console/prompt"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-console/internal/shell"
	"github.com/dmagro/eth-console/internal/transport"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const (
	holder = "0x00000000219ab540356cbb839cbe05303d7705fa"
	token  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

var nodeResults = map[string]string{
	"web3_clientVersion":      `"Geth/v1.16.5-stable/linux-amd64/go1.24.3"`,
	"rpc_modules":             `{"web3":"1.0","eth":"1.0","net":"1.0","txpool":"1.0"}`,
	"eth_getBlockByNumber":    `{"number":"0x10","hash":"0x5c4a0e5ba4a7c8b5b0d3f1b5e6b7d9d8c1c1e2f3a4b5c6d7e8f9a0b1c2d3e4f5","timestamp":"0x6553f100","transactions":[]}`,
	"eth_getBlockByHash":      `null`,
	"eth_blockNumber":         `"0x10"`,
	"eth_chainId":             `"0x1"`,
	"eth_getBalance":          `"0xde0b6b3a7640000"`,
	"eth_getTransactionCount": `"0x5"`,
	"eth_gasPrice":            `"0x3b9aca00"`,
	"eth_call":                `"0x000000000000000000000000000000000000000000000000000000000012d687"`,
}

// node is a JSON-RPC test server answering from nodeResults.
type node struct {
	*httptest.Server
	mu      sync.Mutex
	methods []string
	params  map[string]json.RawMessage
}

func newNode(t *testing.T) *node {
	t.Helper()
	n := &node{params: map[string]json.RawMessage{}}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		n.mu.Lock()
		n.methods = append(n.methods, req.Method)
		n.params[req.Method] = req.Params
		n.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if result, ok := nodeResults[req.Method]; ok {
			resp["result"] = json.RawMessage(result)
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "the method " + req.Method + " does not exist/is not available"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(n.Close)
	return n
}

func (n *node) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.methods...)
}

// lastParams returns the params of the latest call to method.
func (n *node) lastParams(method string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return string(n.params[method])
}

func attach(t *testing.T, n *node) *Session {
	t.Helper()
	s, err := Attach(context.Background(), Options{URL: n.URL})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func install(t *testing.T, s *Session, p shell.Prompter) (*shell.Host, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	h := shell.New(shell.Config{Prompter: p, Output: &out})
	require.NoError(t, s.Install(h))
	return h, &out
}

func TestAttachUnsupportedScheme(t *testing.T) {
	n := newNode(t)

	_, err := Attach(context.Background(), Options{URL: "tcp" + strings.TrimPrefix(n.URL, "http")})
	var unsupported *transport.UnsupportedSchemeError
	require.ErrorAs(t, err, &unsupported)
	assert.Empty(t, n.calls())
}

func TestAttachConnectError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ipc")

	_, err := Attach(context.Background(), Options{URL: path})
	var connErr *transport.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, transport.LocalSocket, connErr.Kind)
	assert.Contains(t, err.Error(), "attach geth")
}

func TestAttachUnknownLibrary(t *testing.T) {
	n := newNode(t)

	_, err := Attach(context.Background(), Options{URL: n.URL, Clients: []string{"geth", "ethers"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown client library")
}

func TestWelcome(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)

	var out bytes.Buffer
	require.NoError(t, s.Welcome(context.Background(), &out))

	text := out.String()
	assert.Contains(t, text, "Attached: Geth/v1.16.5-stable/linux-amd64/go1.24.3\n")
	assert.Contains(t, text, "At block: 16 (")
	assert.Contains(t, text, " Exposed: eth net txpool web3\n")
	assert.Contains(t, text, "Client: geth ")
	assert.Contains(t, text, "Client: lite ")
	assert.ElementsMatch(t, []string{"web3_clientVersion", "eth_getBlockByNumber", "rpc_modules"}, n.calls())
}

func TestBindings(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	tests := []struct {
		expr string
		want string
	}{
		{"client.library", "'geth'"},
		{"geth.getBlock(16).number", "16"},
		{"lite.getBlock('latest').timestamp", "1700000000"},
		{"lite.getBlock('0x" + strings.Repeat("ab", 32) + "')", "null"},
		{"lite.send('web3_clientVersion')", "'Geth/v1.16.5-stable/linux-amd64/go1.24.3'"},
		{"geth.request({method: 'eth_chainId', params: []})", "'0x1'"},
		{"eth.blockNumber()", "16"},
		{"eth.chainId()", "1"},
		{"eth.getBalance('" + holder + "')", "'1000000000000000000'"},
		{"eth.getTransactionCount('" + holder + "', 'pending')", "5"},
		{"eth.gasPrice()", "'1000000000'"},
		{"eth.tokenBalance('" + token + "', '" + holder + "', 6, 'USDC')", "'1.234567 USDC'"},
		{"web3.clientVersion()", "'Geth/v1.16.5-stable/linux-amd64/go1.24.3'"},
		{"Object.keys(rpc.modules()).length", "4"},
		{"Object.keys(libraries).sort().join(',')", "'geth,lite'"},
		{"util.toHex(255)", "'0xff'"},
		{"util.fromHex('0xff')", "255"},
		{"util.fromHex('0x20000000000000')", "'9007199254740992'"},
		{"util.formatNumber(1234567)", "'1,234,567'"},
		{"util.formatUnits('1500000000000000000', 18)", "'1.500000000000000000'"},
		{"util.selector('balanceOf(address)')", "'0x70a08231'"},
		{"web3.sha3('0x')", "'0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470'"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, ok := h.Evaluate(tt.expr)
			require.True(t, ok)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSendParamsArray(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	want := `["` + holder + `","latest"]`
	for _, expr := range []string{
		"geth.send('eth_getBalance', ['" + holder + "', 'latest'])",
		"lite.send('eth_getBalance', ['" + holder + "', 'latest'])",
		"client.request({method: 'eth_getBalance', params: ['" + holder + "', 'latest']})",
	} {
		out, ok := h.Evaluate(expr)
		require.True(t, ok, expr)
		assert.Equal(t, "'0xde0b6b3a7640000'", out, expr)
		assert.JSONEq(t, want, n.lastParams("eth_getBalance"), expr)
	}

	out, ok := h.Evaluate("lite.send('eth_chainId', undefined)")
	require.True(t, ok)
	assert.Equal(t, "'0x1'", out)
}

func TestBindingErrorsAreCatchable(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	out, _ := h.Evaluate("try { eth.getBalance('nope') } catch (e) { 'caught' }")
	assert.Equal(t, "'caught'", out)

	out, _ = h.Evaluate("geth.send('debug_traceBlock')")
	assert.Contains(t, out, "does not exist")

	out, _ = h.Evaluate("geth.getBlock(-1)")
	assert.Contains(t, out, "invalid block number -1")

	out, _ = h.Evaluate("1 + 1")
	assert.Equal(t, "2", out)
}

func TestStatsPerLibrary(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	_, _ = h.Evaluate("lite.send('eth_chainId'); lite.send('nope')")
	out, _ := h.Evaluate("lite.stats().calls + ':' + lite.stats().failures")
	assert.Equal(t, "'2:1'", out)
	out, _ = h.Evaluate("geth.stats().calls")
	assert.Equal(t, "0", out)
}

type linePrompter struct{ lines []string }

func (p *linePrompter) PromptInput(string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *linePrompter) SetHistory([]string)                  {}
func (p *linePrompter) AppendHistory(string)                 {}
func (p *linePrompter) SetWordCompleter(prompt.WordCompleter) {}

func TestStatsCommand(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, out := install(t, s, &linePrompter{lines: []string{"eth.chainId()", ".stats"}})

	require.NoError(t, h.Run(context.Background()))
	text := out.String()
	assert.Contains(t, text, "Library")
	assert.Contains(t, text, "geth")
	assert.Contains(t, text, "lite")
}

func TestPreload(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	dir := t.TempDir()
	good := filepath.Join(dir, "helpers.js")
	require.NoError(t, os.WriteFile(good, []byte("function head() { return eth.blockNumber() * 2 }"), 0o600))
	require.NoError(t, Preload(h, []string{good}))

	out, _ := h.Evaluate("head()")
	assert.Equal(t, "32", out)

	bad := filepath.Join(dir, "bad.js")
	require.NoError(t, os.WriteFile(bad, []byte("throw new Error('bad script')"), 0o600))
	err := Preload(h, []string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.js")

	assert.Error(t, Preload(h, []string{filepath.Join(dir, "absent.js")}))
}

func TestExec(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, _ := install(t, s, nil)

	var out bytes.Buffer
	require.NoError(t, Exec(h, &out, "eth.blockNumber()"))
	assert.Equal(t, "16\n", out.String())

	out.Reset()
	require.NoError(t, Exec(h, &out, "var unused = 1"))
	assert.Empty(t, out.String())

	assert.Error(t, Exec(h, &out, "throw new Error('boom')"))
}

func TestSingleLibrary(t *testing.T) {
	n := newNode(t)
	s, err := Attach(context.Background(), Options{URL: n.URL, Clients: []string{"lite"}})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "lite", s.Primary().Name())
	h, _ := install(t, s, nil)
	out, _ := h.Evaluate("typeof geth")
	assert.Equal(t, "'undefined'", out)
	out, _ = h.Evaluate("eth.chainId()")
	assert.Equal(t, "1", out)
}

func TestCompare(t *testing.T) {
	n := newNode(t)
	s := attach(t, n)
	h, out := install(t, s, &linePrompter{lines: []string{".compare"}})

	res, ok := h.Evaluate("compare().consistent")
	require.True(t, ok)
	assert.Equal(t, "true", res)
	res, _ = h.Evaluate("compare().referenceHeight")
	assert.Equal(t, "16", res)

	require.NoError(t, h.Run(context.Background()))
	text := out.String()
	assert.Contains(t, text, "Hash @ 16")
	assert.Contains(t, text, "hashes agree")
}
