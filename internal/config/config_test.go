package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_RPC_KEY", "abc123")
	path := writeConfig(t, `
clients: [Lite, geth]
call_timeout: 3s
headers:
  User-Agent: ethconsole
endpoints:
  - name: mainnet
    url: https://rpc.example.org/${TEST_RPC_KEY}
    headers:
      Authorization: Bearer ${TEST_RPC_KEY}
  - name: local
    url: /tmp/geth.ipc
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"lite", "geth"}, cfg.Clients)
	assert.Equal(t, 3*time.Second, cfg.CallTimeout)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.Equal(t, "→ ", cfg.Prompt)
	require.Len(t, cfg.Endpoints, 2)
	assert.Equal(t, "https://rpc.example.org/abc123", cfg.Endpoints[0].URL)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown client", Config{Clients: []string{"web3js"}}, "unknown client library"},
		{"duplicate client", Config{Clients: []string{"geth", "GETH"}}, "listed twice"},
		{"negative call timeout", Config{CallTimeout: -time.Second}, "call_timeout"},
		{"negative dial timeout", Config{DialTimeout: -time.Second}, "dial_timeout"},
		{"unnamed endpoint", Config{Endpoints: []Endpoint{{URL: "http://x"}}}, "name is required"},
		{"duplicate endpoint", Config{Endpoints: []Endpoint{{Name: "a", URL: "http://x"}, {Name: "a", URL: "http://y"}}}, "defined twice"},
		{"missing url", Config{Endpoints: []Endpoint{{Name: "a"}}}, "url is required"},
		{"bad scheme", Config{Endpoints: []Endpoint{{Name: "a", URL: "ftp://x"}}}, "unsupported endpoint scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateWarnsOnLowTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := Config{CallTimeout: 100 * time.Millisecond}

	require.NoError(t, cfg.Validate(zap.New(core)))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "call_timeout is very low")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"geth", "lite"}, cfg.Clients)

	_, err = LoadOrDefault(writeConfig(t, "clients: [nope]\n"), nil)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := Config{
		Headers: map[string]string{"User-Agent": "ethconsole", "X-Env": "global"},
		Endpoints: []Endpoint{
			{Name: "mainnet", URL: "wss://rpc.example.org", Headers: map[string]string{"X-Env": "mainnet"}},
		},
	}

	target := cfg.Resolve("mainnet", nil)
	assert.Equal(t, "mainnet", target.Name)
	assert.Equal(t, "wss://rpc.example.org", target.URL)
	assert.Equal(t, "mainnet", target.Headers.Get("X-Env"))
	assert.Equal(t, "ethconsole", target.Headers.Get("User-Agent"))

	target = cfg.Resolve(" http://localhost:8545 ", http.Header{"X-Env": {"flag"}})
	assert.Empty(t, target.Name)
	assert.Equal(t, "http://localhost:8545", target.URL)
	assert.Equal(t, []string{"flag"}, target.Headers.Values("X-Env"))
}

func TestHistoryFileHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := Config{HistoryFile: "~/.ethconsole_history"}
	require.NoError(t, cfg.Validate(nil))
	assert.Equal(t, filepath.Join(home, ".ethconsole_history"), cfg.HistoryFile)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("# comment\nETHCONSOLE_TEST_A=\"quoted\"\n\nETHCONSOLE_TEST_B=a=b\n"), 0o600))
	t.Setenv("ETHCONSOLE_TEST_A", "")
	t.Setenv("ETHCONSOLE_TEST_B", "")

	LoadEnv()
	assert.Equal(t, "quoted", os.Getenv("ETHCONSOLE_TEST_A"))
	assert.Equal(t, "a=b", os.Getenv("ETHCONSOLE_TEST_B"))
}
