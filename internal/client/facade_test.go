package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-console/internal/rpc"
)

type fakeCall struct {
	method string
	args   []any
}

// fakeBackend answers calls from canned JSON results.
type fakeBackend struct {
	results map[string]string
	errs    map[string]error
	calls   []fakeCall
	closed  bool
	block   bool
}

func (b *fakeBackend) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	b.calls = append(b.calls, fakeCall{method: method, args: args})
	if b.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := b.errs[method]; err != nil {
		return err
	}
	raw, ok := b.results[method]
	if !ok {
		return &rpc.RPCError{Code: -32601, Message: "the method " + method + " does not exist/is not available"}
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), result)
}

func (b *fakeBackend) Close() { b.closed = true }

func (b *fakeBackend) last() fakeCall { return b.calls[len(b.calls)-1] }

const testBlock = `{
	"number": "0x10",
	"hash": "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6",
	"timestamp": "0x6553f100",
	"gasUsed": "0x5208",
	"totalDifficulty": "0xc70d815d562d3cfa955",
	"nonce": "0x0000000000000042",
	"transactions": [{"hash": "0xabc", "value": "0xde0b6b3a7640000", "nonce": "0x1"}]
}`

func TestGetBlockDispatch(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{
		"eth_getBlockByNumber": testBlock,
		"eth_getBlockByHash":   testBlock,
	}}
	f := New(backend, Config{Name: Lite})
	ctx := context.Background()

	id, err := ParseBlockID(int64(16))
	require.NoError(t, err)
	_, err = f.GetBlock(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, fakeCall{"eth_getBlockByNumber", []any{"0x10", false}}, backend.last())

	hash := "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6"
	id, err = ParseBlockID(hash)
	require.NoError(t, err)
	_, err = f.GetBlock(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, fakeCall{"eth_getBlockByHash", []any{hash, true}}, backend.last())

	id, err = ParseBlockID(nil)
	require.NoError(t, err)
	_, err = f.GetBlock(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, fakeCall{"eth_getBlockByNumber", []any{"latest", false}}, backend.last())
}

func TestGetBlockDecodes(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"eth_getBlockByNumber": testBlock}}
	f := New(backend, Config{})

	block, err := f.GetBlock(context.Background(), Latest(), false)
	require.NoError(t, err)
	require.NotNil(t, block)

	assert.Equal(t, uint64(16), block.Number)
	assert.Equal(t, uint64(1700000000), block.Timestamp)
	assert.Equal(t, "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6", block.Hash)
	assert.Equal(t, uint64(16), block.Fields["number"])
	assert.Equal(t, uint64(21000), block.Fields["gasUsed"])
	assert.Equal(t, "58750003716598352816469", block.Fields["totalDifficulty"])
	assert.Equal(t, "0x0000000000000042", block.Fields["nonce"])

	txs := block.Fields["transactions"].([]any)
	tx := txs[0].(map[string]any)
	assert.Equal(t, "1000000000000000000", tx["value"])
	assert.Equal(t, "0x1", tx["nonce"])
}

func TestGetBlockUnknown(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"eth_getBlockByNumber": "null"}}
	f := New(backend, Config{})

	block, err := f.GetBlock(context.Background(), Number(99999999), false)
	require.NoError(t, err)
	assert.Nil(t, block)
}

func TestSendPassthrough(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{
		"rpc_modules": `{"eth":"1.0","net":"1.0"}`,
		"eth_syncing": `false`,
	}}
	f := New(backend, Config{})
	ctx := context.Background()

	modules, err := f.Send(ctx, "rpc_modules")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"eth": "1.0", "net": "1.0"}, modules)

	syncing, err := f.Request(ctx, Request{Method: "eth_syncing"})
	require.NoError(t, err)
	assert.Equal(t, false, syncing)

	_, err = f.Request(ctx, Request{})
	assert.ErrorIs(t, err, errNoMethod)
}

func TestSendPropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset by peer")
	backend := &fakeBackend{errs: map[string]error{"eth_blockNumber": boom}}
	f := New(backend, Config{})

	_, err := f.Send(context.Background(), "eth_blockNumber")
	assert.Same(t, boom, err)

	_, err = f.Send(context.Background(), "eth_nope")
	var rpcErr *rpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestCallTimeout(t *testing.T) {
	backend := &fakeBackend{block: true}
	f := New(backend, Config{CallTimeout: 20 * time.Millisecond})

	_, err := f.Send(context.Background(), "eth_blockNumber")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFacadeStats(t *testing.T) {
	backend := &fakeBackend{results: map[string]string{"net_version": `"1"`}}
	f := New(backend, Config{Name: Geth, Version: "v1.16.5"})

	for i := 0; i < 3; i++ {
		_, err := f.Send(context.Background(), "net_version")
		require.NoError(t, err)
	}
	_, err := f.Send(context.Background(), "net_nope")
	require.Error(t, err)

	s := f.Stats()
	assert.Equal(t, 4, s.Calls)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, "geth", f.Name())
	assert.Equal(t, "v1.16.5", f.Version())

	f.Close()
	assert.True(t, backend.closed)
}

func TestLookupLibrary(t *testing.T) {
	lib, err := LookupLibrary(" GETH ")
	require.NoError(t, err)
	assert.Equal(t, Geth, lib.Name)
	assert.NotEmpty(t, lib.Version())

	_, err = LookupLibrary("web3js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geth, lite")
}
