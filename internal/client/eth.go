package client

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// EthAPI holds the typed eth_ helpers exposed in the console.
type EthAPI interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address, block BlockID) (*big.Int, error)
	Nonce(ctx context.Context, account common.Address, block BlockID) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Call(ctx context.Context, msg ethereum.CallMsg, block BlockID) ([]byte, error)
}

// Eth returns the typed helpers for f. Facades over go-ethereum's client use
// ethclient; any other backend is served by raw calls.
func (f *Facade) Eth() EthAPI {
	raw := rawEth{f: f}
	if c, ok := f.backend.(*gethrpc.Client); ok {
		return &gethEth{f: f, ec: ethclient.NewClient(c), raw: raw}
	}
	return raw
}

// rawEth issues the eth_ calls through the facade.
type rawEth struct {
	f *Facade
}

func (e rawEth) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	err := e.f.call(ctx, &n, "eth_blockNumber")
	return uint64(n), err
}

func (e rawEth) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := e.f.call(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

func (e rawEth) Balance(ctx context.Context, account common.Address, block BlockID) (*big.Int, error) {
	var balance hexutil.Big
	if err := e.f.call(ctx, &balance, "eth_getBalance", account, block.Arg()); err != nil {
		return nil, err
	}
	return (*big.Int)(&balance), nil
}

func (e rawEth) Nonce(ctx context.Context, account common.Address, block BlockID) (uint64, error) {
	var nonce hexutil.Uint64
	err := e.f.call(ctx, &nonce, "eth_getTransactionCount", account, block.Arg())
	return uint64(nonce), err
}

func (e rawEth) GasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := e.f.call(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&price), nil
}

func (e rawEth) Call(ctx context.Context, msg ethereum.CallMsg, block BlockID) ([]byte, error) {
	var out hexutil.Bytes
	if err := e.f.call(ctx, &out, "eth_call", callArg(msg), block.Arg()); err != nil {
		return nil, err
	}
	return out, nil
}

func callArg(msg ethereum.CallMsg) map[string]any {
	arg := map[string]any{}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

// gethEth serves the helpers through ethclient. Lookups by block hash fall
// back to raw calls.
type gethEth struct {
	f   *Facade
	ec  *ethclient.Client
	raw rawEth
}

// observe runs fn under the facade's timeout and records it.
func (e *gethEth) observe(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := e.f.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	e.f.recorder.Observe(time.Since(start), err)
	return err
}

func (e *gethEth) BlockNumber(ctx context.Context) (n uint64, err error) {
	err = e.observe(ctx, func(ctx context.Context) error {
		n, err = e.ec.BlockNumber(ctx)
		return err
	})
	return n, err
}

func (e *gethEth) ChainID(ctx context.Context) (id *big.Int, err error) {
	err = e.observe(ctx, func(ctx context.Context) error {
		id, err = e.ec.ChainID(ctx)
		return err
	})
	return id, err
}

func (e *gethEth) Balance(ctx context.Context, account common.Address, block BlockID) (balance *big.Int, err error) {
	number, ok := blockNumberArg(block)
	if !ok {
		return e.raw.Balance(ctx, account, block)
	}
	err = e.observe(ctx, func(ctx context.Context) error {
		balance, err = e.ec.BalanceAt(ctx, account, number)
		return err
	})
	return balance, err
}

func (e *gethEth) Nonce(ctx context.Context, account common.Address, block BlockID) (nonce uint64, err error) {
	number, ok := blockNumberArg(block)
	if !ok {
		return e.raw.Nonce(ctx, account, block)
	}
	err = e.observe(ctx, func(ctx context.Context) error {
		nonce, err = e.ec.NonceAt(ctx, account, number)
		return err
	})
	return nonce, err
}

func (e *gethEth) GasPrice(ctx context.Context) (price *big.Int, err error) {
	err = e.observe(ctx, func(ctx context.Context) error {
		price, err = e.ec.SuggestGasPrice(ctx)
		return err
	})
	return price, err
}

func (e *gethEth) Call(ctx context.Context, msg ethereum.CallMsg, block BlockID) (out []byte, err error) {
	number, ok := blockNumberArg(block)
	if !ok {
		return e.raw.Call(ctx, msg, block)
	}
	err = e.observe(ctx, func(ctx context.Context) error {
		out, err = e.ec.CallContract(ctx, msg, number)
		return err
	})
	return out, err
}

// blockNumberArg maps an id onto ethclient's block argument, where nil is
// latest and negative numbers are the remaining tags. Hashes have no form.
func blockNumberArg(id BlockID) (*big.Int, bool) {
	switch {
	case id.IsHash():
		return nil, false
	case id.IsNumber():
		return new(big.Int).SetUint64(id.Uint64()), true
	}
	switch id.TagName() {
	case "pending":
		return big.NewInt(int64(gethrpc.PendingBlockNumber)), true
	case "earliest":
		return big.NewInt(int64(gethrpc.EarliestBlockNumber)), true
	case "safe":
		return big.NewInt(int64(gethrpc.SafeBlockNumber)), true
	case "finalized":
		return big.NewInt(int64(gethrpc.FinalizedBlockNumber)), true
	default:
		return nil, true
	}
}
