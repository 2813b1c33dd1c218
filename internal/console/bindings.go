package console

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dmagro/eth-console/internal/client"
	"github.com/dmagro/eth-console/internal/consistency"
	"github.com/dmagro/eth-console/internal/format"
	"github.com/dmagro/eth-console/internal/rpc"
)

// maxSafeInteger is the largest integer the evaluator's numbers hold exactly.
const maxSafeInteger = 1<<53 - 1

// Bindings returns the names exposed in the shell. ctx supplies the context
// of the running expression to every call.
func (s *Session) Bindings(ctx func() context.Context) map[string]any {
	primary := s.Primary()
	eth := primary.Eth()

	bindings := map[string]any{
		"client": facadeObject(primary, ctx),
		"eth": map[string]any{
			"getBlock": getBlock(primary, ctx),
			"blockNumber": func() (uint64, error) {
				return eth.BlockNumber(ctx())
			},
			"chainId": func() (any, error) {
				id, err := eth.ChainID(ctx())
				if err != nil {
					return nil, err
				}
				return bigValue(id), nil
			},
			"getBalance": func(address string, block any) (string, error) {
				account, id, err := accountArgs(address, block)
				if err != nil {
					return "", err
				}
				balance, err := eth.Balance(ctx(), account, id)
				if err != nil {
					return "", err
				}
				return balance.String(), nil
			},
			"getTransactionCount": func(address string, block any) (uint64, error) {
				account, id, err := accountArgs(address, block)
				if err != nil {
					return 0, err
				}
				return eth.Nonce(ctx(), account, id)
			},
			"gasPrice": func() (string, error) {
				price, err := eth.GasPrice(ctx())
				if err != nil {
					return "", err
				}
				return price.String(), nil
			},
			"tokenBalance": func(token, holder string, decimals int, symbol string) (string, error) {
				if err := rpc.ValidateAddress(token); err != nil {
					return "", err
				}
				data, err := rpc.EncodeBalanceOfCalldata(holder)
				if err != nil {
					return "", err
				}
				to := common.HexToAddress(token)
				out, err := eth.Call(ctx(), ethereum.CallMsg{To: &to, Data: data}, client.Latest())
				if err != nil {
					return "", err
				}
				raw, err := rpc.DecodeUint256(out)
				if err != nil {
					return "", err
				}
				return rpc.FormatTokenAmount(raw, decimals, symbol), nil
			},
		},
		"web3": map[string]any{
			"clientVersion": func() (any, error) {
				return primary.Send(ctx(), "web3_clientVersion")
			},
			"sha3": keccak,
		},
		"rpc": map[string]any{
			"modules": func() (any, error) {
				return primary.Send(ctx(), "rpc_modules")
			},
		},
		"util": map[string]any{
			"formatNumber": format.FormatNumber,
			"formatGwei": func(wei any) (string, error) {
				n, err := parseBig(wei)
				if err != nil {
					return "", err
				}
				return format.FormatGwei(n), nil
			},
			"formatUnits": func(value any, decimals int) (string, error) {
				n, err := parseBig(value)
				if err != nil {
					return "", err
				}
				return rpc.FormatTokenAmount(n, decimals, ""), nil
			},
			"toHex": func(value any) (string, error) {
				n, err := parseBig(value)
				if err != nil {
					return "", err
				}
				return hexutil.EncodeBig(n), nil
			},
			"fromHex": func(s string) (any, error) {
				n, err := rpc.ParseHexBigInt(s)
				if err != nil {
					return nil, err
				}
				return bigValue(n), nil
			},
			"selector": func(signature string) string {
				return hexutil.Encode(rpc.FunctionSelector(signature))
			},
			"keccak256": keccak,
		},
	}

	libraries := make(map[string]any, len(s.facades))
	for _, f := range s.facades {
		bindings[f.Name()] = facadeObject(f, ctx)
		libraries[f.Name()] = f.Version()
	}
	bindings["libraries"] = libraries
	bindings["compare"] = func() map[string]any {
		return reportObject(consistency.Compare(ctx(), s.facades))
	}
	return bindings
}

func reportObject(r *consistency.Report) map[string]any {
	errs := make(map[string]any, len(r.Errors))
	for name, err := range r.Errors {
		errs[name] = err.Error()
	}
	issues := make([]any, len(r.Issues))
	for i, issue := range r.Issues {
		issues[i] = issue
	}
	heights := make(map[string]any, len(r.Heights))
	for name, h := range r.Heights {
		heights[name] = h
	}
	hashes := make(map[string]any, len(r.Hashes))
	for name, h := range r.Hashes {
		hashes[name] = h
	}
	return map[string]any{
		"consistent":      r.Consistent,
		"referenceHeight": r.ReferenceHeight,
		"heights":         heights,
		"hashes":          hashes,
		"errors":          errs,
		"issues":          issues,
	}
}

// facadeObject is the script view of one client library.
func facadeObject(f *client.Facade, ctx func() context.Context) map[string]any {
	return map[string]any{
		"library":  f.Name(),
		"version":  f.Version(),
		"getBlock": getBlock(f, ctx),
		// send(method, params?) takes the params as one array.
		"send": func(method string, params []any) (any, error) {
			return f.Send(ctx(), method, params...)
		},
		"request": func(req map[string]any) (any, error) {
			r, err := requestArg(req)
			if err != nil {
				return nil, err
			}
			return f.Request(ctx(), r)
		},
		"stats": func() map[string]any {
			st := f.Stats()
			return map[string]any{
				"calls":    st.Calls,
				"failures": st.Failures,
				"p50":      st.Latency.P50.String(),
				"p95":      st.Latency.P95.String(),
				"p99":      st.Latency.P99.String(),
				"max":      st.Latency.Max.String(),
			}
		},
	}
}

// getBlock returns getBlock(id, full) for f. A block the node does not know
// is null.
func getBlock(f *client.Facade, ctx func() context.Context) func(id any, fullTx bool) (any, error) {
	return func(id any, fullTx bool) (any, error) {
		bid, err := client.ParseBlockID(id)
		if err != nil {
			return nil, err
		}
		block, err := f.GetBlock(ctx(), bid, fullTx)
		if err != nil || block == nil {
			return nil, err
		}
		return block.Fields, nil
	}
}

func requestArg(req map[string]any) (client.Request, error) {
	method, _ := req["method"].(string)
	r := client.Request{Method: method}
	switch params := req["params"].(type) {
	case nil:
	case []any:
		r.Params = params
	default:
		return r, fmt.Errorf("request: params must be an array, got %T", params)
	}
	return r, nil
}

func accountArgs(address string, block any) (common.Address, client.BlockID, error) {
	if err := rpc.ValidateAddress(address); err != nil {
		return common.Address{}, client.BlockID{}, err
	}
	id, err := client.ParseBlockID(block)
	if err != nil {
		return common.Address{}, client.BlockID{}, err
	}
	return common.HexToAddress(address), id, nil
}

// keccak hashes hex input as bytes and anything else as text.
func keccak(data string) string {
	if b, err := hexutil.Decode(data); err == nil {
		return crypto.Keccak256Hash(b).Hex()
	}
	return crypto.Keccak256Hash([]byte(data)).Hex()
}

// bigValue returns n as a number when the evaluator can hold it exactly,
// otherwise as a decimal string.
func bigValue(n *big.Int) any {
	if n.IsUint64() && n.Uint64() <= maxSafeInteger {
		return n.Uint64()
	}
	return n.String()
}

// parseBig accepts numbers, decimal strings and 0x hex strings.
func parseBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case int64:
		return big.NewInt(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("not an integer: %v", n)
		}
		b, _ := big.NewFloat(n).Int(nil)
		return b, nil
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return rpc.ParseHexBigInt(s)
		}
		b, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", n)
		}
		return b, nil
	case nil:
		return nil, fmt.Errorf("missing number")
	}
	return nil, fmt.Errorf("unsupported number type %T", v)
}
