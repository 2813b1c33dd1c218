package client

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dmagro/eth-console/internal/rpc"
)

type idKind int

const (
	idTag idKind = iota
	idNumber
	idHash
)

// BlockID selects a block by tag, number or hash. The zero value is the
// latest block.
type BlockID struct {
	kind   idKind
	tag    string
	number uint64
	hash   common.Hash
}

func Latest() BlockID                     { return BlockID{tag: "latest"} }
func Tag(name string) BlockID             { return BlockID{tag: name} }
func Number(n uint64) BlockID             { return BlockID{kind: idNumber, number: n} }
func Hash(h common.Hash) BlockID          { return BlockID{kind: idHash, hash: h} }
func (id BlockID) IsHash() bool           { return id.kind == idHash }
func (id BlockID) IsNumber() bool         { return id.kind == idNumber }
func (id BlockID) Uint64() uint64         { return id.number }
func (id BlockID) BlockHash() common.Hash { return id.hash }

// TagName returns the symbolic name of a tag id, "latest" for the zero value.
func (id BlockID) TagName() string {
	if id.kind != idTag {
		return ""
	}
	if id.tag == "" {
		return "latest"
	}
	return id.tag
}

// Arg is the id in its JSON-RPC parameter form.
func (id BlockID) Arg() string {
	switch id.kind {
	case idNumber:
		return rpc.Uint64ToHex(id.number)
	case idHash:
		return id.hash.Hex()
	default:
		return id.TagName()
	}
}

func (id BlockID) String() string {
	if id.kind == idNumber {
		return strconv.FormatUint(id.number, 10)
	}
	return id.Arg()
}

// maxSafeInteger is the largest integer a JavaScript number holds exactly.
const maxSafeInteger = 1<<53 - 1

// ParseBlockID converts a user supplied value into a BlockID. nil means
// latest; integers (including integral floats) are block numbers; a 32-byte
// hex string is a hash; strings may also carry a tag or a decimal or hex
// number.
func ParseBlockID(v any) (BlockID, error) {
	switch x := v.(type) {
	case nil:
		return Latest(), nil
	case BlockID:
		return x, nil
	case common.Hash:
		return Hash(x), nil
	case int:
		return signedNumber(int64(x))
	case int32:
		return signedNumber(int64(x))
	case int64:
		return signedNumber(x)
	case uint:
		return Number(uint64(x)), nil
	case uint32:
		return Number(uint64(x)), nil
	case uint64:
		return Number(x), nil
	case float64:
		if x < 0 || x != math.Trunc(x) || x > maxSafeInteger {
			return BlockID{}, fmt.Errorf("invalid block number %v", x)
		}
		return Number(uint64(x)), nil
	case *big.Int:
		if x == nil || x.Sign() < 0 || !x.IsUint64() {
			return BlockID{}, fmt.Errorf("invalid block number %v", x)
		}
		return Number(x.Uint64()), nil
	case string:
		return parseBlockString(x)
	default:
		return BlockID{}, fmt.Errorf("unsupported block identifier of type %T", v)
	}
}

func signedNumber(n int64) (BlockID, error) {
	if n < 0 {
		return BlockID{}, fmt.Errorf("invalid block number %d", n)
	}
	return Number(uint64(n)), nil
}

func parseBlockString(s string) (BlockID, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if lower == "" {
		return Latest(), nil
	}
	for _, tag := range rpc.BlockTags {
		if lower == tag {
			return Tag(tag), nil
		}
	}
	if strings.HasPrefix(lower, "0x") {
		if len(lower) == 2+2*common.HashLength {
			if _, err := rpc.ParseHexBigInt(lower); err != nil {
				return BlockID{}, fmt.Errorf("invalid block hash %q", s)
			}
			return Hash(common.HexToHash(lower)), nil
		}
		n, err := rpc.ParseHexUint64(lower)
		if err != nil || lower == "0x" {
			return BlockID{}, fmt.Errorf("invalid block identifier %q", s)
		}
		return Number(n), nil
	}
	n, err := strconv.ParseUint(lower, 10, 64)
	if err != nil {
		return BlockID{}, fmt.Errorf("invalid block identifier %q", s)
	}
	return Number(n), nil
}

// Block is a decoded block record.
type Block struct {
	Number    uint64
	Hash      string
	Timestamp uint64
	// Fields is the full record with quantities converted to numbers.
	// Quantities above 2^53 are decimal strings.
	Fields map[string]any
}

// quantityFields are the hex-encoded integers of blocks and transactions.
var quantityFields = map[string]bool{
	"number":               true,
	"timestamp":            true,
	"gasLimit":             true,
	"gasUsed":              true,
	"size":                 true,
	"difficulty":           true,
	"totalDifficulty":      true,
	"baseFeePerGas":        true,
	"blobGasUsed":          true,
	"excessBlobGas":        true,
	"blockNumber":          true,
	"transactionIndex":     true,
	"gas":                  true,
	"gasPrice":             true,
	"maxFeePerGas":         true,
	"maxPriorityFeePerGas": true,
	"maxFeePerBlobGas":     true,
	"value":                true,
	"type":                 true,
	"chainId":              true,
	"index":                true,
	"validatorIndex":       true,
	"amount":               true,
}

// decodeBlock parses a block result. A null result yields nil.
func decodeBlock(raw json.RawMessage) (*Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid block: %w", err)
	}

	b := &Block{}
	if s, ok := fields["number"].(string); ok {
		n, err := rpc.ParseHexUint64(s)
		if err != nil {
			return nil, fmt.Errorf("invalid block number: %w", err)
		}
		b.Number = n
	}
	if s, ok := fields["timestamp"].(string); ok {
		ts, err := rpc.ParseHexUint64(s)
		if err != nil {
			return nil, fmt.Errorf("invalid block timestamp: %w", err)
		}
		b.Timestamp = ts
	}
	b.Hash, _ = fields["hash"].(string)
	b.Fields = normalizeRecord(fields)
	return b, nil
}

func normalizeRecord(m map[string]any) map[string]any {
	for k, v := range m {
		switch x := v.(type) {
		case string:
			if quantityFields[k] {
				m[k] = quantity(x)
			}
		case map[string]any:
			m[k] = normalizeRecord(x)
		case []any:
			for i, item := range x {
				if rec, ok := item.(map[string]any); ok {
					x[i] = normalizeRecord(rec)
				}
			}
		}
	}
	return m
}

// quantity converts a hex quantity to a number, a decimal string when it
// exceeds maxSafeInteger, or leaves s untouched when it is not hex.
func quantity(s string) any {
	n, err := rpc.ParseHexBigInt(s)
	if err != nil || !strings.HasPrefix(s, "0x") {
		return s
	}
	if n.IsUint64() && n.Uint64() <= maxSafeInteger {
		return n.Uint64()
	}
	return n.String()
}
