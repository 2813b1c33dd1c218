package rpc

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseHexUint64 converts a hex quantity (with or without 0x) to uint64.
// The empty string is zero.
func ParseHexUint64(hex string) (uint64, error) {
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if hex == "" {
		return 0, nil
	}
	val, ok := new(big.Int).SetString(hex, 16)
	if !ok || !val.IsUint64() {
		return 0, fmt.Errorf("invalid hex: %s", hex)
	}
	return val.Uint64(), nil
}

// ParseHexBigInt converts a hex quantity that may exceed 64 bits.
func ParseHexBigInt(hex string) (*big.Int, error) {
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if hex == "" {
		return big.NewInt(0), nil
	}
	val, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex: %s", hex)
	}
	return val, nil
}

// Uint64ToHex converts n to a 0x-prefixed quantity.
func Uint64ToHex(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

// BlockTags are the symbolic block numbers nodes accept.
var BlockTags = []string{"latest", "pending", "earliest", "safe", "finalized"}
