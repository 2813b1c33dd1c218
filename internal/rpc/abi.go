package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// FunctionSelector computes the 4-byte function selector from a signature,
// e.g. "balanceOf(address)" -> 0x70a08231.
func FunctionSelector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// EncodeAddress left-pads an address to a 32-byte ABI word.
func EncodeAddress(addr string) ([]byte, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	return common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32), nil
}

// EncodeBalanceOfCalldata creates the calldata for ERC-20 balanceOf(address).
func EncodeBalanceOfCalldata(holder string) ([]byte, error) {
	word, err := EncodeAddress(holder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode address: %w", err)
	}
	return append(FunctionSelector("balanceOf(address)"), word...), nil
}

// DecodeUint256 parses a 32-byte ABI word (or any shorter big-endian value).
func DecodeUint256(word []byte) (*big.Int, error) {
	if len(word) > 32 {
		return nil, fmt.Errorf("uint256 word too long: %d bytes", len(word))
	}
	return new(big.Int).SetBytes(word), nil
}

// FormatTokenAmount renders a raw token amount with the given decimals, e.g.
// 1234567890123 with 6 decimals -> "1,234,567.890123 USDC". The symbol is
// omitted when empty.
func FormatTokenAmount(raw *big.Int, decimals int, symbol string) string {
	suffix := ""
	if symbol != "" {
		suffix = " " + symbol
	}
	if decimals <= 0 {
		if raw == nil {
			return "0" + suffix
		}
		return addThousandSeparators(raw.String()) + suffix
	}
	if raw == nil || raw.Sign() == 0 {
		return fmt.Sprintf("0.%s%s", strings.Repeat("0", decimals), suffix)
	}

	sign := ""
	digits := raw.String()
	if raw.Sign() < 0 {
		sign, digits = "-", digits[1:]
	}
	for len(digits) <= decimals {
		digits = "0" + digits
	}
	cut := len(digits) - decimals
	return fmt.Sprintf("%s%s.%s%s", sign, addThousandSeparators(digits[:cut]), digits[cut:], suffix)
}

func addThousandSeparators(s string) string {
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// ValidateAddress checks that addr is 20 bytes of hex, with or without 0x.
func ValidateAddress(addr string) error {
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid address %q: expected 40 hex chars (with or without 0x prefix)", addr)
	}
	return nil
}
