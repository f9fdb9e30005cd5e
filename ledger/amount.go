package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultDecimals = 18

const (
	// MaxAmountBits is the width of the ledger's amount type (uint256).
	MaxAmountBits = 256
	// maxAmountExponent bounds the decimal exponent accepted before
	// scaling; anything beyond it cannot fit MaxAmountBits.
	maxAmountExponent = 100
)

var (
	ErrAmountSyntax    = errors.New("amount is not a number")
	ErrAmountPositive  = errors.New("amount must be positive")
	ErrAmountPrecision = errors.New("amount has too many decimal places")
	ErrAmountRange     = errors.New("amount exceeds the ledger maximum")
)

// ParseAmount converts a human amount such as "1.5" into base units.
// It never rounds.
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrAmountSyntax, s)
	}
	if !d.IsPositive() {
		return nil, ErrAmountPositive
	}
	switch exp := d.Exponent(); {
	case exp > maxAmountExponent:
		return nil, fmt.Errorf("%w: %q", ErrAmountRange, s)
	case exp < -maxAmountExponent:
		return nil, fmt.Errorf("%w: %q allows %d", ErrAmountPrecision, s, decimals)
	}
	// 10^78 already exceeds 2^256.
	if int64(d.NumDigits())+int64(d.Exponent()) > 78 {
		return nil, fmt.Errorf("%w: %q", ErrAmountRange, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q allows %d", ErrAmountPrecision, s, decimals)
	}
	v := scaled.BigInt()
	if v.BitLen() > MaxAmountBits {
		return nil, fmt.Errorf("%w: %q", ErrAmountRange, s)
	}
	return v, nil
}

// FormatAmount renders base units in human units, always with a
// fractional part ("1.0", "0.25").
func FormatAmount(v *big.Int, decimals int32) string {
	if v == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(v, -decimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
