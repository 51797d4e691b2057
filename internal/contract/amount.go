package contract

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// FormatAmount renders base units as a decimal string in token units.
func FormatAmount(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// ParseAmount converts a decimal string in token units to base units. It
// rejects negative values and values finer than the token's precision.
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("contract: parse amount %q: %w", s, domain.ErrInvalidInput)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("contract: negative amount %q: %w", s, domain.ErrInvalidInput)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("contract: amount %q exceeds %d decimals: %w", s, decimals, domain.ErrInvalidInput)
	}
	return scaled.BigInt(), nil
}
