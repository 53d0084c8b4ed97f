// Package money converts between human decimal amounts ("1.25 ETH") and the
// int64 base units the engine works in. Conversion is exact: an amount with
// more fractional digits than the currency supports is rejected, never
// rounded.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds Currency.Decimals so that one whole unit fits in int64.
const MaxDecimals = 18

// ErrInvalidAmount is returned for unparsable, negative, too precise or out of
// range amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Currency describes how base units are displayed.
type Currency struct {
	Symbol   string // e.g. "ETH"; optional
	Decimals int32  // base units per whole unit = 10^Decimals
}

// Default is used when no configuration overrides it.
var Default = Currency{Symbol: "ETH", Decimals: 6}

// Validate checks the currency definition.
func (c Currency) Validate() error {
	if c.Decimals < 0 || c.Decimals > MaxDecimals {
		return fmt.Errorf("currency decimals must be within [0, %d], got %d", MaxDecimals, c.Decimals)
	}
	return nil
}

// Parse converts s to base units. s may carry the currency symbol as a
// prefix or suffix ("1.5 ETH", "ETH 1.5").
func (c Currency) Parse(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if c.Symbol != "" {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, c.Symbol))
		raw = strings.TrimSpace(strings.TrimPrefix(raw, c.Symbol))
	}
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}

	units := d.Shift(c.Decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, c.Decimals)
	}
	bi := units.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	return bi.Int64(), nil
}

// Decimal returns units as a decimal number of whole currency units.
func (c Currency) Decimal(units int64) decimal.Decimal {
	return decimal.New(units, -c.Decimals)
}

// Format renders units with exactly Decimals fractional digits and the
// symbol, e.g. "1.500000 ETH".
func (c Currency) Format(units int64) string {
	s := c.Decimal(units).StringFixed(c.Decimals)
	if c.Symbol == "" {
		return s
	}
	return s + " " + c.Symbol
}
