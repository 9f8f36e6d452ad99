// Package money fixes every amount in the system to two decimal places.
// Amounts are decimal.Decimal end to end; floats never cross a boundary, so
// the ledger chain cannot accumulate rounding drift.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Normalize clamps an amount to 2 decimal places (half-up, matching how the
// gateway formats capture amounts).
func Normalize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// FromString parses a 2-decimal amount from its string form.
func FromString(value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid money amount %q: %w", value, err)
	}
	return Normalize(parsed), nil
}

// Format renders an amount with exactly two decimal places.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(amount decimal.Decimal) bool {
	return amount.GreaterThan(decimal.Zero)
}
