// Package money holds the fixed-point rules for monetary amounts. Every
// balance and transaction amount carries two fractional digits and is
// computed with shopspring/decimal, never binary floating point.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for currency amounts.
const Scale = 2

// ErrPrecision indicates an amount with more fractional digits than Scale.
var ErrPrecision = errors.New("amount exceeds currency precision")

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Parse reads a decimal string and rejects values finer than Scale.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if err := CheckScale(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// CheckScale returns ErrPrecision when d cannot be represented exactly with
// Scale fractional digits.
func CheckScale(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return ErrPrecision
	}
	return nil
}

// Within reports whether min <= d <= max.
func Within(d, min, max decimal.Decimal) bool {
	return d.GreaterThanOrEqual(min) && d.LessThanOrEqual(max)
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
