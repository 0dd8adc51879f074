// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals kept at cent precision. Parsing accepts
// both dot and comma separators and rounds half-up to the cent.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const centPlaces = 2

var maxAmount = decimal.New(1, 12)

// ParseAmount converts a decimal string to an amount with cent precision.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Returns an error for invalid
// formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("12.344") -> 12.34, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			// Signs and exponents are rejected along with everything else
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(centPlaces)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount requires a positive amount with at most two decimals.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(centPlaces)) {
		return ErrInvalidAmount
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// SplitEven divides amount into n parts at cent precision. Parts differ by
// at most one cent, the first ones take the remainder, and they always sum
// to amount.
func SplitEven(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	cents := amount.Shift(centPlaces).Round(0).IntPart()
	base := cents / int64(n)
	rem := cents % int64(n)
	parts := make([]decimal.Decimal, n)
	for i := range parts {
		c := base
		if int64(i) < rem {
			c++
		} else if rem < 0 && int64(i) < -rem {
			c--
		}
		parts[i] = decimal.New(c, -centPlaces)
	}
	return parts
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(centPlaces)
}
