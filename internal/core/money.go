// Package core provides money parsing and handling utilities.
//
// Amounts are kept as arbitrary-precision decimals so that sums and
// round trips through the data file never pick up float noise.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount in an unspecified currency unit.
type Money struct {
	decimal.Decimal
}

// NewMoney builds a Money from a float, used mostly by tests and fixtures.
func NewMoney(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f)}
}

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The sign
// is preserved: deciding whether a value is acceptable is left to Validate.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,34") -> 12.34, nil
//	ParseMoney("-3")    -> -3, nil
//	ParseMoney("abc")   -> 0, ErrMalformedAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMalformedAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrMalformedAmount
	}
	return Money{Decimal: d}, nil
}

// MustParseMoney is like ParseMoney but panics on malformed input.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Validate() error {
	if m.Decimal.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Format renders the amount with exactly two decimal places.
func (m Money) Format() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON writes a bare JSON number rather than decimal's default quoted string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}
