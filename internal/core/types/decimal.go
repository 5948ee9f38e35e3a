// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyPlaces is the scale every derived monetary field is rounded to.
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round rounds half away from zero to two places.
func Round(m Money) Money {
	return m.Round(MoneyPlaces)
}

// Times multiplies a unit amount by an integer quantity.
func Times(unit Money, qty int) Money {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// Percent returns base * pct / 100.
func Percent(base, pct Money) Money {
	return base.Mul(pct).Div(hundred)
}

// Ratio returns part / whole * 100, or zero when whole is zero.
func Ratio(part, whole Money) Money {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// NonNegative floors m at zero.
func NonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}
