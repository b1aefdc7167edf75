// Package core provides the household settlement domain: money handling,
// the entities that feed a monthly settlement and the settlement calculator.
//
// This file contains the money helpers: rounding to cents, exact parsing of
// user-entered amounts and conversion between euros and stored cents.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a euro amount. Values leaving the calculator are always rounded
// to two decimal places.
type Money = float64

// MaxAmount bounds the magnitude of every entered or stored amount, balances
// included. Larger values would overflow int64 cents.
const MaxAmount Money = 1e12

// noCentsAbove is where float64 can no longer hold a fractional cent, so
// rounding is the identity and value*100 must not be computed.
const noCentsAbove = 1e15

// RoundMoney rounds a monetary value to 2 decimal places.
//
// Ties round away from zero (math.Round), never to even. Non-finite values
// (NaN, +Inf, -Inf) become 0 so a single corrupt input cannot turn a whole
// settlement into NaN.
//
// Examples:
//
//	RoundMoney(1.234) -> 1.23
//	RoundMoney(1.235) -> 1.24
//	RoundMoney(-1.235) -> -1.24
//	RoundMoney(math.NaN()) -> 0
func RoundMoney(value float64) Money {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if math.Abs(value) >= noCentsAbove {
		return value
	}
	return math.Round(value*100) / 100
}

// InRange reports whether m is finite and no larger than MaxAmount in
// magnitude.
func InRange(m Money) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0) && math.Abs(m) <= MaxAmount
}

// ToCents converts a euro amount to integer cents for storage. Values
// outside InRange are refused with ErrInvalidAmount.
func ToCents(m Money) (int64, error) {
	if !InRange(m) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(m * 100)), nil
}

// FromCents converts stored cents back to euros. For any rounded amount r,
// FromCents(ToCents(r)) == r, which keeps stored balances drift-free.
func FromCents(cents int64) Money {
	return float64(cents) / 100
}

var maxAmountDecimal = decimal.NewFromFloat(MaxAmount)

// ParseAmount parses a user-entered non-negative amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The
// value is parsed exactly and rounded half-up to cents before it is turned
// into a float, so "0.105" becomes 0.11 rather than whatever the binary
// representation would suggest.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() || d.GreaterThan(maxAmountDecimal) {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Round(2).Float64()
	return f, nil
}

// ParseSignedAmount is ParseAmount for balances, which may be negative.
func ParseSignedAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg || strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if neg {
		return -v, nil
	}
	return v, nil
}

// FormatEuros formats an amount as a euro string with a decimal comma (e.g. "€12,34").
// Amounts outside InRange are printed without grouping from their decimal form.
func FormatEuros(m Money) string {
	cents, err := ToCents(m)
	if err != nil {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return "€0,00"
		}
		s := strings.Replace(decimal.NewFromFloat(m).StringFixed(2), ".", ",", 1)
		if strings.HasPrefix(s, "-") {
			return "-€" + s[1:]
		}
		return "€" + s
	}
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," + twoDigits(cents%100)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
