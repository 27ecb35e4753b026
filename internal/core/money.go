package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Money is an amount in Singapore cents.
type Money struct {
	Cents int64
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// ParseAmount converts a spreadsheet cell into cents, rounding half away
// from zero on the third decimal. Thousands separators and a leading "$"
// are accepted; "-", "na" and "n.a." stand for a nil value and parse as
// zero. Negative amounts are rejected.
//
//	ParseAmount("1,234.5") -> 123450
//	ParseAmount("$12.345") -> 1235
//	ParseAmount("-")       -> 0
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "-", "na", "n.a.", "n.a":
		return Money{}, nil
	case "":
		return Money{}, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}, nil
}
