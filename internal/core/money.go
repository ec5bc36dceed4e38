// Package core provides the domain model of budgetbuddy.
//
// This file contains helpers for parsing and bounding monetary amounts.
// All amounts are exact decimals; floating point is only used by callers
// that need to render a value.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	minTransactionAmount = decimal.RequireFromString("0.01")
	maxTransactionAmount = decimal.NewFromInt(1_000_000)

	hundred = decimal.NewFromInt(100)
)

// ParseAmount converts a user supplied decimal string into an exact amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// The value must lie between 0.01 and 1 000 000 inclusive.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks the accepted transaction amount range.
func ValidateAmount(d decimal.Decimal) error {
	if d.LessThan(minTransactionAmount) || d.GreaterThan(maxTransactionAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Percentage returns part/whole*100 rounded half-up to two decimals.
// A zero (or negative) whole yields zero instead of dividing.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}
