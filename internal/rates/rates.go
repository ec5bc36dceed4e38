// Package rates provides exchange rate tables and a currency converter built
// on top of them.
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownCurrency is returned when a table has no rate for a code.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrRatesUnavailable wraps failures to obtain a rate table.
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
)

// Table holds reference rates expressed as units of each currency per one
// unit of Base. Base itself is always present with rate 1.
type Table struct {
	Base  string
	Date  time.Time
	Rates map[string]decimal.Decimal
}

// Source yields the current rate table.
type Source interface {
	Rates(ctx context.Context) (Table, error)
}

// Rate returns the rate for code relative to the table base.
func (t Table) Rate(code string) (decimal.Decimal, error) {
	if code == t.Base {
		return decimal.NewFromInt(1), nil
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return r, nil
}

// Convert crosses from and to through the base currency and rounds the
// result to cents.
func (t Table) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, err := t.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := t.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(fromRate).Mul(toRate).Round(2), nil
}

// Converter adapts a Source to the engine's converter contract.
type Converter struct {
	source Source
}

func NewConverter(source Source) *Converter {
	return &Converter{source: source}
}

// NewStaticConverter converts with a fixed table.
func NewStaticConverter(table Table) *Converter {
	return &Converter{source: staticSource{table: table}}
}

func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	table, err := c.source.Rates(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	return table.Convert(amount, from, to)
}

type staticSource struct {
	table Table
}

func (s staticSource) Rates(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	return s.table, nil
}

// DefaultTable is a fixed EUR based table used when no remote source is
// configured. Values are indicative only.
func DefaultTable() Table {
	return Table{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("1.08"),
			"GBP": decimal.RequireFromString("0.85"),
			"CHF": decimal.RequireFromString("0.95"),
			"JPY": decimal.RequireFromString("162.50"),
			"CAD": decimal.RequireFromString("1.47"),
			"XOF": decimal.RequireFromString("655.957"),
			"MAD": decimal.RequireFromString("10.90"),
		},
	}
}
