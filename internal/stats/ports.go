// Package stats computes the monthly financial summary of a user: spend per
// category, per currency (converted into the preferred currency) and per day.
//
// The aggregators are pure functions over read-only snapshots. Only currency
// conversion may block, and it is issued at most once per distinct currency.
package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
)

// Converter turns an amount in one currency into another. Implementations may
// fail per call; the aggregation treats a failure as local to one currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)

func (f ConverterFunc) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return f(ctx, amount, from, to)
}

// RecordStore is the read side of the record store used by the engine.
type RecordStore interface {
	FetchCategories(ctx context.Context, userID int64) ([]core.Category, error)
	FetchTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
	PreferredCurrency(ctx context.Context, userID int64) (string, error)
}
