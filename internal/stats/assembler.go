package stats

import (
	"context"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
)

// Assemble runs the currency, category and daily aggregations over the same
// transaction slice and merges them with the budget totals.
//
// TotalSpentThisMonth is the converted currency total, the only figure that
// is safe to add across currencies. Budgets are taken to be expressed in the
// preferred currency already.
func Assemble(ctx context.Context, categories []core.Category, transactions []core.Transaction, preferred string, converter Converter, opts Options) (core.MonthlyStats, error) {
	byCurrency, err := AggregateCurrencies(ctx, transactions, preferred, converter, opts)
	if err != nil {
		return core.MonthlyStats{}, err
	}

	totalBudget := decimal.Zero
	for _, c := range categories {
		totalBudget = totalBudget.Add(c.MonthlyBudget)
	}

	stats := core.MonthlyStats{
		PreferredCurrency:     preferred,
		TotalTransactions:     len(transactions),
		TotalSpentThisMonth:   byCurrency.TotalConverted,
		TotalBudgetThisMonth:  totalBudget,
		ByCategory:            AggregateCategories(categories, transactions),
		ByCurrency:            byCurrency.ByCurrency,
		DailySpending:         BucketizeDaily(transactions),
		UnconvertedCurrencies: byCurrency.Unconverted,
	}
	stats.Derive()
	return stats, nil
}
