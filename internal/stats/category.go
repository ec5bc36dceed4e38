package stats

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
)

// AggregateCategories returns one entry per category, ordered by name
// (case-insensitive, stable), including categories without transactions.
//
// Spent is the raw sum of the category's transactions regardless of their
// currency. Uncategorized transactions, and transactions pointing at a
// category that is not in categories, are left out of every bucket.
func AggregateCategories(categories []core.Category, transactions []core.Transaction) []core.CategorySpending {
	out := make([]core.CategorySpending, len(categories))
	index := make(map[int64]int, len(categories))
	for i, c := range categories {
		index[c.ID] = i
		out[i] = core.CategorySpending{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Color:        c.Color,
			Spent:        decimal.Zero,
			Budget:       c.MonthlyBudget,
		}
	}

	for _, tx := range transactions {
		if tx.CategoryID == nil {
			continue
		}
		i, ok := index[*tx.CategoryID]
		if !ok {
			continue
		}
		out[i].Spent = out[i].Spent.Add(tx.Amount)
		out[i].TransactionCount++
	}

	for i := range out {
		out[i].Percentage = core.Percentage(out[i].Spent, out[i].Budget)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return strings.ToLower(out[a].CategoryName) < strings.ToLower(out[b].CategoryName)
	})
	return out
}
