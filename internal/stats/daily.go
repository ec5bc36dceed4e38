package stats

import (
	"sort"
	"time"

	"budgetbuddy/internal/core"
)

// BucketizeDaily groups transactions by UTC calendar day in ascending order.
// Days without transactions are omitted. Amounts mix currencies and are meant
// for charts only.
func BucketizeDaily(transactions []core.Transaction) []core.DailySpending {
	buckets := make(map[time.Time]*core.DailySpending)
	for _, tx := range transactions {
		t := tx.TransactionDate.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[day]
		if !ok {
			buckets[day] = &core.DailySpending{Date: day, Amount: tx.Amount, TransactionCount: 1}
			continue
		}
		b.Amount = b.Amount.Add(tx.Amount)
		b.TransactionCount++
	}

	out := make([]core.DailySpending, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
