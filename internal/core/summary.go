package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategorySpending is the spend of one category over a period.
// Spent is a raw sum in the transactions' own currencies.
type CategorySpending struct {
	CategoryID       int64           `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Color            string          `json:"color"`
	Spent            decimal.Decimal `json:"spent"`
	Budget           decimal.Decimal `json:"budget"`
	Percentage       decimal.Decimal `json:"percentage"`
	TransactionCount int             `json:"transaction_count"`
}

// CurrencySpending is the raw sum of one currency and its value in the
// preferred currency. Converted is false when the conversion failed, in which
// case ConvertedToPreferred repeats the raw amount.
type CurrencySpending struct {
	Currency             string          `json:"currency"`
	Amount               decimal.Decimal `json:"amount"`
	ConvertedToPreferred decimal.Decimal `json:"converted_to_preferred"`
	Converted            bool            `json:"converted"`
}

// DailySpending is a display-only series; amounts mix currencies.
type DailySpending struct {
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	TransactionCount int             `json:"transaction_count"`
}

// MonthlyStats is the aggregated view of a user's month.
type MonthlyStats struct {
	Year                  int                `json:"year"`
	Month                 int                `json:"month"`
	PreferredCurrency     string             `json:"preferred_currency"`
	TotalTransactions     int                `json:"total_transactions"`
	TotalSpentThisMonth   decimal.Decimal    `json:"total_spent_this_month"`
	TotalBudgetThisMonth  decimal.Decimal    `json:"total_budget_this_month"`
	RemainingBudget       decimal.Decimal    `json:"remaining_budget"`
	BudgetUsagePercentage decimal.Decimal    `json:"budget_usage_percentage"`
	ByCategory            []CategorySpending `json:"by_category"`
	ByCurrency            []CurrencySpending `json:"by_currency"`
	DailySpending         []DailySpending    `json:"daily_spending"`
	UnconvertedCurrencies []string           `json:"unconverted_currencies,omitempty"`
}

// Remaining returns budget minus spent; negative when over budget.
func (s MonthlyStats) Remaining() decimal.Decimal {
	return s.TotalBudgetThisMonth.Sub(s.TotalSpentThisMonth)
}

// UsagePercentage returns spent/budget*100, or zero without a budget.
func (s MonthlyStats) UsagePercentage() decimal.Decimal {
	return Percentage(s.TotalSpentThisMonth, s.TotalBudgetThisMonth)
}

// Derive refreshes the fields computed from the two totals.
func (s *MonthlyStats) Derive() {
	s.RemainingBudget = s.Remaining()
	s.BudgetUsagePercentage = s.UsagePercentage()
}
