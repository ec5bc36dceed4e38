package google

import (
	"fmt"

	"budgetbuddy/internal/core"
)

// ReportSheetName is the tab a user's monthly report is written to.
func ReportSheetName(userID int64, year, month int) string {
	return fmt.Sprintf("%d-%02d u%d", year, month, userID)
}

// reportRows lays out a MonthlyStats as a block of rows: a summary, then
// one table per breakdown separated by a blank row. Amounts are written as
// strings so no precision is lost to spreadsheet floats.
func reportRows(s core.MonthlyStats) [][]any {
	rows := [][]any{
		{"Monthly report", fmt.Sprintf("%d-%02d", s.Year, s.Month)},
		{"Preferred currency", s.PreferredCurrency},
		{"Transactions", s.TotalTransactions},
		{"Total spent", s.TotalSpentThisMonth.String()},
		{"Total budget", s.TotalBudgetThisMonth.String()},
		{"Remaining budget", s.RemainingBudget.String()},
		{"Budget used %", s.BudgetUsagePercentage.String()},
	}
	if len(s.UnconvertedCurrencies) > 0 {
		row := []any{"Not converted"}
		for _, c := range s.UnconvertedCurrencies {
			row = append(row, c)
		}
		rows = append(rows, row)
	}

	rows = append(rows, []any{}, []any{"Category", "Spent", "Budget", "Used %", "Transactions"})
	for _, c := range s.ByCategory {
		rows = append(rows, []any{c.CategoryName, c.Spent.String(), c.Budget.String(), c.Percentage.String(), c.TransactionCount})
	}

	rows = append(rows, []any{}, []any{"Currency", "Amount", "In " + s.PreferredCurrency, "Converted"})
	for _, c := range s.ByCurrency {
		rows = append(rows, []any{c.Currency, c.Amount.String(), c.ConvertedToPreferred.String(), c.Converted})
	}

	rows = append(rows, []any{}, []any{"Day", "Amount", "Transactions"})
	for _, d := range s.DailySpending {
		rows = append(rows, []any{d.Date.Format("2006-01-02"), d.Amount.String(), d.TransactionCount})
	}
	return rows
}
