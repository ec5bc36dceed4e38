// Package services holds the use cases that sit between the HTTP surface,
// the record store and the export pipeline.
package services

import (
	"context"

	"budgetbuddy/internal/core"
)

// AccountStore is what account setup needs from the record store.
type AccountStore interface {
	EnsureUser(ctx context.Context, userID int64) error
	CountCategories(ctx context.Context, userID int64) (int, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	SetPreferredCurrency(ctx context.Context, userID int64, code string) error
}

// CategoryStore is what category management needs from the record store.
// Update and delete return core.ErrNotFound for categories the user does
// not own.
type CategoryStore interface {
	FetchCategories(ctx context.Context, userID int64) ([]core.Category, error)
	FetchTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error
}

// TransactionStore is what the transaction use cases need from the record store.
type TransactionStore interface {
	EnsureUser(ctx context.Context, userID int64) error
	CategoryExists(ctx context.Context, userID, categoryID int64) (bool, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	FetchTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

// StatsSource produces a user's monthly stats.
type StatsSource interface {
	GetMonthlyStats(ctx context.Context, userID int64, period core.Period, preferred string) (core.MonthlyStats, error)
	PreferredCurrency(ctx context.Context, userID int64) (string, error)
}
