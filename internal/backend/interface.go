package backend

import (
	"context"
	"time"

	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/rates"
	"budgetbuddy/internal/services"
	"budgetbuddy/internal/stats"
)

// Repository is everything the application needs from a record store.
type Repository interface {
	stats.RecordStore
	services.AccountStore
	services.CategoryStore
	services.TransactionStore
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the record store, the currency converter and the
// function that releases them.
type BackendResult struct {
	Repository Repository
	Converter  *rates.Converter
	// RatesCache is nil when rates come from the built-in table.
	RatesCache *cache.LRUCache[rates.Table]
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// RatesURL is an ECB style XML feed, or config.RatesStatic for the
	// built-in table.
	RatesURL string
	RatesTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
