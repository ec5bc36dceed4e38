package stats

import (
	"context"
	"fmt"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/metrics"
)

// Service is the entry point of the engine: it fetches a user's categories
// and transactions for one period and assembles the monthly stats.
type Service struct {
	store           RecordStore
	converter       Converter
	opts            Options
	defaultCurrency string
	logger          *log.Logger
}

// NewService wires the engine. A nil logger discards output.
func NewService(store RecordStore, converter Converter, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStats)
	opts.Logger = logger
	return &Service{
		store:           store,
		converter:       converter,
		opts:            opts,
		defaultCurrency: core.DefaultCurrency,
		logger:          logger,
	}
}

// GetMonthlyStats validates the request, fetches the period's snapshot and
// assembles it. Validation errors are returned before any fetch.
func (s *Service) GetMonthlyStats(ctx context.Context, userID int64, period core.Period, preferred string) (core.MonthlyStats, error) {
	if err := period.Validate(); err != nil {
		return core.MonthlyStats{}, err
	}
	preferred, err := core.NormalizeCurrency(preferred)
	if err != nil {
		return core.MonthlyStats{}, err
	}

	start := time.Now()
	fields := log.NewFields().WithPeriod(userID, period.Year, period.Month)

	categories, err := s.store.FetchCategories(ctx, userID)
	if err != nil {
		return core.MonthlyStats{}, fmt.Errorf("fetch categories: %w", err)
	}
	transactions, err := s.store.FetchTransactions(ctx, userID, period.Year, period.Month)
	if err != nil {
		return core.MonthlyStats{}, fmt.Errorf("fetch transactions: %w", err)
	}

	stats, err := Assemble(ctx, categories, transactions, preferred, s.converter, s.opts)
	if err != nil {
		s.logger.LogError(ctx, "Monthly stats aborted", err, log.OpAggregate, fields)
		return core.MonthlyStats{}, fmt.Errorf("assemble stats: %w", err)
	}
	stats.Year = period.Year
	stats.Month = period.Month

	elapsed := time.Since(start)
	metrics.ObserveStatsDuration(elapsed)

	s.logger.InfoContext(ctx, "Monthly stats generated", append(fields.ToSlice(),
		log.FieldCurrency, preferred,
		log.FieldTransactions, stats.TotalTransactions,
		"categories", len(stats.ByCategory),
		"currencies", len(stats.ByCurrency),
		"unconverted", len(stats.UnconvertedCurrencies),
		log.FieldDuration, elapsed.Milliseconds())...)

	return stats, nil
}

// PreferredCurrency resolves the currency a user's totals are normalized
// into, falling back to the default when none is stored.
func (s *Service) PreferredCurrency(ctx context.Context, userID int64) (string, error) {
	code, err := s.store.PreferredCurrency(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("preferred currency: %w", err)
	}
	if code == "" {
		return s.defaultCurrency, nil
	}
	return code, nil
}

// SetDefaultCurrency overrides the fallback preferred currency.
func (s *Service) SetDefaultCurrency(code string) {
	if core.ValidCurrency(code) {
		s.defaultCurrency = code
	}
}
