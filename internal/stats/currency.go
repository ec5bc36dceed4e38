package stats

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/metrics"
)

const defaultMaxConcurrentConversions = 4

// ErrNoConverter is reported for groups that need a conversion when no
// converter is configured.
var ErrNoConverter = errors.New("no currency converter configured")

// Options tunes the aggregation. The zero value is usable.
type Options struct {
	// MaxConcurrentConversions bounds in-flight converter calls.
	MaxConcurrentConversions int
	// ConversionTimeout bounds a single converter call. Zero means no limit
	// beyond the caller's context.
	ConversionTimeout time.Duration
	Logger            *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Discard()
}

func (o Options) limit() int {
	if o.MaxConcurrentConversions > 0 {
		return o.MaxConcurrentConversions
	}
	return defaultMaxConcurrentConversions
}

// CurrencyResult is the outcome of AggregateCurrencies.
type CurrencyResult struct {
	ByCurrency []core.CurrencySpending
	// TotalConverted sums only the groups that converted successfully.
	TotalConverted decimal.Decimal
	// Unconverted lists the currency codes whose conversion failed.
	Unconverted []string
}

// AggregateCurrencies groups transactions by currency code, sums each group
// exactly and converts every group total into preferred.
//
// The converter is called once per distinct currency other than preferred,
// concurrently. A failed conversion keeps the group with its raw amount and
// Converted=false and leaves it out of TotalConverted. If ctx ends before all
// conversions finish, the context error is returned and no result is produced.
func AggregateCurrencies(ctx context.Context, transactions []core.Transaction, preferred string, converter Converter, opts Options) (CurrencyResult, error) {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		sum, ok := sums[tx.Currency]
		if !ok {
			sum = decimal.Zero
		}
		sums[tx.Currency] = sum.Add(tx.Amount)
	}

	codes := make([]string, 0, len(sums))
	for code := range sums {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	logger := opts.logger()
	entries := make([]core.CurrencySpending, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.limit())

	for i, code := range codes {
		raw := sums[code]

		if code == preferred {
			entries[i] = core.CurrencySpending{Currency: code, Amount: raw, ConvertedToPreferred: raw, Converted: true}
			metrics.ObserveConversion(metrics.OutcomeIdentity)
			continue
		}

		g.Go(func() error {
			converted, err := convertOne(gctx, converter, raw, code, preferred, opts.ConversionTimeout)
			if err != nil {
				// The caller gave up: abort everything.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.WarnContext(ctx, "Currency conversion failed, keeping raw amount",
					log.NewFields().WithConversion(code, preferred, raw.String()).WithError(err).ToSlice()...)
				metrics.ObserveConversion(metrics.OutcomeFailed)
				entries[i] = core.CurrencySpending{Currency: code, Amount: raw, ConvertedToPreferred: raw, Converted: false}
				return nil
			}
			metrics.ObserveConversion(metrics.OutcomeConverted)
			entries[i] = core.CurrencySpending{Currency: code, Amount: raw, ConvertedToPreferred: converted, Converted: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return CurrencyResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return CurrencyResult{}, err
	}

	result := CurrencyResult{ByCurrency: entries, TotalConverted: decimal.Zero}
	for _, e := range entries {
		if !e.Converted {
			result.Unconverted = append(result.Unconverted, e.Currency)
			continue
		}
		result.TotalConverted = result.TotalConverted.Add(e.ConvertedToPreferred)
	}
	return result, nil
}

func convertOne(ctx context.Context, converter Converter, amount decimal.Decimal, from, to string, timeout time.Duration) (decimal.Decimal, error) {
	if converter == nil {
		return decimal.Zero, ErrNoConverter
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return converter.Convert(ctx, amount, from, to)
}
