package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/stats"
)

// CategoryOverview is a category with what was spent in it during the
// current month. SpentThisMonth mixes currencies like the stats do.
type CategoryOverview struct {
	core.Category
	SpentThisMonth   decimal.Decimal
	TransactionCount int
}

// CategoryService manages a user's categories.
type CategoryService struct {
	store  CategoryStore
	now    func() time.Time
	logger *log.Logger
}

func NewCategoryService(store CategoryStore, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{
		store:  store,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAccounts),
	}
}

// WithClock sets the clock that decides the current month.
func (s *CategoryService) WithClock(now func() time.Time) *CategoryService {
	s.now = now
	return s
}

// List returns the user's categories in store order with their spending in
// the current UTC month.
func (s *CategoryService) List(ctx context.Context, userID int64) ([]CategoryOverview, error) {
	cats, err := s.store.FetchCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	period := core.CurrentPeriod(s.now())
	txs, err := s.store.FetchTransactions(ctx, userID, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	spending := make(map[int64]core.CategorySpending, len(cats))
	for _, cs := range stats.AggregateCategories(cats, txs) {
		spending[cs.CategoryID] = cs
	}
	out := make([]CategoryOverview, 0, len(cats))
	for _, c := range cats {
		cs := spending[c.ID]
		out = append(out, CategoryOverview{
			Category:         c,
			SpentThisMonth:   cs.Spent,
			TransactionCount: cs.TransactionCount,
		})
	}
	return out, nil
}

// Create adds one category to the user's account.
func (s *CategoryService) Create(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	c.ID = 0
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldUserID, userID,
		log.FieldCategoryID, created.ID)
	return created, nil
}

// Update replaces the name, color and budget of one of the user's categories.
func (s *CategoryService) Update(ctx context.Context, userID, id int64, c core.Category) (core.Category, error) {
	c.ID = id
	c.UserID = userID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category updated",
		log.FieldUserID, userID,
		log.FieldCategoryID, id)
	return updated, nil
}

// Delete removes one of the user's categories. Its transactions are kept
// and become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldUserID, userID,
		log.FieldCategoryID, id)
	return nil
}
