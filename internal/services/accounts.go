package services

import (
	"context"
	"fmt"
	"sync"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
)

// AccountService seeds new accounts with a starter set of categories and
// manages account level settings.
type AccountService struct {
	store    AccountStore
	defaults func() []core.CategoryTemplate
	logger   *log.Logger

	// serializes seeding so two concurrent first requests don't both seed
	mu sync.Mutex
}

// NewAccountService uses core.DefaultCategories when defaults is nil.
func NewAccountService(store AccountStore, defaults func() []core.CategoryTemplate, logger *log.Logger) *AccountService {
	if defaults == nil {
		defaults = core.DefaultCategories
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AccountService{
		store:    store,
		defaults: defaults,
		logger:   logger.WithComponent(log.ComponentAccounts),
	}
}

// Initialize creates the default categories for a user that has none and
// returns what it created. Calling it again is a no-op.
func (a *AccountService) Initialize(ctx context.Context, userID int64) ([]core.Category, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.EnsureUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	n, err := a.store.CountCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		a.logger.DebugContext(ctx, "Account already initialized", log.FieldUserID, userID, "categories", n)
		return nil, nil
	}

	templates := a.defaults()
	created := make([]core.Category, 0, len(templates))
	for _, tpl := range templates {
		c, err := a.store.CreateCategory(ctx, core.Category{
			UserID:        userID,
			Name:          tpl.Name,
			Color:         tpl.Color,
			MonthlyBudget: tpl.Budget,
		})
		if err != nil {
			return created, fmt.Errorf("create category %q: %w", tpl.Name, err)
		}
		created = append(created, c)
	}

	a.logger.InfoContext(ctx, "Default categories created",
		log.FieldUserID, userID,
		"categories", len(created))
	return created, nil
}

// SetPreferredCurrency stores the currency the user's totals are reported in.
func (a *AccountService) SetPreferredCurrency(ctx context.Context, userID int64, code string) (string, error) {
	code, err := core.NormalizeCurrency(code)
	if err != nil {
		return "", err
	}
	if err := a.store.SetPreferredCurrency(ctx, userID, code); err != nil {
		return "", fmt.Errorf("set preferred currency: %w", err)
	}
	a.logger.InfoContext(ctx, "Preferred currency updated",
		log.FieldUserID, userID,
		log.FieldCurrency, code)
	return code, nil
}
