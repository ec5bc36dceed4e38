// Package memory is an in-process record store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"budgetbuddy/internal/core"
)

type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	preferred    map[int64]string
	users        map[int64]struct{}
	categories   []core.Category
	transactions []core.Transaction
	nextCategory int64
	nextTx       int64
}

func New() *Store {
	return &Store{
		now:       time.Now,
		preferred: make(map[int64]string),
		users:     make(map[int64]struct{}),
	}
}

func (s *Store) EnsureUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	return nil
}

func (s *Store) PreferredCurrency(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferred[userID], nil
}

func (s *Store) SetPreferredCurrency(_ context.Context, userID int64, code string) error {
	code, err := core.NormalizeCurrency(code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	s.preferred[userID] = code
	return nil
}

// FetchCategories returns copies of the user's categories in creation order.
func (s *Store) FetchCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// FetchTransactions returns copies of the user's transactions in the UTC
// month, oldest first.
func (s *Store) FetchTransactions(_ context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	period := core.Period{Year: year, Month: month}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && period.Contains(t.TransactionDate) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.Before(out[j].TransactionDate)
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCategory++
	c.ID = s.nextCategory
	c.CreatedAt = s.now().UTC()
	s.users[c.UserID] = struct{}{}
	s.categories = append(s.categories, c)
	return c, nil
}

// UpdateCategory replaces name, color and budget; core.ErrNotFound when the
// category does not belong to c.UserID.
func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.categories {
		if existing.ID == c.ID && existing.UserID == c.UserID {
			existing.Name = c.Name
			existing.Color = c.Color
			existing.MonthlyBudget = c.MonthlyBudget
			s.categories[i] = existing
			return existing, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

// DeleteCategory removes the category and leaves its transactions
// uncategorized.
func (s *Store) DeleteCategory(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID != id || c.UserID != userID {
			continue
		}
		s.categories = append(s.categories[:i], s.categories[i+1:]...)
		for j, t := range s.transactions {
			if t.CategoryID != nil && *t.CategoryID == id {
				s.transactions[j].CategoryID = nil
			}
		}
		return nil
	}
	return core.ErrNotFound
}

func (s *Store) CategoryExists(_ context.Context, userID, categoryID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == categoryID && c.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountCategories(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.categories {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	t.ID = s.nextTx
	t.CreatedAt = s.now().UTC()
	t.TransactionDate = t.TransactionDate.UTC()
	s.users[t.UserID] = struct{}{}
	s.transactions = append(s.transactions, copyTransaction(t))
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			return copyTransaction(t), nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

// UpdateTransaction replaces the editable fields of a stored transaction.
// ID, owner, receipt and creation time are kept.
func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.transactions {
		if existing.ID != t.ID || existing.UserID != t.UserID {
			continue
		}
		existing.CategoryID = t.CategoryID
		existing.Amount = t.Amount
		existing.Currency = t.Currency
		existing.Description = t.Description
		existing.TransactionDate = t.TransactionDate.UTC()
		s.transactions[i] = copyTransaction(existing)
		return copyTransaction(existing), nil
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// Close is a no-op so the store satisfies the same lifecycle as SQLite.
func (s *Store) Close() error { return nil }

func copyTransaction(t core.Transaction) core.Transaction {
	if t.CategoryID != nil {
		t.CategoryID = core.Int64Ptr(*t.CategoryID)
	}
	return t
}
