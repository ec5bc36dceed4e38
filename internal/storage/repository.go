// Package storage persists users, categories and transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"budgetbuddy/internal/core"

	_ "modernc.org/sqlite"
)

// Dates are stored as fixed width UTC text so that range filters compare
// lexicographically.
const dateLayout = "2006-01-02T15:04:05Z"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// EnsureUser creates the user row if it does not exist yet.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		userID, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", userID, err)
	}
	return nil
}

// PreferredCurrency returns the stored code, or "" when none is set.
func (r *SQLiteRepository) PreferredCurrency(ctx context.Context, userID int64) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx,
		`SELECT preferred_currency FROM users WHERE id = ?`, userID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preferred currency: %w", err)
	}
	return code, nil
}

func (r *SQLiteRepository) SetPreferredCurrency(ctx context.Context, userID int64, code string) error {
	code, err := core.NormalizeCurrency(code)
	if err != nil {
		return err
	}
	if err := r.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET preferred_currency = ? WHERE id = ?`, code, userID); err != nil {
		return fmt.Errorf("set preferred currency: %w", err)
	}
	slog.InfoContext(ctx, "Preferred currency updated", "component", "storage", "user_id", userID, "currency", code)
	return nil
}

func (r *SQLiteRepository) FetchCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color, monthly_budget, created_at
		   FROM categories WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c               core.Category
			budget, created string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &budget, &created); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.MonthlyBudget, err = decimal.NewFromString(budget); err != nil {
			return nil, fmt.Errorf("category %d budget %q: %w", c.ID, budget, err)
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("category %d created_at: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FetchTransactions returns the user's transactions whose date falls in the
// given UTC month, oldest first.
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	start, end := core.Period{Year: year, Month: month}.Bounds()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+`
		   FROM transactions
		  WHERE user_id = ? AND transaction_date >= ? AND transaction_date < ?
		  ORDER BY transaction_date, id`,
		userID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const transactionColumns = `id, user_id, category_id, amount, currency, description, receipt_image_url,
		        transaction_date, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                     core.Transaction
		categoryID            sql.NullInt64
		amount, date, created string
	)
	if err := row.Scan(&t.ID, &t.UserID, &categoryID, &amount, &t.Currency, &t.Description,
		&t.ReceiptImageURL, &date, &created); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if categoryID.Valid {
		t.CategoryID = core.Int64Ptr(categoryID.Int64)
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", t.ID, amount, err)
	}
	if t.TransactionDate, err = parseTime(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d created_at: %w", t.ID, err)
	}
	return t, nil
}

// GetTransaction returns one of the user's transactions.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, err
}

// UpdateTransaction replaces category, amount, currency, description and
// date of one of the user's transactions.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var categoryID sql.NullInt64
	if t.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *t.CategoryID, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		    SET category_id = ?, amount = ?, currency = ?, description = ?, transaction_date = ?
		  WHERE id = ? AND user_id = ?`,
		categoryID, t.Amount.String(), t.Currency, t.Description, formatTime(t.TransactionDate),
		t.ID, t.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := r.EnsureUser(ctx, c.UserID); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, color, monthly_budget, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Color, c.MonthlyBudget.String(), formatTime(c.CreatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

// UpdateCategory replaces name, color and budget of one of the user's
// categories.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, monthly_budget = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Color, c.MonthlyBudget.String(), c.ID, c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Category{}, err
	}
	var created string
	if err := r.db.QueryRowContext(ctx,
		`SELECT created_at FROM categories WHERE id = ?`, c.ID).Scan(&created); err != nil {
		return core.Category{}, fmt.Errorf("read category: %w", err)
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, fmt.Errorf("category %d created_at: %w", c.ID, err)
	}
	return c, nil
}

// DeleteCategory removes one of the user's categories. Its transactions are
// kept and become uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// same effect as ON DELETE SET NULL, without relying on the foreign_keys pragma
	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category_id = NULL WHERE category_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("detach transactions: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CategoryExists reports whether categoryID belongs to userID.
func (r *SQLiteRepository) CategoryExists(ctx context.Context, userID, categoryID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM categories WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.EnsureUser(ctx, t.UserID); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedAt = r.now().UTC().Truncate(time.Second)
	t.TransactionDate = t.TransactionDate.UTC().Truncate(time.Second)

	var categoryID sql.NullInt64
	if t.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *t.CategoryID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (user_id, category_id, amount, currency, description, receipt_image_url, transaction_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, categoryID, t.Amount.String(), t.Currency, t.Description, t.ReceiptImageURL,
		formatTime(t.TransactionDate), formatTime(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"component", "storage",
		"id", t.ID,
		"user_id", t.UserID,
		"amount", t.Amount.String(),
		"currency", t.Currency)
	return t, nil
}

// DeleteTransaction removes one of the user's transactions.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// requireRow maps "no row matched" to core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
