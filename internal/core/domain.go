package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MinYear = 2000
	MaxYear = 2100

	MaxDescriptionLength = 500
	MinCategoryNameLen   = 2
	MaxCategoryNameLen   = 50
)

// DefaultCurrency is used when a user has not chosen a preferred currency.
const DefaultCurrency = "EUR"

type (
	// Period is a single calendar month in UTC.
	Period struct {
		Year  int
		Month int // 1-12
	}

	Transaction struct {
		ID              int64
		UserID          int64
		CategoryID      *int64 // nil means uncategorized
		Amount          decimal.Decimal
		Currency        string
		Description     string
		ReceiptImageURL string // truncated data URL of the attached receipt, if any
		TransactionDate time.Time
		CreatedAt       time.Time
	}

	Category struct {
		ID            int64
		UserID        int64
		Name          string
		Color         string
		MonthlyBudget decimal.Decimal
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCurrency     = errors.New("invalid currency code")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 500 characters)")
	ErrInvalidCategoryName = errors.New("category name must be 2-50 characters")
	ErrInvalidColor        = errors.New("color must be hex format (#RRGGBB)")
	ErrInvalidBudget       = errors.New("monthly budget must be between 0 and 1000000")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrNotFound            = errors.New("not found")
)

// validationErrors are caused by the input itself; retrying cannot help.
var validationErrors = []error{
	ErrInvalidYear,
	ErrInvalidMonth,
	ErrInvalidAmount,
	ErrInvalidCurrency,
	ErrEmptyDescription,
	ErrDescriptionTooLong,
	ErrInvalidCategoryName,
	ErrInvalidColor,
	ErrInvalidBudget,
	ErrCategoryNotFound,
}

// ValidationCause returns the input validation error wrapped by err, or nil.
func ValidationCause(err error) error {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// IsValidation reports whether err wraps one of the input validation errors.
func IsValidation(err error) bool {
	return ValidationCause(err) != nil
}

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

	maxBudget = decimal.NewFromInt(1_000_000)
)

// CurrentPeriod returns the UTC year and month of now.
func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	return Period{Year: now.Year(), Month: int(now.Month())}
}

func (p Period) Validate() error {
	if p.Year < MinYear || p.Year > MaxYear {
		return ErrInvalidYear
	}
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Bounds returns the half-open UTC range [start, end) covered by the period.
func (p Period) Bounds() (start, end time.Time) {
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the period once converted to UTC.
func (p Period) Contains(t time.Time) bool {
	start, end := p.Bounds()
	t = t.UTC()
	return !t.Before(start) && t.Before(end)
}

// NormalizeCurrency upper-cases and trims a currency code and checks its shape.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyPattern.MatchString(code) {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

// ValidCurrency reports whether code is already a normalized ISO-like code.
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if !ValidCurrency(t.Currency) {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (c Category) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(c.Name))
	if n < MinCategoryNameLen || n > MaxCategoryNameLen {
		return ErrInvalidCategoryName
	}
	if !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	if c.MonthlyBudget.IsNegative() || c.MonthlyBudget.GreaterThan(maxBudget) {
		return ErrInvalidBudget
	}
	return nil
}

// Int64Ptr is a small helper for optional category ids.
func Int64Ptr(v int64) *int64 {
	return &v
}
