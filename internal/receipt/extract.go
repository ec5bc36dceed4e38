// Package receipt turns OCR text from a photographed receipt into a
// candidate amount and a short label.
package receipt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// FallbackLabel is returned when the text has no usable line.
	FallbackLabel = "Receipt"

	maxLabelRunes = 100
)

var (
	candidatePattern = regexp.MustCompile(`[\d.,]+(?:[.,]\d{2})?`)

	maxAmount = decimal.NewFromInt(10_000)
)

// Result is what a receipt scan produced. Amount is nil when no plausible
// value was found.
type Result struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	RawText     string           `json:"raw_text"`
}

// ExtractFromText builds a Result from raw OCR text.
func ExtractFromText(text string) Result {
	amount, label := Extract(text)
	return Result{Amount: amount, Description: label, RawText: text}
}

// Extract scans text left to right for numeric candidates and returns the
// first one strictly between 0 and 10000, plus the label. Decimal commas are
// read as dots; candidates that still do not parse (1.234.56, a lone dot) are
// skipped. It never fails.
//
// Examples:
//
//	Extract("TOTAL 23,50\nSuperMart\n") -> 23.50, "TOTAL 23,50"
//	Extract("hello")                    -> nil, "hello"
//	Extract("\n\n")                     -> nil, "Receipt"
func Extract(text string) (*decimal.Decimal, string) {
	return extractAmount(text), extractLabel(text)
}

func extractAmount(text string) *decimal.Decimal {
	for _, candidate := range candidatePattern.FindAllString(text, -1) {
		v, err := decimal.NewFromString(strings.ReplaceAll(candidate, ",", "."))
		if err != nil {
			continue
		}
		if v.IsPositive() && v.LessThan(maxAmount) {
			return &v
		}
	}
	return nil
}

func extractLabel(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxLabelRunes {
			line = string([]rune(line)[:maxLabelRunes])
		}
		return line
	}
	return FallbackLabel
}

// ApplyTo fills in whatever the caller left empty. A zero amount or blank
// description counts as empty; values the caller provided are kept.
func (r Result) ApplyTo(amount decimal.Decimal, description string) (decimal.Decimal, string) {
	if amount.IsZero() && r.Amount != nil {
		amount = *r.Amount
	}
	if strings.TrimSpace(description) == "" && r.Description != "" {
		description = r.Description
	}
	return amount, description
}
