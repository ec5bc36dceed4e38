package core

import "github.com/shopspring/decimal"

// CategoryTemplate describes a starter category created for new accounts.
type CategoryTemplate struct {
	Name   string
	Color  string
	Budget decimal.Decimal
}

// DefaultCategories returns the starter category set. Each call returns a
// fresh slice.
func DefaultCategories() []CategoryTemplate {
	return []CategoryTemplate{
		{Name: "Food", Color: "#FF6B6B", Budget: decimal.NewFromInt(300)},
		{Name: "Transport", Color: "#4ECDC4", Budget: decimal.NewFromInt(150)},
		{Name: "Healthcare", Color: "#45B7D1", Budget: decimal.NewFromInt(100)},
		{Name: "Entertainment", Color: "#FFA07A", Budget: decimal.NewFromInt(100)},
		{Name: "Education", Color: "#98D8C8", Budget: decimal.NewFromInt(200)},
		{Name: "Housing", Color: "#6C5CE7", Budget: decimal.NewFromInt(500)},
		{Name: "Utilities", Color: "#FDCB6E", Budget: decimal.NewFromInt(150)},
		{Name: "Shopping", Color: "#E17055", Budget: decimal.NewFromInt(200)},
		{Name: "Miscellaneous", Color: "#A29BFE", Budget: decimal.NewFromInt(100)},
	}
}
