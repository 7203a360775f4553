package models

import "github.com/shopspring/decimal"

// Debt is an outstanding liability being paid down.
type Debt struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Paid     decimal.Decimal `json:"paid"`
	DueDay   int             `json:"dueDay"`
	Creditor string          `json:"creditor,omitempty"`
}
