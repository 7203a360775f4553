package models

import "github.com/shopspring/decimal"

// Card is a credit card tracked by the ledger.
type Card struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Limit   decimal.Decimal `json:"limit"`
	Spent   decimal.Decimal `json:"spent"`
	DueDay  int             `json:"dueDay"`
	Color   string          `json:"color,omitempty"`
	Network string          `json:"network,omitempty"`
}
