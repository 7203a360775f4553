package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target.
type Goal struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Saved    decimal.Decimal `json:"saved"`
	Deadline *time.Time      `json:"deadline,omitempty"`
	Icon     string          `json:"icon,omitempty"`
}
