package transaction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. The amount sign is derived from the type at every
// mutation site: expense amounts are stored negative, income amounts
// positive.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Sync statuses for optimistically applied mutations.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncFailed  = "failed"
)

var (
	ErrTitleRequired = errors.New("transaction title is required")
	ErrInvalidType   = errors.New("transaction type must be income or expense")
)

// Transaction is a single ledger entry. IDs are server-assigned; entries
// that have not been confirmed by the remote service carry a temporary
// "tmp_" prefixed ID until reconciliation.
type Transaction struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Date        *time.Time      `json:"date,omitempty"`
	Recurring   bool            `json:"recurring"`
	Installment string          `json:"installment,omitempty"` // "k/n"
	Icon        string          `json:"icon,omitempty"`
	Color       string          `json:"color,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	SyncStatus  string          `json:"syncStatus,omitempty"`
}

// Normalize derives the amount sign from the type. The two fields can
// arrive inconsistent from callers; the type is authoritative.
func (t *Transaction) Normalize() {
	switch t.Type {
	case TypeExpense:
		t.Amount = t.Amount.Abs().Neg()
	case TypeIncome:
		t.Amount = t.Amount.Abs()
	}
}

// IsTemporary reports whether the transaction still carries a temporary,
// locally issued identifier.
func (t *Transaction) IsTemporary() bool {
	return strings.HasPrefix(t.ID, "tmp_")
}

// InMonth reports whether the transaction is dated within the given
// calendar month. Undated transactions belong to no month.
func (t *Transaction) InMonth(month time.Time) bool {
	if t.Date == nil {
		return false
	}
	return t.Date.Year() == month.Year() && t.Date.Month() == month.Month()
}

// ParseInstallment parses a "k/n" installment descriptor. Returns ok=false
// for empty or malformed descriptors.
func ParseInstallment(s string) (current, total int, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	current, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if current < 1 || total < 1 || current > total {
		return 0, 0, false
	}
	return current, total, true
}

// CreateParams contains the caller-supplied fields for a new transaction.
type CreateParams struct {
	Title       string
	Amount      decimal.Decimal
	Type        string
	Category    string
	Account     string
	Date        *time.Time
	Recurring   bool
	Installment string
	Icon        string
	Color       string
	Tags        []string
}

func (p *CreateParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Type != TypeIncome && p.Type != TypeExpense {
		return fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}
	if p.Installment != "" {
		if _, _, ok := ParseInstallment(p.Installment); !ok {
			return fmt.Errorf("invalid installment descriptor %q", p.Installment)
		}
	}
	return nil
}

// UpdateParams is a partial patch; nil fields are left untouched.
type UpdateParams struct {
	Title       *string          `json:"title,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *string          `json:"type,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Account     *string          `json:"account,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Recurring   *bool            `json:"recurring,omitempty"`
	Installment *string          `json:"installment,omitempty"`
	Icon        *string          `json:"icon,omitempty"`
	Color       *string          `json:"color,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
}

func (p *UpdateParams) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Type != nil && *p.Type != TypeIncome && *p.Type != TypeExpense {
		return fmt.Errorf("%w: %q", ErrInvalidType, *p.Type)
	}
	if p.Installment != nil && *p.Installment != "" {
		if _, _, ok := ParseInstallment(*p.Installment); !ok {
			return fmt.Errorf("invalid installment descriptor %q", *p.Installment)
		}
	}
	return nil
}

// AsUpdate converts the transaction into a patch that sets every field.
// Used to replay an edit that was deferred until the record existed on the
// server.
func (t *Transaction) AsUpdate() UpdateParams {
	amount := t.Amount
	return UpdateParams{
		Title:       &t.Title,
		Amount:      &amount,
		Type:        &t.Type,
		Category:    &t.Category,
		Account:     &t.Account,
		Date:        t.Date,
		Recurring:   &t.Recurring,
		Installment: &t.Installment,
		Icon:        &t.Icon,
		Color:       &t.Color,
		Tags:        t.Tags,
	}
}

// Apply patches t in place and re-normalizes the amount sign whenever the
// amount or the type changed.
func (p *UpdateParams) Apply(t *Transaction) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Account != nil {
		t.Account = *p.Account
	}
	if p.Date != nil {
		t.Date = p.Date
	}
	if p.Recurring != nil {
		t.Recurring = *p.Recurring
	}
	if p.Installment != nil {
		t.Installment = *p.Installment
	}
	if p.Icon != nil {
		t.Icon = *p.Icon
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
	if p.Amount != nil || p.Type != nil {
		t.Normalize()
	}
}
