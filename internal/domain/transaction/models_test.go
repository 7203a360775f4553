package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeDerivesSignFromType(t *testing.T) {
	tests := []struct {
		name   string
		txType string
		amount string
		want   string
	}{
		{"expense positive input", TypeExpense, "150.50", "-150.5"},
		{"expense negative input", TypeExpense, "-150.50", "-150.5"},
		{"income negative input", TypeIncome, "-2000", "2000"},
		{"income positive input", TypeIncome, "2000", "2000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := Transaction{Type: tt.txType, Amount: decimal.RequireFromString(tt.amount)}
			tx.Normalize()
			if got := tx.Amount.String(); got != tt.want {
				t.Errorf("Normalize() amount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseInstallment(t *testing.T) {
	tests := []struct {
		in      string
		current int
		total   int
		ok      bool
	}{
		{"2/5", 2, 5, true},
		{"1/1", 1, 1, true},
		{" 3 / 12 ", 3, 12, true},
		{"", 0, 0, false},
		{"5/2", 0, 0, false},
		{"0/5", 0, 0, false},
		{"a/b", 0, 0, false},
		{"3", 0, 0, false},
	}

	for _, tt := range tests {
		current, total, ok := ParseInstallment(tt.in)
		if current != tt.current || total != tt.total || ok != tt.ok {
			t.Errorf("ParseInstallment(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, current, total, ok, tt.current, tt.total, tt.ok)
		}
	}
}

func TestApplyRenormalizesOnTypeChange(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tx := Transaction{
		ID:     "t1",
		Title:  "Freela",
		Type:   TypeExpense,
		Amount: decimal.RequireFromString("-300"),
		Date:   &date,
	}

	newType := TypeIncome
	patch := UpdateParams{Type: &newType}
	patch.Apply(&tx)

	if tx.Amount.String() != "300" {
		t.Errorf("amount after type flip = %s, want 300", tx.Amount.String())
	}

	amount := decimal.RequireFromString("120")
	patch = UpdateParams{Amount: &amount}
	tx.Type = TypeExpense
	patch.Apply(&tx)
	if tx.Amount.String() != "-120" {
		t.Errorf("amount after expense patch = %s, want -120", tx.Amount.String())
	}
}

func TestCreateParamsValidate(t *testing.T) {
	p := CreateParams{Title: "Mercado", Type: TypeExpense, Amount: decimal.NewFromInt(50)}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Title = "  "
	if err := p.Validate(); err == nil {
		t.Error("expected error for blank title")
	}

	p.Title = "Mercado"
	p.Type = "transfer"
	if err := p.Validate(); err == nil {
		t.Error("expected error for invalid type")
	}

	p.Type = TypeExpense
	p.Installment = "9/3"
	if err := p.Validate(); err == nil {
		t.Error("expected error for invalid installment")
	}
}

func TestInMonth(t *testing.T) {
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inside := time.Date(2026, 3, 28, 15, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tx := Transaction{Date: &inside}
	if !tx.InMonth(march) {
		t.Error("expected transaction dated in march to match")
	}
	tx.Date = &outside
	if tx.InMonth(march) {
		t.Error("expected april transaction not to match march")
	}
	tx.Date = nil
	if tx.InMonth(march) {
		t.Error("undated transaction should belong to no month")
	}
}
