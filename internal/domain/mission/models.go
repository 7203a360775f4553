package mission

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrMissionNotFound = errors.New("mission not found in catalog")

// Snapshot carries the aggregate values missions are evaluated against.
// It is assembled from the report engine's output plus ledger counts.
type Snapshot struct {
	Income              decimal.Decimal
	Expenses            decimal.Decimal
	Balance             decimal.Decimal
	TransactionCount    int
	HasTransactionToday bool
	RuleCount           int
	GoalCount           int
}

// Template is a catalog entry. A nil Eligible guard makes the mission
// evergreen. Templates with a guard are omitted entirely when ineligible,
// never shown as incomplete.
type Template struct {
	ID          string
	Title       string
	Description string
	Category    string
	Icon        string
	XP          int64
	Eligible    func(Snapshot) bool
}

// Mission is the derived, non-persisted entity handed to the UI. Only the
// completion fact is stored, keyed by user and calendar day.
type Mission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	XP          int64  `json:"xp"`
	IsCompleted bool   `json:"isCompleted"`
}

// Catalog is the fixed ordered mission catalog.
var Catalog = []Template{
	{
		ID:          "daily-entry",
		Title:       "Registro do dia",
		Description: "Registre pelo menos uma transação hoje",
		Category:    "habit",
		Icon:        "pencil",
		XP:          15,
		Eligible: func(s Snapshot) bool {
			return s.HasTransactionToday
		},
	},
	{
		ID:          "spending-check",
		Title:       "Olho no orçamento",
		Description: "Revise seus gastos: eles passaram de 40% da renda do mês",
		Category:    "budget",
		Icon:        "alert",
		XP:          25,
		Eligible: func(s Snapshot) bool {
			if !s.Income.IsPositive() {
				return false
			}
			threshold := s.Income.Mul(decimal.RequireFromString("0.4"))
			return s.Expenses.GreaterThan(threshold)
		},
	},
	{
		ID:          "positive-balance",
		Title:       "Saldo no azul",
		Description: "Mantenha o saldo acima de R$ 1.000",
		Category:    "savings",
		Icon:        "trending-up",
		XP:          30,
		Eligible: func(s Snapshot) bool {
			return s.Balance.GreaterThan(decimal.NewFromInt(1000))
		},
	},
	{
		ID:          "first-rule",
		Title:       "Ensine o app",
		Description: "Crie uma regra de categorização automática",
		Category:    "setup",
		Icon:        "sparkles",
		XP:          20,
		Eligible: func(s Snapshot) bool {
			return s.RuleCount == 0 && s.TransactionCount > 0
		},
	},
	{
		ID:          "first-goal",
		Title:       "Defina uma meta",
		Description: "Crie uma meta de economia",
		Category:    "savings",
		Icon:        "target",
		XP:          20,
		Eligible: func(s Snapshot) bool {
			return s.GoalCount == 0
		},
	},
	{
		// Evergreen fallback: always eligible.
		ID:          "daily-review",
		Title:       "Check-in diário",
		Description: "Abra o app e confira suas finanças",
		Category:    "habit",
		Icon:        "calendar",
		XP:          10,
	},
}
