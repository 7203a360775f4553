package ledger

import (
	"context"
	"errors"

	"centavo/internal/domain/progression"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/models"
)

// ErrUnauthorized is surfaced by remote adapters when the session is no
// longer valid. It voids the whole sync contract, so it is propagated to
// the caller instead of being degraded to a notification.
var ErrUnauthorized = errors.New("remote session unauthorized")

// RemoteStore is the sync boundary: per entity kind, insert returns the
// authoritative record (including the server-assigned id), updates and
// deletes are acknowledged-or-error, and lists are scoped per user. The
// ledger depends only on this contract, never on a concrete backend.
type RemoteStore interface {
	InsertTransaction(ctx context.Context, userID string, t transaction.Transaction) (transaction.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, patch transaction.UpdateParams) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error)

	InsertCard(ctx context.Context, userID string, c models.Card) (models.Card, error)
	UpdateCard(ctx context.Context, userID string, c models.Card) error
	DeleteCard(ctx context.Context, userID, id string) error
	ListCards(ctx context.Context, userID string) ([]models.Card, error)

	InsertGoal(ctx context.Context, userID string, g models.Goal) (models.Goal, error)
	UpdateGoal(ctx context.Context, userID string, g models.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error
	ListGoals(ctx context.Context, userID string) ([]models.Goal, error)

	InsertDebt(ctx context.Context, userID string, d models.Debt) (models.Debt, error)
	UpdateDebt(ctx context.Context, userID string, d models.Debt) error
	DeleteDebt(ctx context.Context, userID, id string) error
	ListDebts(ctx context.Context, userID string) ([]models.Debt, error)

	InsertRule(ctx context.Context, userID string, r rule.Rule) (rule.Rule, error)
	DeleteRule(ctx context.Context, userID, id string) error
	ListRules(ctx context.Context, userID string) ([]rule.Rule, error)

	GetProgression(ctx context.Context, userID string) (*progression.Progression, error)
	SaveProgression(ctx context.Context, userID string, p progression.Progression) error
}
