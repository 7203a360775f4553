package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"centavo/internal/domain/progression"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/ledger"
	"centavo/internal/models"
)

// Store implements the sync boundary against the Postgres schema.
// Server-side ids are issued here, so temporary ids never reach a row.
type Store struct {
	db *DB
}

var _ ledger.RemoteStore = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertTransaction(ctx context.Context, userID string, t transaction.Transaction) (transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (id, user_id, title, amount, type, category, account, date, recurring, installment, icon, color, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	t.ID = uuid.NewString()
	t.SyncStatus = ""
	err := s.db.QueryRowContext(
		ctx, query,
		t.ID, userID, t.Title, t.Amount, t.Type, t.Category, t.Account,
		t.Date, t.Recurring, t.Installment, t.Icon, t.Color, pq.Array(t.Tags),
	).Scan(&t.ID)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, patch transaction.UpdateParams) error {
	query := `
		UPDATE transactions
		SET title = COALESCE($1, title),
		    amount = COALESCE($2, amount),
		    type = COALESCE($3, type),
		    category = COALESCE($4, category),
		    account = COALESCE($5, account),
		    date = COALESCE($6, date),
		    recurring = COALESCE($7, recurring),
		    installment = COALESCE($8, installment),
		    icon = COALESCE($9, icon),
		    color = COALESCE($10, color),
		    tags = COALESCE($11, tags),
		    updated_at = NOW()
		WHERE id = $12 AND user_id = $13
	`

	var tags any
	if patch.Tags != nil {
		tags = pq.Array(patch.Tags)
	}
	result, err := s.db.ExecContext(
		ctx, query,
		strArg(patch.Title), decArg(patch.Amount), strArg(patch.Type),
		strArg(patch.Category), strArg(patch.Account), timeArg(patch.Date),
		boolArg(patch.Recurring), strArg(patch.Installment), strArg(patch.Icon),
		strArg(patch.Color), tags, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(result, "transaction")
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireRow(result, "transaction")
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	query := `
		SELECT id, title, amount, type, category, account, date, recurring, installment, icon, color, tags
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC NULLS LAST, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		err := rows.Scan(
			&t.ID, &t.Title, &t.Amount, &t.Type, &t.Category, &t.Account,
			&t.Date, &t.Recurring, &t.Installment, &t.Icon, &t.Color, pq.Array(&t.Tags),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) InsertCard(ctx context.Context, userID string, c models.Card) (models.Card, error) {
	c.ID = uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cards (id, user_id, name, credit_limit, spent, due_day, color, network) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, userID, c.Name, c.Limit, c.Spent, c.DueDay, c.Color, c.Network,
	)
	if err != nil {
		return models.Card{}, fmt.Errorf("failed to insert card: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCard(ctx context.Context, userID string, c models.Card) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE cards SET name = $1, credit_limit = $2, spent = $3, due_day = $4, color = $5, network = $6 WHERE id = $7 AND user_id = $8`,
		c.Name, c.Limit, c.Spent, c.DueDay, c.Color, c.Network, c.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return requireRow(result, "card")
}

func (s *Store) DeleteCard(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return requireRow(result, "card")
}

func (s *Store) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, credit_limit, spent, due_day, color, network FROM cards WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.Limit, &c.Spent, &c.DueDay, &c.Color, &c.Network); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

func (s *Store) InsertGoal(ctx context.Context, userID string, g models.Goal) (models.Goal, error) {
	g.ID = uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO goals (id, user_id, name, target, saved, deadline, icon) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, userID, g.Name, g.Target, g.Saved, g.Deadline, g.Icon,
	)
	if err != nil {
		return models.Goal{}, fmt.Errorf("failed to insert goal: %w", err)
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, userID string, g models.Goal) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE goals SET name = $1, target = $2, saved = $3, deadline = $4, icon = $5 WHERE id = $6 AND user_id = $7`,
		g.Name, g.Target, g.Saved, g.Deadline, g.Icon, g.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRow(result, "goal")
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return requireRow(result, "goal")
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, target, saved, deadline, icon FROM goals WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.Name, &g.Target, &g.Saved, &g.Deadline, &g.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

func (s *Store) InsertDebt(ctx context.Context, userID string, d models.Debt) (models.Debt, error) {
	d.ID = uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO debts (id, user_id, name, total, paid, due_day, creditor) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, userID, d.Name, d.Total, d.Paid, d.DueDay, d.Creditor,
	)
	if err != nil {
		return models.Debt{}, fmt.Errorf("failed to insert debt: %w", err)
	}
	return d, nil
}

func (s *Store) UpdateDebt(ctx context.Context, userID string, d models.Debt) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE debts SET name = $1, total = $2, paid = $3, due_day = $4, creditor = $5 WHERE id = $6 AND user_id = $7`,
		d.Name, d.Total, d.Paid, d.DueDay, d.Creditor, d.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	return requireRow(result, "debt")
}

func (s *Store) DeleteDebt(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	return requireRow(result, "debt")
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]models.Debt, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, total, paid, due_day, creditor FROM debts WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []models.Debt
	for rows.Next() {
		var d models.Debt
		if err := rows.Scan(&d.ID, &d.Name, &d.Total, &d.Paid, &d.DueDay, &d.Creditor); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debts: %w", err)
	}
	return debts, nil
}

func (s *Store) InsertRule(ctx context.Context, userID string, r rule.Rule) (rule.Rule, error) {
	r.ID = uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO rules (id, user_id, keyword, category) VALUES ($1, $2, $3, $4)`,
		r.ID, userID, r.Keyword, r.Category,
	)
	if err != nil {
		return rule.Rule{}, fmt.Errorf("failed to insert rule: %w", err)
	}
	return r, nil
}

func (s *Store) DeleteRule(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRow(result, "rule")
}

func (s *Store) ListRules(ctx context.Context, userID string) ([]rule.Rule, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, keyword, category FROM rules WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []rule.Rule
	for rows.Next() {
		var r rule.Rule
		if err := rows.Scan(&r.ID, &r.Keyword, &r.Category); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

func (s *Store) GetProgression(ctx context.Context, userID string) (*progression.Progression, error) {
	var p progression.Progression
	err := s.db.QueryRowContext(
		ctx,
		`SELECT xp, level, has_seen_onboarding FROM progression WHERE user_id = $1`,
		userID,
	).Scan(&p.XP, &p.Level, &p.HasSeenOnboarding)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progression: %w", err)
	}
	return &p, nil
}

func (s *Store) SaveProgression(ctx context.Context, userID string, p progression.Progression) error {
	query := `
		INSERT INTO progression (user_id, xp, level, has_seen_onboarding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			xp = EXCLUDED.xp,
			level = EXCLUDED.level,
			has_seen_onboarding = EXCLUDED.has_seen_onboarding
	`
	if _, err := s.db.ExecContext(ctx, query, userID, p.XP, p.Level, p.HasSeenOnboarding); err != nil {
		return fmt.Errorf("failed to save progression: %w", err)
	}
	return nil
}
