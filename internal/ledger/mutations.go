package ledger

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"centavo/internal/domain/notification"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/infrastructure/cache"
	"centavo/internal/models"
	"centavo/internal/syncqueue"
)

func tempID() string {
	return "tmp_" + uuid.NewString()
}

func countMutation(kind, op string) {
	mutationTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("op", op),
	))
}

func countSyncFailure(kind, op string) {
	syncFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("op", op),
	))
}

func (s *Store) notifySyncFailure(what string) {
	s.notify(notification.Notification{
		Title:    "Sincronização pendente",
		Message:  fmt.Sprintf("Não foi possível salvar %s na nuvem. Sua alteração continua salva neste aparelho.", what),
		Severity: notification.SeverityWarning,
		Category: notification.CategorySync,
	})
}

// AddTransaction inserts optimistically: the entry is visible to readers
// before any network round-trip. Category resolution, the XP stipend, the
// cache write and the remote insert all happen as part of the add.
func (s *Store) AddTransaction(params transaction.CreateParams) (transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return transaction.Transaction{}, err
	}

	t := transaction.Transaction{
		ID:          tempID(),
		Title:       params.Title,
		Amount:      params.Amount,
		Type:        params.Type,
		Category:    params.Category,
		Account:     params.Account,
		Date:        params.Date,
		Recurring:   params.Recurring,
		Installment: params.Installment,
		Icon:        params.Icon,
		Color:       params.Color,
		Tags:        params.Tags,
		SyncStatus:  transaction.SyncPending,
	}
	t.Normalize()
	if t.Date == nil {
		now := s.clock.Now()
		t.Date = &now
	}

	s.mu.Lock()
	t.Category = s.resolver.Resolve(t.Title, t.Category, s.rules)
	s.txs = append(s.txs, t)
	s.pending[t.ID] = cache.KindTransactions
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindTransactions, "add")
	s.GrantXP(addTransactionXP, "Transação registrada")
	s.writeThrough(gen, cache.KindTransactions)

	insertID := t.ID
	record := t
	s.submit(syncqueue.Task{
		Description: "remote insert transaction",
		Run: func(ctx context.Context) error {
			confirmed, err := s.remote.InsertTransaction(ctx, userID, record)
			if err != nil {
				return err
			}
			s.reconcileTransaction(gen, insertID, confirmed.ID)
			return nil
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindTransactions, "add")
			s.markTransactionFailed(gen, insertID)
			s.notifySyncFailure("a transação")
		},
	})

	return t, nil
}

// reconcileTransaction substitutes the temporary id with the
// server-assigned one. The match is strictly by the issued temp id, so
// several unconfirmed adds resolving out of order cannot cross-assign.
// Edits applied while the insert was in flight are replayed against the
// confirmed record now that it has a server id.
func (s *Store) reconcileTransaction(gen uint64, tempID, serverID string) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	if _, ok := s.pending[tempID]; !ok {
		// Removed while the insert was in flight.
		s.mu.Unlock()
		return
	}
	delete(s.pending, tempID)
	replay := s.dirty[tempID]
	delete(s.dirty, tempID)
	var snapshot transaction.Transaction
	for i := range s.txs {
		if s.txs[i].ID == tempID {
			s.txs[i].ID = serverID
			s.txs[i].SyncStatus = transaction.SyncSynced
			snapshot = s.txs[i]
			s.version++
			break
		}
	}
	userID := s.userID
	s.mu.Unlock()

	reconciliations.Add(context.Background(), 1)
	s.writeThrough(gen, cache.KindTransactions)

	if replay {
		patch := snapshot.AsUpdate()
		s.submit(syncqueue.Task{
			Description: "remote update transaction",
			Run: func(ctx context.Context) error {
				return s.remote.UpdateTransaction(ctx, userID, serverID, patch)
			},
			OnError: func(err error) {
				countSyncFailure(cache.KindTransactions, "edit")
				s.markTransactionFailed(gen, serverID)
				s.notifySyncFailure("a edição")
			},
		})
	}
}

func (s *Store) markTransactionFailed(gen uint64, id string) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	delete(s.dirty, id)
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].SyncStatus = transaction.SyncFailed
			s.version++
			break
		}
	}
	s.mu.Unlock()
	s.writeThrough(gen, cache.KindTransactions)
}

// EditTransaction applies a partial patch locally, then fires the remote
// update without waiting. The local state stays authoritative even if the
// remote call fails. Editing a transaction whose insert has not confirmed
// yet only marks it dirty: the server does not know the temporary id, so
// the update is held back and replayed on reconciliation.
func (s *Store) EditTransaction(id string, patch transaction.UpdateParams) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	patch.Apply(&s.txs[idx])
	_, unconfirmed := s.pending[id]
	if unconfirmed {
		s.dirty[id] = true
	}
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindTransactions, "edit")
	s.writeThrough(gen, cache.KindTransactions)

	if unconfirmed {
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote update transaction",
		Run: func(ctx context.Context) error {
			return s.remote.UpdateTransaction(ctx, userID, id, patch)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindTransactions, "edit")
			s.markTransactionFailed(gen, id)
			s.notifySyncFailure("a edição")
		},
	})
	return nil
}

// RemoveTransaction deletes locally and fires the remote delete.
func (s *Store) RemoveTransaction(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	wasPending := s.txs[idx].SyncStatus == transaction.SyncPending
	s.txs = append(s.txs[:idx], s.txs[idx+1:]...)
	delete(s.pending, id)
	delete(s.dirty, id)
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindTransactions, "remove")
	s.writeThrough(gen, cache.KindTransactions)

	if wasPending {
		// Never confirmed by the server; nothing to delete remotely.
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote delete transaction",
		Run: func(ctx context.Context) error {
			return s.remote.DeleteTransaction(ctx, userID, id)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindTransactions, "remove")
			s.notifySyncFailure("a exclusão")
		},
	})
	return nil
}

// AddCard follows the same optimistic protocol as AddTransaction, minus
// category resolution and the XP stipend.
func (s *Store) AddCard(c models.Card) models.Card {
	c.ID = tempID()

	s.mu.Lock()
	s.cards = append(s.cards, c)
	s.pending[c.ID] = cache.KindCards
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindCards, "add")
	s.writeThrough(gen, cache.KindCards)

	insertID := c.ID
	record := c
	s.submit(syncqueue.Task{
		Description: "remote insert card",
		Run: func(ctx context.Context) error {
			confirmed, err := s.remote.InsertCard(ctx, userID, record)
			if err != nil {
				return err
			}
			s.reconcileCollection(gen, cache.KindCards, insertID, confirmed.ID)
			return nil
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindCards, "add")
			s.dropPending(gen, insertID)
			s.notifySyncFailure("o cartão")
		},
	})
	return c
}

func (s *Store) EditCard(c models.Card) error {
	s.mu.Lock()
	idx := -1
	for i := range s.cards {
		if s.cards[i].ID == c.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: card %s", ErrNotFound, c.ID)
	}
	s.cards[idx] = c
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindCards, "edit")
	s.writeThrough(gen, cache.KindCards)
	s.submit(syncqueue.Task{
		Description: "remote update card",
		Run: func(ctx context.Context) error {
			return s.remote.UpdateCard(ctx, userID, c)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindCards, "edit")
			s.notifySyncFailure("o cartão")
		},
	})
	return nil
}

func (s *Store) RemoveCard(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.cards {
		if s.cards[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: card %s", ErrNotFound, id)
	}
	s.cards = append(s.cards[:idx], s.cards[idx+1:]...)
	_, wasPending := s.pending[id]
	delete(s.pending, id)
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindCards, "remove")
	s.writeThrough(gen, cache.KindCards)
	if wasPending {
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote delete card",
		Run: func(ctx context.Context) error {
			return s.remote.DeleteCard(ctx, userID, id)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindCards, "remove")
			s.notifySyncFailure("a exclusão")
		},
	})
	return nil
}

func (s *Store) AddGoal(g models.Goal) models.Goal {
	g.ID = tempID()

	s.mu.Lock()
	s.goals = append(s.goals, g)
	s.pending[g.ID] = cache.KindGoals
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindGoals, "add")
	s.writeThrough(gen, cache.KindGoals)

	insertID := g.ID
	record := g
	s.submit(syncqueue.Task{
		Description: "remote insert goal",
		Run: func(ctx context.Context) error {
			confirmed, err := s.remote.InsertGoal(ctx, userID, record)
			if err != nil {
				return err
			}
			s.reconcileCollection(gen, cache.KindGoals, insertID, confirmed.ID)
			return nil
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindGoals, "add")
			s.dropPending(gen, insertID)
			s.notifySyncFailure("a meta")
		},
	})
	return g
}

func (s *Store) EditGoal(g models.Goal) error {
	s.mu.Lock()
	idx := -1
	for i := range s.goals {
		if s.goals[i].ID == g.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: goal %s", ErrNotFound, g.ID)
	}
	s.goals[idx] = g
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindGoals, "edit")
	s.writeThrough(gen, cache.KindGoals)
	s.submit(syncqueue.Task{
		Description: "remote update goal",
		Run: func(ctx context.Context) error {
			return s.remote.UpdateGoal(ctx, userID, g)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindGoals, "edit")
			s.notifySyncFailure("a meta")
		},
	})
	return nil
}

func (s *Store) RemoveGoal(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.goals {
		if s.goals[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: goal %s", ErrNotFound, id)
	}
	s.goals = append(s.goals[:idx], s.goals[idx+1:]...)
	_, wasPending := s.pending[id]
	delete(s.pending, id)
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindGoals, "remove")
	s.writeThrough(gen, cache.KindGoals)
	if wasPending {
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote delete goal",
		Run: func(ctx context.Context) error {
			return s.remote.DeleteGoal(ctx, userID, id)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindGoals, "remove")
			s.notifySyncFailure("a exclusão")
		},
	})
	return nil
}

func (s *Store) AddDebt(d models.Debt) models.Debt {
	d.ID = tempID()

	s.mu.Lock()
	s.debts = append(s.debts, d)
	s.pending[d.ID] = cache.KindDebts
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindDebts, "add")
	s.writeThrough(gen, cache.KindDebts)

	insertID := d.ID
	record := d
	s.submit(syncqueue.Task{
		Description: "remote insert debt",
		Run: func(ctx context.Context) error {
			confirmed, err := s.remote.InsertDebt(ctx, userID, record)
			if err != nil {
				return err
			}
			s.reconcileCollection(gen, cache.KindDebts, insertID, confirmed.ID)
			return nil
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindDebts, "add")
			s.dropPending(gen, insertID)
			s.notifySyncFailure("a dívida")
		},
	})
	return d
}

func (s *Store) EditDebt(d models.Debt) error {
	s.mu.Lock()
	idx := -1
	for i := range s.debts {
		if s.debts[i].ID == d.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: debt %s", ErrNotFound, d.ID)
	}
	s.debts[idx] = d
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindDebts, "edit")
	s.writeThrough(gen, cache.KindDebts)
	s.submit(syncqueue.Task{
		Description: "remote update debt",
		Run: func(ctx context.Context) error {
			return s.remote.UpdateDebt(ctx, userID, d)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindDebts, "edit")
			s.notifySyncFailure("a dívida")
		},
	})
	return nil
}

func (s *Store) RemoveDebt(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.debts {
		if s.debts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: debt %s", ErrNotFound, id)
	}
	s.debts = append(s.debts[:idx], s.debts[idx+1:]...)
	_, wasPending := s.pending[id]
	delete(s.pending, id)
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindDebts, "remove")
	s.writeThrough(gen, cache.KindDebts)
	if wasPending {
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote delete debt",
		Run: func(ctx context.Context) error {
			return s.remote.DeleteDebt(ctx, userID, id)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindDebts, "remove")
			s.notifySyncFailure("a exclusão")
		},
	})
	return nil
}

// AddRule registers a categorization rule. Rules are consulted in
// insertion order by the resolver.
func (s *Store) AddRule(params rule.CreateParams) (rule.Rule, error) {
	if err := params.Validate(); err != nil {
		return rule.Rule{}, err
	}

	r := rule.Rule{
		ID:       tempID(),
		Keyword:  params.Keyword,
		Category: params.Category,
	}

	s.mu.Lock()
	s.rules = append(s.rules, r)
	s.pending[r.ID] = cache.KindRules
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindRules, "add")
	s.writeThrough(gen, cache.KindRules)

	insertID := r.ID
	record := r
	s.submit(syncqueue.Task{
		Description: "remote insert rule",
		Run: func(ctx context.Context) error {
			confirmed, err := s.remote.InsertRule(ctx, userID, record)
			if err != nil {
				return err
			}
			s.reconcileCollection(gen, cache.KindRules, insertID, confirmed.ID)
			return nil
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindRules, "add")
			s.dropPending(gen, insertID)
			s.notifySyncFailure("a regra")
		},
	})
	return r, nil
}

func (s *Store) RemoveRule(id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.rules {
		if s.rules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: rule %s", ErrNotFound, id)
	}
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	_, wasPending := s.pending[id]
	delete(s.pending, id)
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	countMutation(cache.KindRules, "remove")
	s.writeThrough(gen, cache.KindRules)
	if wasPending {
		return nil
	}
	s.submit(syncqueue.Task{
		Description: "remote delete rule",
		Run: func(ctx context.Context) error {
			return s.remote.DeleteRule(ctx, userID, id)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindRules, "remove")
			s.notifySyncFailure("a exclusão")
		},
	})
	return nil
}

// reconcileCollection swaps the temporary id for the server-assigned one
// in the cards, goals, debts or rules collection.
func (s *Store) reconcileCollection(gen uint64, kind, tempID, serverID string) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	if _, ok := s.pending[tempID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, tempID)

	switch kind {
	case cache.KindCards:
		for i := range s.cards {
			if s.cards[i].ID == tempID {
				s.cards[i].ID = serverID
				break
			}
		}
	case cache.KindGoals:
		for i := range s.goals {
			if s.goals[i].ID == tempID {
				s.goals[i].ID = serverID
				break
			}
		}
	case cache.KindDebts:
		for i := range s.debts {
			if s.debts[i].ID == tempID {
				s.debts[i].ID = serverID
				break
			}
		}
	case cache.KindRules:
		for i := range s.rules {
			if s.rules[i].ID == tempID {
				s.rules[i].ID = serverID
				break
			}
		}
	}
	s.version++
	s.mu.Unlock()

	reconciliations.Add(context.Background(), 1)
	s.writeThrough(gen, kind)
}

func (s *Store) dropPending(gen uint64, id string) {
	s.mu.Lock()
	if s.generation == gen {
		delete(s.pending, id)
	}
	s.mu.Unlock()
}

// GrantXP adds to the progression entity, recomputes the level and
// persists both fields. A strict level increase emits a level-up
// notification; every grant surfaces its reason so mission completions
// are visible to the user.
func (s *Store) GrantXP(amount int64, reason string) {
	if amount <= 0 {
		return
	}

	s.mu.Lock()
	leveledUp := s.prog.Grant(amount)
	level := s.prog.Level
	prog := s.prog
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	log.Printf("ledger: +%d XP (%s)", amount, reason)
	s.notify(notification.Notification{
		Title:    fmt.Sprintf("+%d XP", amount),
		Message:  reason,
		Severity: notification.SeverityInfo,
		Category: notification.CategoryProgression,
	})
	if leveledUp {
		s.notify(notification.Notification{
			Title:    "Subiu de nível!",
			Message:  fmt.Sprintf("Você alcançou o nível %d.", level),
			Severity: notification.SeverityInfo,
			Category: notification.CategoryProgression,
		})
	}

	s.writeThrough(gen, cache.KindProgression)
	s.submit(syncqueue.Task{
		Description: "remote save progression",
		Run: func(ctx context.Context) error {
			return s.remote.SaveProgression(ctx, userID, prog)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindProgression, "save")
		},
	})
}

// CompleteOnboarding flips and persists the onboarding-seen flag.
func (s *Store) CompleteOnboarding() {
	s.mu.Lock()
	if s.prog.HasSeenOnboarding {
		s.mu.Unlock()
		return
	}
	s.prog.HasSeenOnboarding = true
	prog := s.prog
	gen := s.generation
	userID := s.userID
	s.version++
	s.mu.Unlock()

	s.writeThrough(gen, cache.KindProgression)
	s.submit(syncqueue.Task{
		Description: "remote save progression",
		Run: func(ctx context.Context) error {
			return s.remote.SaveProgression(ctx, userID, prog)
		},
		OnError: func(err error) {
			countSyncFailure(cache.KindProgression, "save")
		},
	})
}
