package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"centavo/internal/domain/notification"
	"centavo/internal/domain/progression"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/infrastructure/cache"
	"centavo/internal/models"
	"centavo/internal/syncqueue"
)

type mockRemote struct {
	insertTransactionFunc func(ctx context.Context, userID string, t transaction.Transaction) (transaction.Transaction, error)
	updateTransactionFunc func(ctx context.Context, userID, id string, patch transaction.UpdateParams) error
	deleteTransactionFunc func(ctx context.Context, userID, id string) error
	listTransactionsFunc  func(ctx context.Context, userID string) ([]transaction.Transaction, error)

	insertCardFunc func(ctx context.Context, userID string, c models.Card) (models.Card, error)
	listCardsFunc  func(ctx context.Context, userID string) ([]models.Card, error)

	insertGoalFunc func(ctx context.Context, userID string, g models.Goal) (models.Goal, error)
	listGoalsFunc  func(ctx context.Context, userID string) ([]models.Goal, error)

	listDebtsFunc func(ctx context.Context, userID string) ([]models.Debt, error)

	insertRuleFunc func(ctx context.Context, userID string, r rule.Rule) (rule.Rule, error)
	listRulesFunc  func(ctx context.Context, userID string) ([]rule.Rule, error)

	getProgressionFunc  func(ctx context.Context, userID string) (*progression.Progression, error)
	saveProgressionFunc func(ctx context.Context, userID string, p progression.Progression) error
}

func (m *mockRemote) InsertTransaction(ctx context.Context, userID string, t transaction.Transaction) (transaction.Transaction, error) {
	if m.insertTransactionFunc != nil {
		return m.insertTransactionFunc(ctx, userID, t)
	}
	t.ID = "srv-" + t.Title
	return t, nil
}

func (m *mockRemote) UpdateTransaction(ctx context.Context, userID, id string, patch transaction.UpdateParams) error {
	if m.updateTransactionFunc != nil {
		return m.updateTransactionFunc(ctx, userID, id, patch)
	}
	return nil
}

func (m *mockRemote) DeleteTransaction(ctx context.Context, userID, id string) error {
	if m.deleteTransactionFunc != nil {
		return m.deleteTransactionFunc(ctx, userID, id)
	}
	return nil
}

func (m *mockRemote) ListTransactions(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	if m.listTransactionsFunc != nil {
		return m.listTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) InsertCard(ctx context.Context, userID string, c models.Card) (models.Card, error) {
	if m.insertCardFunc != nil {
		return m.insertCardFunc(ctx, userID, c)
	}
	c.ID = "srv-" + c.Name
	return c, nil
}

func (m *mockRemote) UpdateCard(ctx context.Context, userID string, c models.Card) error { return nil }

func (m *mockRemote) DeleteCard(ctx context.Context, userID, id string) error { return nil }

func (m *mockRemote) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	if m.listCardsFunc != nil {
		return m.listCardsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) InsertGoal(ctx context.Context, userID string, g models.Goal) (models.Goal, error) {
	if m.insertGoalFunc != nil {
		return m.insertGoalFunc(ctx, userID, g)
	}
	g.ID = "srv-" + g.Name
	return g, nil
}

func (m *mockRemote) UpdateGoal(ctx context.Context, userID string, g models.Goal) error { return nil }

func (m *mockRemote) DeleteGoal(ctx context.Context, userID, id string) error { return nil }

func (m *mockRemote) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	if m.listGoalsFunc != nil {
		return m.listGoalsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) InsertDebt(ctx context.Context, userID string, d models.Debt) (models.Debt, error) {
	d.ID = "srv-" + d.Name
	return d, nil
}

func (m *mockRemote) UpdateDebt(ctx context.Context, userID string, d models.Debt) error { return nil }

func (m *mockRemote) DeleteDebt(ctx context.Context, userID, id string) error { return nil }

func (m *mockRemote) ListDebts(ctx context.Context, userID string) ([]models.Debt, error) {
	if m.listDebtsFunc != nil {
		return m.listDebtsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) InsertRule(ctx context.Context, userID string, r rule.Rule) (rule.Rule, error) {
	if m.insertRuleFunc != nil {
		return m.insertRuleFunc(ctx, userID, r)
	}
	r.ID = "srv-" + r.Keyword
	return r, nil
}

func (m *mockRemote) DeleteRule(ctx context.Context, userID, id string) error { return nil }

func (m *mockRemote) ListRules(ctx context.Context, userID string) ([]rule.Rule, error) {
	if m.listRulesFunc != nil {
		return m.listRulesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) GetProgression(ctx context.Context, userID string) (*progression.Progression, error) {
	if m.getProgressionFunc != nil {
		return m.getProgressionFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockRemote) SaveProgression(ctx context.Context, userID string, p progression.Progression) error {
	if m.saveProgressionFunc != nil {
		return m.saveProgressionFunc(ctx, userID, p)
	}
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Read(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.entries[key]
	return blob, ok, nil
}

func (m *memCache) Write(ctx context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), blob...)
	return nil
}

func (m *memCache) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memCache) ClearUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasSuffix(key, "_"+userID) || strings.HasPrefix(key, userID+"_") {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memCache) Close() error { return nil }

type captureNotifier struct {
	mu   sync.Mutex
	seen []notification.Notification
}

func (c *captureNotifier) Notify(n notification.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, n)
}

func (c *captureNotifier) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.seen))
	for _, n := range c.seen {
		out = append(out, n.Title)
	}
	return out
}

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time { return f.at }

func newTestStore(remote RemoteStore) (*Store, *captureNotifier) {
	notifier := &captureNotifier{}
	return NewStore(Options{
		Remote:   remote,
		Cache:    newMemCache(),
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}), notifier
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestAddTransactionOptimistic(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	amount, _ := decimal.NewFromString("150.50")
	created, err := store.AddTransaction(transaction.CreateParams{
		Title:  "Mercado Central",
		Amount: amount,
		Type:   transaction.TypeExpense,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !created.IsTemporary() {
		t.Errorf("expected a temporary id, got %s", created.ID)
	}
	if created.Amount.String() != "-150.5" {
		t.Errorf("expected normalized amount -150.5, got %s", created.Amount.String())
	}
	if created.Category != "Mercado" {
		t.Errorf("expected heuristic category Mercado, got %s", created.Category)
	}

	// The inline queue reconciles before AddTransaction returns.
	txs := store.Transactions()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].ID != "srv-Mercado Central" {
		t.Errorf("expected server id after reconciliation, got %s", txs[0].ID)
	}
	if txs[0].SyncStatus != transaction.SyncSynced {
		t.Errorf("expected synced status, got %s", txs[0].SyncStatus)
	}
	if got := store.Progression().XP; got != addTransactionXP {
		t.Errorf("expected %d XP after add, got %d", addTransactionXP, got)
	}
}

func TestAddTransactionRuleBeatsHeuristic(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := store.AddRule(rule.CreateParams{Keyword: "mercado", Category: "Casa"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, err := store.AddTransaction(transaction.CreateParams{
		Title:  "Mercado Central",
		Amount: decimal.NewFromInt(40),
		Type:   transaction.TypeExpense,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Category != "Casa" {
		t.Errorf("expected rule category Casa, got %s", created.Category)
	}
}

func TestAddTransactionRemoteFailureKeepsLocal(t *testing.T) {
	remote := &mockRemote{
		insertTransactionFunc: func(ctx context.Context, userID string, tx transaction.Transaction) (transaction.Transaction, error) {
			return transaction.Transaction{}, errors.New("backend down")
		},
	}
	store, notifier := newTestStore(remote)
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	created, err := store.AddTransaction(transaction.CreateParams{
		Title:  "Farmácia",
		Amount: decimal.NewFromInt(30),
		Type:   transaction.TypeExpense,
	})
	if err != nil {
		t.Fatalf("optimistic add must not surface the remote failure: %v", err)
	}

	txs := store.Transactions()
	if len(txs) != 1 {
		t.Fatalf("expected the entry to survive the failure, got %d transactions", len(txs))
	}
	if !txs[0].IsTemporary() {
		t.Errorf("failed insert must keep the temporary id, got %s", txs[0].ID)
	}
	if txs[0].SyncStatus != transaction.SyncFailed {
		t.Errorf("expected failed status, got %s", txs[0].SyncStatus)
	}
	if created.ID != txs[0].ID {
		t.Errorf("id changed unexpectedly: %s vs %s", created.ID, txs[0].ID)
	}

	found := false
	for _, title := range notifier.titles() {
		if title == "Sincronização pendente" {
			found = true
		}
	}
	if !found {
		t.Error("expected a sync failure notification")
	}
}

func TestReconciliationMatchesByTempID(t *testing.T) {
	release := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	remote := &mockRemote{
		insertTransactionFunc: func(ctx context.Context, userID string, tx transaction.Transaction) (transaction.Transaction, error) {
			<-release[tx.Title]
			tx.ID = "srv-" + tx.Title
			return tx, nil
		},
	}

	queue := syncqueue.New(4, 16)
	queue.Start()
	defer queue.Shutdown(2 * time.Second)

	notifier := &captureNotifier{}
	store := NewStore(Options{
		Remote:   remote,
		Cache:    newMemCache(),
		Queue:    queue,
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	})

	txA, err := store.AddTransaction(transaction.CreateParams{Title: "A", Amount: decimal.NewFromInt(10), Type: transaction.TypeIncome})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txB, err := store.AddTransaction(transaction.CreateParams{Title: "B", Amount: decimal.NewFromInt(20), Type: transaction.TypeIncome})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txA.ID == txB.ID {
		t.Fatal("temporary ids must be distinct")
	}

	// Confirm in reverse order: B resolves while A is still in flight.
	close(release["B"])
	waitFor(t, func() bool {
		for _, tx := range store.Transactions() {
			if tx.Title == "B" && tx.ID == "srv-B" {
				return true
			}
		}
		return false
	})

	for _, tx := range store.Transactions() {
		if tx.Title == "A" && tx.ID != txA.ID {
			t.Errorf("A was reassigned before its own confirmation: %s", tx.ID)
		}
	}

	close(release["A"])
	queue.Wait()

	for _, tx := range store.Transactions() {
		switch tx.Title {
		case "A":
			if tx.ID != "srv-A" {
				t.Errorf("expected srv-A, got %s", tx.ID)
			}
		case "B":
			if tx.ID != "srv-B" {
				t.Errorf("expected srv-B, got %s", tx.ID)
			}
		}
		if tx.SyncStatus != transaction.SyncSynced {
			t.Errorf("transaction %s not synced: %s", tx.Title, tx.SyncStatus)
		}
	}
}

func TestLoadSecondaryFailureIsIsolated(t *testing.T) {
	remote := &mockRemote{
		listTransactionsFunc: func(ctx context.Context, userID string) ([]transaction.Transaction, error) {
			return []transaction.Transaction{{ID: "t1", Title: "Salário", Amount: decimal.NewFromInt(5000), Type: transaction.TypeIncome}}, nil
		},
		listCardsFunc: func(ctx context.Context, userID string) ([]models.Card, error) {
			return nil, errors.New("cards endpoint down")
		},
		listGoalsFunc: func(ctx context.Context, userID string) ([]models.Goal, error) {
			return []models.Goal{{ID: "g1", Name: "Reserva", Target: decimal.NewFromInt(10000)}}, nil
		},
	}
	store, _ := newTestStore(remote)

	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("a secondary failure must not fail the load: %v", err)
	}

	if len(store.Transactions()) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(store.Transactions()))
	}
	if len(store.Cards()) != 0 {
		t.Errorf("expected no cards after the failed fetch, got %d", len(store.Cards()))
	}
	if len(store.Goals()) != 1 {
		t.Errorf("expected 1 goal, got %d", len(store.Goals()))
	}
}

func TestLoadUnauthorizedPropagates(t *testing.T) {
	remote := &mockRemote{
		listTransactionsFunc: func(ctx context.Context, userID string) ([]transaction.Transaction, error) {
			return nil, ErrUnauthorized
		},
	}
	store, _ := newTestStore(remote)

	err := store.Load(context.Background(), "u1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoadCriticalFailureDegradesToNotification(t *testing.T) {
	remote := &mockRemote{
		listTransactionsFunc: func(ctx context.Context, userID string) ([]transaction.Transaction, error) {
			return nil, errors.New("timeout")
		},
	}
	store, notifier := newTestStore(remote)

	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("a plain network failure must not fail the load: %v", err)
	}
	select {
	case <-store.Ready():
	default:
		t.Error("ready must be signaled even when the critical fetch fails")
	}
	if store.Loading() {
		t.Error("loading flag must clear after the critical fetch resolves")
	}

	found := false
	for _, title := range notifier.titles() {
		if title == "Sem conexão" {
			found = true
		}
	}
	if !found {
		t.Error("expected an offline notification")
	}
}

func TestLoadSupersededGenerationIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	remote := &mockRemote{
		listTransactionsFunc: func(ctx context.Context, userID string) ([]transaction.Transaction, error) {
			if userID == "u1" {
				close(entered)
				<-release
				return []transaction.Transaction{{ID: "old", Title: "Antigo"}}, nil
			}
			return []transaction.Transaction{{ID: "new", Title: "Atual"}}, nil
		},
	}
	store, _ := newTestStore(remote)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := store.Load(context.Background(), "u1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	<-entered
	if err := store.Load(context.Background(), "u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	<-done

	if got := store.UserID(); got != "u2" {
		t.Fatalf("expected active scope u2, got %s", got)
	}
	txs := store.Transactions()
	if len(txs) != 1 || txs[0].ID != "new" {
		t.Fatalf("stale load leaked into the current scope: %+v", txs)
	}
}

func TestLoadHydratesFromCacheAndIgnoresCorruptEntries(t *testing.T) {
	mem := newMemCache()
	goalsBlob, _ := json.Marshal([]models.Goal{{ID: "g1", Name: "Viagem"}})
	mem.entries[cache.Key(cache.KindGoals, "u1")] = goalsBlob
	mem.entries[cache.Key(cache.KindTransactions, "u1")] = []byte("{not json")

	remote := &mockRemote{
		listGoalsFunc: func(ctx context.Context, userID string) ([]models.Goal, error) {
			return nil, errors.New("offline")
		},
	}
	notifier := &captureNotifier{}
	store := NewStore(Options{
		Remote:   remote,
		Cache:    mem,
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	})

	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	goals := store.Goals()
	if len(goals) != 1 || goals[0].Name != "Viagem" {
		t.Fatalf("expected the cached goal snapshot to survive, got %+v", goals)
	}
	if len(store.Transactions()) != 0 {
		t.Error("corrupt snapshot must fall back to an empty collection")
	}
}

func TestEditTransactionRenormalizesOnTypeChange(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := store.AddTransaction(transaction.CreateParams{
		Title:  "Consultoria",
		Amount: decimal.NewFromInt(200),
		Type:   transaction.TypeExpense,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs := store.Transactions()
	newType := transaction.TypeIncome
	if err := store.EditTransaction(txs[0].ID, transaction.UpdateParams{Type: &newType}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.Transactions()[0]
	if got.Amount.String() != "200" {
		t.Errorf("expected re-signed amount 200, got %s", got.Amount.String())
	}
}

func TestEditTransactionWhilePendingDefersRemoteUpdate(t *testing.T) {
	release := make(chan struct{})

	var mu sync.Mutex
	type update struct {
		id    string
		patch transaction.UpdateParams
	}
	var updates []update

	remote := &mockRemote{
		insertTransactionFunc: func(ctx context.Context, userID string, tx transaction.Transaction) (transaction.Transaction, error) {
			<-release
			tx.ID = "srv-" + tx.Title
			return tx, nil
		},
		updateTransactionFunc: func(ctx context.Context, userID, id string, patch transaction.UpdateParams) error {
			mu.Lock()
			updates = append(updates, update{id: id, patch: patch})
			mu.Unlock()
			return nil
		},
	}

	queue := syncqueue.New(4, 16)
	queue.Start()
	defer queue.Shutdown(2 * time.Second)

	notifier := &captureNotifier{}
	store := NewStore(Options{
		Remote:   remote,
		Cache:    newMemCache(),
		Queue:    queue,
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	})

	created, err := store.AddTransaction(transaction.CreateParams{Title: "Feira", Amount: decimal.NewFromInt(80), Type: transaction.TypeExpense})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The insert has not confirmed: the server does not know the temporary
	// id yet, so the edit must stay local for now.
	newTitle := "Feira Orgânica"
	if err := store.EditTransaction(created.ID, transaction.UpdateParams{Title: &newTitle}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	if len(updates) != 0 {
		t.Fatalf("update sent before the insert confirmed: %+v", updates)
	}
	mu.Unlock()
	if got := store.Transactions()[0].Title; got != newTitle {
		t.Errorf("local title = %q, want %q", got, newTitle)
	}

	close(release)
	queue.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1 {
		t.Fatalf("got %d remote updates, want 1", len(updates))
	}
	if updates[0].id != "srv-Feira" {
		t.Errorf("update targeted %q, want the server id srv-Feira", updates[0].id)
	}
	if updates[0].patch.Title == nil || *updates[0].patch.Title != newTitle {
		t.Errorf("replayed patch lost the edit: %+v", updates[0].patch)
	}

	got := store.Transactions()[0]
	if got.ID != "srv-Feira" || got.SyncStatus != transaction.SyncSynced {
		t.Errorf("transaction = %s/%s, want srv-Feira/synced", got.ID, got.SyncStatus)
	}
}

func TestEditTransactionNotFound(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	err := store.EditTransaction("missing", transaction.UpdateParams{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveTransaction(t *testing.T) {
	deleted := ""
	remote := &mockRemote{
		deleteTransactionFunc: func(ctx context.Context, userID, id string) error {
			deleted = id
			return nil
		},
	}
	store, _ := newTestStore(remote)
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := store.AddTransaction(transaction.CreateParams{Title: "Cinema", Amount: decimal.NewFromInt(50), Type: transaction.TypeExpense}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id := store.Transactions()[0].ID
	if err := store.RemoveTransaction(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Transactions()) != 0 {
		t.Error("expected the transaction to be removed")
	}
	if deleted != id {
		t.Errorf("expected a remote delete for %s, got %q", id, deleted)
	}
}

func TestGrantXPLevelUpNotifies(t *testing.T) {
	store, notifier := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	store.GrantXP(490, "Quase lá")
	if store.Progression().Level != 1 {
		t.Fatalf("expected level 1 at 490 XP, got %d", store.Progression().Level)
	}
	store.GrantXP(20, "Missão concluída: Revisar gastos")

	prog := store.Progression()
	if prog.XP != 510 {
		t.Errorf("expected 510 XP, got %d", prog.XP)
	}
	if prog.Level != 2 {
		t.Errorf("expected level 2, got %d", prog.Level)
	}

	leveled := false
	for _, title := range notifier.titles() {
		if title == "Subiu de nível!" {
			leveled = true
		}
	}
	if !leveled {
		t.Error("expected a level-up notification")
	}
}

func TestResetDataClearsMemoryAndCache(t *testing.T) {
	mem := newMemCache()
	notifier := &captureNotifier{}
	store := NewStore(Options{
		Remote:   &mockRemote{},
		Cache:    mem,
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := store.AddTransaction(transaction.CreateParams{Title: "Padaria", Amount: decimal.NewFromInt(12), Type: transaction.TypeExpense}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mem.entries) == 0 {
		t.Fatal("expected cache entries before the reset")
	}

	if err := store.ResetData(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.Transactions()) != 0 {
		t.Error("expected in-memory transactions to be wiped")
	}
	if store.Progression().XP != 0 {
		t.Error("expected progression to reset")
	}
	for key := range mem.entries {
		if strings.HasSuffix(key, "_u1") {
			t.Errorf("cache entry survived the reset: %s", key)
		}
	}
}

func TestExportCSV(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := store.AddTransaction(transaction.CreateParams{
		Title:  "Internet",
		Amount: decimal.NewFromInt(99),
		Type:   transaction.TypeExpense,
		Date:   &date,
		Tags:   []string{"casa", "fixo"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := store.ExportCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,title,amount") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	row := lines[1]
	for _, want := range []string{"Internet", "-99", "2025-03-10", "casa;fixo"} {
		if !strings.Contains(row, want) {
			t.Errorf("row missing %q: %s", want, row)
		}
	}
}

func TestExportJSON(t *testing.T) {
	store, _ := newTestStore(&mockRemote{})
	if err := store.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, err := store.AddTransaction(transaction.CreateParams{Title: "Luz", Amount: decimal.NewFromInt(180), Type: transaction.TypeExpense}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := store.ExportJSON(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []transaction.Transaction
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Title != "Luz" {
		t.Fatalf("unexpected export contents: %+v", decoded)
	}
}
