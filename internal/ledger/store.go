// Package ledger owns the canonical in-memory collections of financial
// entities. Mutations apply locally first (optimistic), then fan out to
// the durable cache and the remote store in the background; the local
// state is never rolled back on a remote failure, only flagged.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"centavo/internal/domain/category"
	"centavo/internal/domain/mission"
	"centavo/internal/domain/notification"
	"centavo/internal/domain/progression"
	"centavo/internal/domain/rule"
	"centavo/internal/domain/transaction"
	"centavo/internal/infrastructure/cache"
	"centavo/internal/models"
	"centavo/internal/platform/clock"
	"centavo/internal/report"
	"centavo/internal/syncqueue"
)

// XP stipend granted for logging a transaction.
const addTransactionXP = 10

var ErrNotFound = errors.New("entity not found in ledger")

var (
	ledgerMeter        = otel.Meter("centavo/ledger")
	mutationTotal, _   = ledgerMeter.Int64Counter("ledger.mutation.total", metric.WithDescription("Optimistic mutations by kind and op"))
	syncFailures, _    = ledgerMeter.Int64Counter("ledger.sync.failures", metric.WithDescription("Remote persistence failures"))
	reconciliations, _ = ledgerMeter.Int64Counter("ledger.reconciliation.total", metric.WithDescription("Temporary ids replaced by server-assigned ids"))
)

// Options wires a Store. Remote, Cache and Queue are required; Notifier,
// Resolver and Clock default to no-op/log, the built-in dictionary, and
// the system clock.
type Options struct {
	Remote   RemoteStore
	Cache    cache.Store
	Queue    *syncqueue.Queue
	Notifier notification.Notifier
	Resolver *category.Resolver
	Clock    clock.Clock
}

// Store is the client-resident ledger. All reads and mutations are served
// from memory; the cache and the remote store are write-through targets,
// never sources of truth once the store is warm.
type Store struct {
	remote   RemoteStore
	cache    cache.Store
	queue    *syncqueue.Queue
	notifier notification.Notifier
	resolver *category.Resolver
	clock    clock.Clock

	mu         sync.RWMutex
	userID     string
	generation uint64
	version    uint64
	loading    bool
	ready      chan struct{}

	txs   []transaction.Transaction
	cards []models.Card
	goals []models.Goal
	debts []models.Debt
	rules []rule.Rule
	prog  progression.Progression

	// pending maps a temporary id to its unconfirmed mutation so that
	// reconciliation matches strictly by the issued token, never by
	// position.
	pending map[string]string // temp id -> entity kind

	// dirty marks pending transactions edited before their insert
	// confirmed. The remote update is deferred until reconciliation hands
	// out the server id.
	dirty map[string]bool
}

func NewStore(opts Options) *Store {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notification.LogNotifier{}
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = category.NewResolver()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{
		remote:   opts.Remote,
		cache:    opts.Cache,
		queue:    opts.Queue,
		notifier: notifier,
		resolver: resolver,
		clock:    clk,
		ready:    make(chan struct{}),
		pending:  make(map[string]string),
		dirty:    make(map[string]bool),
		prog:     progression.Progression{Level: 1},
	}
}

// UserID returns the active user scope.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Version is bumped on every in-memory change; derived-state consumers
// key their memoization on it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Loading reports whether the critical fetch of the current load is still
// outstanding.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Ready returns a channel closed as soon as the critical transaction
// fetch of the current load resolves, success or failure.
func (s *Store) Ready() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Transactions returns a copy of the transaction collection.
func (s *Store) Transactions() []transaction.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]transaction.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

func (s *Store) Cards() []models.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *Store) Goals() []models.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Goal, len(s.goals))
	copy(out, s.goals)
	return out
}

func (s *Store) Debts() []models.Debt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Debt, len(s.debts))
	copy(out, s.debts)
	return out
}

func (s *Store) Rules() []rule.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rule.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *Store) Progression() progression.Progression {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prog
}

// Load switches the store to a user scope using stale-while-revalidate:
// cached snapshots hydrate the collections immediately, the critical
// transaction fetch gates readiness, and the secondary kinds load as an
// isolated parallel batch where one failure never affects the others.
// Only a fatal adapter error (ErrUnauthorized) is returned; a failed
// critical fetch degrades to a notification.
func (s *Store) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.userID = userID
	s.generation++
	gen := s.generation
	s.loading = true
	s.ready = make(chan struct{})
	ready := s.ready
	s.txs = nil
	s.cards = nil
	s.goals = nil
	s.debts = nil
	s.rules = nil
	s.prog = progression.Progression{Level: 1}
	s.pending = make(map[string]string)
	s.dirty = make(map[string]bool)
	s.version++
	s.mu.Unlock()

	s.hydrateFromCache(ctx, userID, gen)

	// Critical fetch: transactions gate the ready signal.
	txs, err := s.remote.ListTransactions(ctx, userID)
	if err != nil {
		s.finishLoading(gen, ready)
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		log.Printf("ledger: critical fetch failed for user %s: %v", userID, err)
		s.notify(notification.Notification{
			Title:    "Sem conexão",
			Message:  "Não foi possível carregar suas transações. Mostrando dados locais.",
			Severity: notification.SeverityError,
			Category: notification.CategorySync,
		})
		return nil
	}

	s.mu.Lock()
	if s.generation == gen {
		for i := range txs {
			txs[i].SyncStatus = transaction.SyncSynced
		}
		s.txs = txs
		s.version++
	}
	s.mu.Unlock()
	s.finishLoading(gen, ready)
	s.writeThrough(gen, cache.KindTransactions)

	// Secondary batch: each kind is fetched and applied independently; a
	// failure is skipped silently, leaving that kind as hydrated (or
	// empty) until the next load.
	var wg sync.WaitGroup
	secondary := []struct {
		kind  string
		fetch func() error
	}{
		{cache.KindCards, func() error {
			cards, err := s.remote.ListCards(ctx, userID)
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.generation == gen {
				s.cards = cards
				s.version++
			}
			s.mu.Unlock()
			return nil
		}},
		{cache.KindGoals, func() error {
			goals, err := s.remote.ListGoals(ctx, userID)
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.generation == gen {
				s.goals = goals
				s.version++
			}
			s.mu.Unlock()
			return nil
		}},
		{cache.KindDebts, func() error {
			debts, err := s.remote.ListDebts(ctx, userID)
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.generation == gen {
				s.debts = debts
				s.version++
			}
			s.mu.Unlock()
			return nil
		}},
		{cache.KindRules, func() error {
			rules, err := s.remote.ListRules(ctx, userID)
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.generation == gen {
				s.rules = rules
				s.version++
			}
			s.mu.Unlock()
			return nil
		}},
		{cache.KindProgression, func() error {
			prog, err := s.remote.GetProgression(ctx, userID)
			if err != nil {
				return err
			}
			if prog == nil {
				return nil
			}
			s.mu.Lock()
			if s.generation == gen {
				s.prog = *prog
				if s.prog.Level < 1 {
					s.prog.Level = progression.LevelForXP(s.prog.XP)
				}
				s.version++
			}
			s.mu.Unlock()
			return nil
		}},
	}

	for _, item := range secondary {
		wg.Add(1)
		go func(kind string, fetch func() error) {
			defer wg.Done()
			if err := fetch(); err != nil {
				log.Printf("ledger: secondary fetch %s failed for user %s: %v", kind, userID, err)
				return
			}
			s.writeThrough(gen, kind)
		}(item.kind, item.fetch)
	}
	wg.Wait()

	return nil
}

func (s *Store) finishLoading(gen uint64, ready chan struct{}) {
	s.mu.Lock()
	if s.generation == gen {
		s.loading = false
	}
	s.mu.Unlock()
	close(ready)
}

// hydrateFromCache restores each kind's last snapshot. Malformed or
// unreadable blobs are ignored per kind, falling back to an empty state.
func (s *Store) hydrateFromCache(ctx context.Context, userID string, gen uint64) {
	if s.cache == nil {
		return
	}

	restore := func(kind string, apply func(blob []byte) error) {
		blob, found, err := s.cache.Read(ctx, cache.Key(kind, userID))
		if err != nil || !found {
			if err != nil {
				log.Printf("ledger: cache read %s failed: %v", kind, err)
			}
			return
		}
		if err := apply(blob); err != nil {
			log.Printf("ledger: discarding corrupt cache entry %s: %v", kind, err)
		}
	}

	restore(cache.KindTransactions, func(blob []byte) error {
		var txs []transaction.Transaction
		if err := json.Unmarshal(blob, &txs); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.txs = txs
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
	restore(cache.KindCards, func(blob []byte) error {
		var cards []models.Card
		if err := json.Unmarshal(blob, &cards); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.cards = cards
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
	restore(cache.KindGoals, func(blob []byte) error {
		var goals []models.Goal
		if err := json.Unmarshal(blob, &goals); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.goals = goals
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
	restore(cache.KindDebts, func(blob []byte) error {
		var debts []models.Debt
		if err := json.Unmarshal(blob, &debts); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.debts = debts
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
	restore(cache.KindRules, func(blob []byte) error {
		var rules []rule.Rule
		if err := json.Unmarshal(blob, &rules); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.rules = rules
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
	restore(cache.KindProgression, func(blob []byte) error {
		var prog progression.Progression
		if err := json.Unmarshal(blob, &prog); err != nil {
			return err
		}
		s.mu.Lock()
		if s.generation == gen {
			s.prog = prog
			if s.prog.Level < 1 {
				s.prog.Level = progression.LevelForXP(s.prog.XP)
			}
			s.version++
		}
		s.mu.Unlock()
		return nil
	})
}

// writeThrough snapshots one kind into the cache via the sync queue. The
// snapshot is taken at submit time under the read lock.
func (s *Store) writeThrough(gen uint64, kind string) {
	if s.cache == nil {
		return
	}

	s.mu.RLock()
	if s.generation != gen {
		s.mu.RUnlock()
		return
	}
	userID := s.userID
	var payload any
	switch kind {
	case cache.KindTransactions:
		payload = append([]transaction.Transaction{}, s.txs...)
	case cache.KindCards:
		payload = append([]models.Card{}, s.cards...)
	case cache.KindGoals:
		payload = append([]models.Goal{}, s.goals...)
	case cache.KindDebts:
		payload = append([]models.Debt{}, s.debts...)
	case cache.KindRules:
		payload = append([]rule.Rule{}, s.rules...)
	case cache.KindProgression:
		payload = s.prog
	}
	s.mu.RUnlock()

	blob, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ledger: failed to encode %s snapshot: %v", kind, err)
		return
	}

	s.submit(syncqueue.Task{
		Description: fmt.Sprintf("cache write %s", kind),
		Run: func(ctx context.Context) error {
			return s.cache.Write(ctx, cache.Key(kind, userID), blob)
		},
	})
}

// submit hands a task to the queue, or runs it inline when the store was
// built without one (tests).
func (s *Store) submit(task syncqueue.Task) {
	if s.queue != nil {
		s.queue.Submit(task)
		return
	}
	if err := task.Run(context.Background()); err != nil && task.OnError != nil {
		task.OnError(err)
	}
}

func (s *Store) notify(n notification.Notification) {
	n.CreatedAt = s.clock.Now()
	s.notifier.Notify(n)
}

// ResetData wipes the user's local state: in-memory collections and every
// cache entry belonging to the scope. Remote data is left untouched.
func (s *Store) ResetData(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	s.generation++
	s.txs = nil
	s.cards = nil
	s.goals = nil
	s.debts = nil
	s.rules = nil
	s.prog = progression.Progression{Level: 1}
	s.pending = make(map[string]string)
	s.dirty = make(map[string]bool)
	s.version++
	s.mu.Unlock()

	if s.cache == nil || userID == "" {
		return nil
	}
	if err := s.cache.ClearUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}
	return nil
}

// MissionSnapshot assembles the aggregate view missions are evaluated
// against, using the report engine's memoized derivations.
func (s *Store) MissionSnapshot(engine *report.Engine, month time.Time) mission.Snapshot {
	s.mu.RLock()
	version := s.version
	txs := make([]transaction.Transaction, len(s.txs))
	copy(txs, s.txs)
	ruleCount := len(s.rules)
	goalCount := len(s.goals)
	s.mu.RUnlock()

	summary := engine.Summary(version, txs, month)

	today := clock.DayKey(s.clock.Now())
	hasToday := false
	for i := range txs {
		if txs[i].Date != nil && clock.DayKey(*txs[i].Date) == today {
			hasToday = true
			break
		}
	}

	return mission.Snapshot{
		Income:              summary.Income,
		Expenses:            summary.Expenses,
		Balance:             summary.Balance,
		TransactionCount:    len(txs),
		HasTransactionToday: hasToday,
		RuleCount:           ruleCount,
		GoalCount:           goalCount,
	}
}
