package mission

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type memBlobStore struct {
	data map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{data: make(map[string][]byte)}
}

func (m *memBlobStore) Read(_ context.Context, key string) ([]byte, bool, error) {
	blob, ok := m.data[key]
	return blob, ok, nil
}

func (m *memBlobStore) Write(_ context.Context, key string, blob []byte) error {
	m.data[key] = blob
	return nil
}

type recordingGranter struct {
	grants []int64
	reason string
}

func (r *recordingGranter) GrantXP(amount int64, reason string) {
	r.grants = append(r.grants, amount)
	r.reason = reason
}

func findMission(missions []Mission, id string) *Mission {
	for i := range missions {
		if missions[i].ID == id {
			return &missions[i]
		}
	}
	return nil
}

func TestEvaluateOmitsIneligible(t *testing.T) {
	engine := NewEngine(newMemBlobStore(), nil, &fakeClock{now: time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)}, "u1")

	snap := Snapshot{
		Income:   decimal.NewFromInt(1000),
		Expenses: decimal.NewFromInt(100), // below the 40% guard
		Balance:  decimal.NewFromInt(50),  // below the positive-balance guard
	}
	missions := engine.Evaluate(context.Background(), snap)

	if findMission(missions, "spending-check") != nil {
		t.Error("spending-check should be omitted when expenses are under 40% of income")
	}
	if findMission(missions, "positive-balance") != nil {
		t.Error("positive-balance should be omitted for a low balance")
	}
	if findMission(missions, "daily-review") == nil {
		t.Error("the evergreen mission must always be present")
	}
}

func TestEvaluateSpendingGuard(t *testing.T) {
	engine := NewEngine(newMemBlobStore(), nil, &fakeClock{now: time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)}, "u1")

	snap := Snapshot{
		Income:   decimal.NewFromInt(1000),
		Expenses: decimal.NewFromInt(500),
	}
	missions := engine.Evaluate(context.Background(), snap)
	if findMission(missions, "spending-check") == nil {
		t.Error("spending-check should be eligible when expenses exceed 40% of income")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)}
	blobs := newMemBlobStore()
	granter := &recordingGranter{}
	engine := NewEngine(blobs, granter, clk, "u1")
	ctx := context.Background()

	if err := engine.Complete(ctx, "daily-review"); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if err := engine.Complete(ctx, "daily-review"); err != nil {
		t.Fatalf("second completion: %v", err)
	}

	if len(granter.grants) != 1 {
		t.Fatalf("XP granted %d times, want exactly 1", len(granter.grants))
	}
	if granter.grants[0] != 10 {
		t.Errorf("granted %d XP, want 10", granter.grants[0])
	}
	if granter.reason == "" {
		t.Error("XP grant must carry a textual reason")
	}
	if len(blobs.data) != 1 {
		t.Fatalf("expected exactly one persisted completion record, got %d", len(blobs.data))
	}

	missions := engine.Evaluate(ctx, Snapshot{})
	m := findMission(missions, "daily-review")
	if m == nil || !m.IsCompleted {
		t.Error("completed mission should evaluate as completed on the same day")
	}
}

func TestDayRolloverResetsCompletion(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 3, 23, 50, 0, 0, time.UTC)}
	engine := NewEngine(newMemBlobStore(), &recordingGranter{}, clk, "u1")
	ctx := context.Background()

	if err := engine.Complete(ctx, "daily-review"); err != nil {
		t.Fatal(err)
	}

	// Midnight passes; same aggregates, new day key.
	clk.now = clk.now.Add(20 * time.Minute)

	missions := engine.Evaluate(ctx, Snapshot{})
	m := findMission(missions, "daily-review")
	if m == nil {
		t.Fatal("evergreen mission missing")
	}
	if m.IsCompleted {
		t.Error("mission completed on day D must be eligible-incomplete on day D+1")
	}
}

func TestCompleteUnknownMission(t *testing.T) {
	engine := NewEngine(newMemBlobStore(), nil, &fakeClock{now: time.Now()}, "u1")
	if err := engine.Complete(context.Background(), "no-such-mission"); err == nil {
		t.Error("expected error for unknown mission id")
	}
}

func TestCompletionIsUserScoped(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 3, 10, 0, 0, 0, time.UTC)}
	blobs := newMemBlobStore()
	engine := NewEngine(blobs, &recordingGranter{}, clk, "u1")
	ctx := context.Background()

	if err := engine.Complete(ctx, "daily-review"); err != nil {
		t.Fatal(err)
	}

	engine.SetUser("u2")
	missions := engine.Evaluate(ctx, Snapshot{})
	if m := findMission(missions, "daily-review"); m == nil || m.IsCompleted {
		t.Error("completions must not leak across user scopes")
	}
}
