package mission

import (
	"context"
	"encoding/json"
	"fmt"

	"centavo/internal/platform/clock"
)

// BlobStore is the slice of the durable cache the completion log needs.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, blob []byte) error
}

// XPGranter receives the reward of a completed mission.
type XPGranter interface {
	GrantXP(amount int64, reason string)
}

// Engine evaluates the catalog against aggregate snapshots and manages the
// day-keyed completion ledger. Completion is terminal for the current day;
// a new day key resets every mission because the lookup misses.
type Engine struct {
	blobs   BlobStore
	granter XPGranter
	clock   clock.Clock
	catalog []Template
	userID  string
}

func NewEngine(blobs BlobStore, granter XPGranter, clk clock.Clock, userID string) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	return &Engine{
		blobs:   blobs,
		granter: granter,
		clock:   clk,
		catalog: Catalog,
		userID:  userID,
	}
}

// SetUser rebinds the engine to another user scope.
func (e *Engine) SetUser(userID string) {
	e.userID = userID
}

func (e *Engine) completionKey() string {
	return fmt.Sprintf("%s_%s", e.userID, clock.DayKey(e.clock.Now()))
}

// completedToday loads the set of mission ids completed under today's day
// key. A missing or corrupt blob yields an empty set.
func (e *Engine) completedToday(ctx context.Context) map[string]bool {
	done := make(map[string]bool)
	blob, found, err := e.blobs.Read(ctx, e.completionKey())
	if err != nil || !found {
		return done
	}
	var ids []string
	if err := json.Unmarshal(blob, &ids); err != nil {
		return done
	}
	for _, id := range ids {
		done[id] = true
	}
	return done
}

// Evaluate derives the prioritized mission list for the given snapshot.
// Templates whose guard rejects the snapshot are omitted entirely.
func (e *Engine) Evaluate(ctx context.Context, snap Snapshot) []Mission {
	done := e.completedToday(ctx)

	missions := make([]Mission, 0, len(e.catalog))
	for _, tpl := range e.catalog {
		if tpl.Eligible != nil && !tpl.Eligible(snap) {
			continue
		}
		missions = append(missions, Mission{
			ID:          tpl.ID,
			Title:       tpl.Title,
			Description: tpl.Description,
			Category:    tpl.Category,
			Icon:        tpl.Icon,
			XP:          tpl.XP,
			IsCompleted: done[tpl.ID],
		})
	}
	return missions
}

// Complete marks a mission as done for the current day. It is idempotent:
// completing an already-completed mission grants nothing and rewrites
// nothing. The first completion persists the day-keyed record and grants
// the template's XP reward.
func (e *Engine) Complete(ctx context.Context, missionID string) error {
	var tpl *Template
	for i := range e.catalog {
		if e.catalog[i].ID == missionID {
			tpl = &e.catalog[i]
			break
		}
	}
	if tpl == nil {
		return fmt.Errorf("%w: %s", ErrMissionNotFound, missionID)
	}

	done := e.completedToday(ctx)
	if done[missionID] {
		return nil
	}

	ids := make([]string, 0, len(done)+1)
	for id := range done {
		ids = append(ids, id)
	}
	ids = append(ids, missionID)

	blob, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode completion record: %w", err)
	}
	if err := e.blobs.Write(ctx, e.completionKey(), blob); err != nil {
		return fmt.Errorf("failed to persist mission completion: %w", err)
	}

	if e.granter != nil {
		e.granter.GrantXP(tpl.XP, fmt.Sprintf("Missão concluída: %s", tpl.Title))
	}
	return nil
}
