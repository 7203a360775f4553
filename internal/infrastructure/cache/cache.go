// Package cache is the local durable store for warm-start snapshots.
// Entries are opaque serialized blobs keyed per user scope; the ledger
// store is the only writer.
package cache

import (
	"context"
	"fmt"
)

// Entity kinds used to build cache keys.
const (
	KindTransactions = "transactions"
	KindCards        = "cards"
	KindGoals        = "goals"
	KindDebts        = "debts"
	KindRules        = "rules"
	KindProgression  = "progression"
)

// Key builds the `<kind>_<userID>` cache key for an entity snapshot.
func Key(kind, userID string) string {
	return fmt.Sprintf("%s_%s", kind, userID)
}

// Store reads and writes serialized snapshots. Absent keys are not errors:
// Read reports found=false.
type Store interface {
	Read(ctx context.Context, key string) (blob []byte, found bool, err error)
	Write(ctx context.Context, key string, blob []byte) error
	Clear(ctx context.Context, key string) error
	// ClearUser purges every entry belonging to a user scope, both
	// `<kind>_<userID>` snapshots and `<userID>_<day>` completion records.
	ClearUser(ctx context.Context, userID string) error
	Close() error
}
