package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"centavo/internal/infrastructure/crypto"
)

// SQLiteStore persists cache entries in a single local sqlite file. When
// an Encryptor is supplied, blobs are sealed before they hit disk.
type SQLiteStore struct {
	db  *sql.DB
	enc *crypto.Encryptor
}

// NewSQLiteStore opens (and if needed creates) the cache database at
// dbPath. enc may be nil for plaintext storage.
func NewSQLiteStore(dbPath string, enc *crypto.Encryptor) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	s := &SQLiteStore{db: db, enc: enc}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS snapshots (
  key TEXT PRIMARY KEY,
  blob BLOB NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM snapshots WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	if s.enc != nil {
		plain, err := s.enc.Open(blob)
		if err != nil {
			// Undecryptable entries are treated as corrupt; callers fall
			// back to an empty initial state.
			return nil, false, fmt.Errorf("decrypt cache entry %s: %w", key, err)
		}
		blob = plain
	}
	return blob, true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, key string, blob []byte) error {
	if s.enc != nil {
		sealed, err := s.enc.Seal(blob)
		if err != nil {
			return fmt.Errorf("encrypt cache entry %s: %w", key, err)
		}
		blob = sealed
	}

	const stmt = `
INSERT INTO snapshots (key, blob, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, blob, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear cache entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ClearUser(ctx context.Context, userID string) error {
	// Snapshot keys end with the user id, day-keyed completion records
	// start with it. The underscore is escaped: it is a LIKE wildcard.
	const stmt = `DELETE FROM snapshots WHERE key LIKE '%\_' || ? ESCAPE '\' OR key LIKE ? || '\_%' ESCAPE '\'`
	if _, err := s.db.ExecContext(ctx, stmt, userID, userID); err != nil {
		return fmt.Errorf("clear cache for user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
