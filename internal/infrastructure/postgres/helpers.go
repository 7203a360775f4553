package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Nullable argument helpers for COALESCE-based partial updates. A nil
// pointer becomes SQL NULL, leaving the column untouched.

func strArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func decArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func requireRow(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s not found", entity)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
