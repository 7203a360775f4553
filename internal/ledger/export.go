package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportCSV writes every transaction in the store, unpaginated, with a
// header row. Dates use the ISO day format; empty dates stay blank.
func (s *Store) ExportCSV(w io.Writer) error {
	txs := s.Transactions()

	cw := csv.NewWriter(w)
	header := []string{"id", "title", "amount", "type", "category", "account", "date", "recurring", "installment", "tags", "sync_status"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, t := range txs {
		date := ""
		if t.Date != nil {
			date = t.Date.Format(time.DateOnly)
		}
		row := []string{
			t.ID,
			t.Title,
			t.Amount.String(),
			t.Type,
			t.Category,
			t.Account,
			date,
			fmt.Sprintf("%t", t.Recurring),
			t.Installment,
			strings.Join(t.Tags, ";"),
			t.SyncStatus,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON writes the full transaction collection as an indented array.
func (s *Store) ExportJSON(w io.Writer) error {
	txs := s.Transactions()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	return nil
}
