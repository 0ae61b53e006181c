package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/groupledger/internal/models"
)

func insertJournal(ctx context.Context, tx *sql.Tx, entry *models.JournalEntry) error {
	var detail interface{} = nil
	if entry.Detail != "" {
		detail = entry.Detail
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO journal (id, address, sender, opcode, value, outcome, detail, gas_used, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Address[:], entry.Sender[:], entry.Opcode, int64(entry.Value),
		entry.Outcome, detail, int64(entry.GasUsed), entry.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// ListJournal retrieves journal entries for an address, newest first.
func (s *SQLiteStore) ListJournal(ctx context.Context, addr models.Address, limit int) ([]*models.JournalEntry, error) {
	query := `SELECT id, sender, opcode, value, outcome, detail, gas_used, processed_at
		 FROM journal WHERE address = ? ORDER BY seq DESC`
	args := []interface{}{addr[:]}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		entry := &models.JournalEntry{Address: addr}
		var sender []byte
		var value, gas int64
		var detail sql.NullString

		if err := rows.Scan(&entry.ID, &sender, &entry.Opcode, &value, &entry.Outcome,
			&detail, &gas, &entry.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.Sender, err = models.AddressFromBytes(sender)
		if err != nil {
			return nil, fmt.Errorf("failed to decode journal sender: %w", err)
		}
		entry.Value = models.Coins(uint64(value))
		entry.GasUsed = uint64(gas)
		if detail.Valid {
			entry.Detail = detail.String
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal: %w", err)
	}

	return entries, nil
}
