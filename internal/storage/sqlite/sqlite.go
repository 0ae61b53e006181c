// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrent writers poorly; every actor commits through here.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Commit persists one processed message in a single transaction.
func (s *SQLiteStore) Commit(ctx context.Context, c *models.Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if c.Actor != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO actors (address, code, snapshot, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(address) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
			c.Actor.Address[:], c.Actor.Code[:], c.Actor.Snapshot, c.Actor.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert actor: %w", err)
		}
	}

	for addr, amount := range c.Balances {
		if err := upsertBalance(ctx, tx, addr, amount); err != nil {
			return err
		}
	}

	if c.Journal != nil {
		if err := insertJournal(ctx, tx, c.Journal); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadActor retrieves the latest snapshot of an actor.
func (s *SQLiteStore) LoadActor(ctx context.Context, addr models.Address) (*models.ActorRecord, error) {
	rec := &models.ActorRecord{Address: addr}
	var code []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT code, snapshot, updated_at FROM actors WHERE address = ?",
		addr[:],
	).Scan(&code, &rec.Snapshot, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("actor %s: %w", addr, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if len(code) != len(rec.Code) {
		return nil, fmt.Errorf("actor %s: corrupt code hash of %d bytes", addr, len(code))
	}
	copy(rec.Code[:], code)
	return rec, nil
}
