// Package storage provides abstractions for persistent actor state.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupledger/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists what the actor runtime commits.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the runtime.
type Store interface {
	// Commit applies one processed message atomically: actor snapshot,
	// balance updates and journal entry either all land or none do.
	Commit(ctx context.Context, c *models.Commit) error

	// LoadActor returns the latest snapshot of an actor.
	// Returns ErrNotFound if the actor was never committed.
	LoadActor(ctx context.Context, addr models.Address) (*models.ActorRecord, error)

	// LoadBalances returns every non-zero balance.
	LoadBalances(ctx context.Context) (map[models.Address]models.Coins, error)

	// ListJournal returns the most recent entries for addr, newest first.
	// A limit <= 0 returns all entries.
	ListJournal(ctx context.Context, addr models.Address, limit int) ([]*models.JournalEntry, error)

	// Close releases any resources held by the store.
	Close() error
}
