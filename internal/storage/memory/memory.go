// Package memory provides an in-process storage.Store for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps everything in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	actors   map[models.Address]models.ActorRecord
	balances map[models.Address]models.Coins
	journal  []models.JournalEntry
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		actors:   make(map[models.Address]models.ActorRecord),
		balances: make(map[models.Address]models.Coins),
	}
}

// Commit applies c under a single lock.
func (s *Store) Commit(_ context.Context, c *models.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Actor != nil {
		rec := *c.Actor
		rec.Snapshot = append([]byte(nil), c.Actor.Snapshot...)
		s.actors[rec.Address] = rec
	}
	for addr, amount := range c.Balances {
		if amount == 0 {
			delete(s.balances, addr)
			continue
		}
		s.balances[addr] = amount
	}
	if c.Journal != nil {
		s.journal = append(s.journal, *c.Journal)
	}
	return nil
}

func (s *Store) LoadActor(_ context.Context, addr models.Address) (*models.ActorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.actors[addr]
	if !ok {
		return nil, fmt.Errorf("actor %s: %w", addr, storage.ErrNotFound)
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return &rec, nil
}

func (s *Store) LoadBalances(context.Context) (map[models.Address]models.Coins, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Address]models.Coins, len(s.balances))
	for addr, amount := range s.balances {
		out[addr] = amount
	}
	return out, nil
}

func (s *Store) ListJournal(_ context.Context, addr models.Address, limit int) ([]*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.JournalEntry
	for i := len(s.journal) - 1; i >= 0; i-- {
		if s.journal[i].Address != addr {
			continue
		}
		entry := s.journal[i]
		out = append(out, &entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
