package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "groupledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	actor := models.MustParseAddress("0x1111111111111111111111111111111111111111")
	wallet := models.MustParseAddress("0x2222222222222222222222222222222222222222")

	t.Run("LoadActor returns ErrNotFound for unknown actor", func(t *testing.T) {
		_, err := store.LoadActor(ctx, actor)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Commit persists snapshot, balances and journal", func(t *testing.T) {
		commit := &models.Commit{
			Actor: &models.ActorRecord{
				Address:   actor,
				Code:      models.CodeHash{1, 2, 3},
				Snapshot:  []byte(`{"v":1}`),
				UpdatedAt: 100,
			},
			Balances: map[models.Address]models.Coins{
				actor:  models.Units(2),
				wallet: models.MustParseCoins("0.5"),
			},
			Journal: &models.JournalEntry{
				ID:          "msg-1",
				Address:     actor,
				Sender:      wallet,
				Opcode:      7,
				Value:       models.Units(2),
				Outcome:     models.OutcomeOK,
				GasUsed:     1200,
				ProcessedAt: 100,
			},
		}
		if err := store.Commit(ctx, commit); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		rec, err := store.LoadActor(ctx, actor)
		if err != nil {
			t.Fatalf("LoadActor failed: %v", err)
		}
		if string(rec.Snapshot) != `{"v":1}` {
			t.Errorf("Snapshot mismatch: got %s", rec.Snapshot)
		}
		if rec.Code != (models.CodeHash{1, 2, 3}) {
			t.Errorf("Code mismatch: got %x", rec.Code)
		}

		balances, err := store.LoadBalances(ctx)
		if err != nil {
			t.Fatalf("LoadBalances failed: %v", err)
		}
		if balances[wallet] != models.MustParseCoins("0.5") {
			t.Errorf("wallet balance: got %s, want 0.5", balances[wallet])
		}
	})

	t.Run("Commit updates snapshot and drops zero balances", func(t *testing.T) {
		err := store.Commit(ctx, &models.Commit{
			Actor:    &models.ActorRecord{Address: actor, Code: models.CodeHash{1, 2, 3}, Snapshot: []byte(`{"v":2}`), UpdatedAt: 200},
			Balances: map[models.Address]models.Coins{wallet: 0},
			Journal: &models.JournalEntry{
				ID: "msg-2", Address: actor, Sender: wallet, Outcome: "NotFound", Detail: "goal 9", ProcessedAt: 200,
			},
		})
		if err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		rec, _ := store.LoadActor(ctx, actor)
		if string(rec.Snapshot) != `{"v":2}` || rec.UpdatedAt != 200 {
			t.Errorf("expected updated snapshot, got %s at %d", rec.Snapshot, rec.UpdatedAt)
		}

		balances, _ := store.LoadBalances(ctx)
		if _, ok := balances[wallet]; ok {
			t.Error("zero balance should be deleted")
		}
	})

	t.Run("ListJournal returns newest first with limit", func(t *testing.T) {
		entries, err := store.ListJournal(ctx, actor, 0)
		if err != nil {
			t.Fatalf("ListJournal failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].ID != "msg-2" || entries[0].Detail != "goal 9" {
			t.Errorf("unexpected newest entry: %+v", entries[0])
		}
		if entries[1].GasUsed != 1200 || entries[1].Value != models.Units(2) {
			t.Errorf("unexpected oldest entry: %+v", entries[1])
		}

		limited, err := store.ListJournal(ctx, actor, 1)
		if err != nil {
			t.Fatalf("ListJournal failed: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 entry with limit, got %d", len(limited))
		}
	})

	t.Run("store reopens with existing data", func(t *testing.T) {
		reopened, err := New(dbPath)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		defer reopened.Close()

		if _, err := reopened.LoadActor(ctx, actor); err != nil {
			t.Errorf("expected actor after reopen: %v", err)
		}
	})
}
