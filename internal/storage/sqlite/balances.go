package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/groupledger/internal/models"
)

// upsertBalance writes one balance inside a commit; zero balances are deleted.
func upsertBalance(ctx context.Context, tx *sql.Tx, addr models.Address, amount models.Coins) error {
	if amount == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM balances WHERE address = ?", addr[:]); err != nil {
			return fmt.Errorf("failed to delete balance: %w", err)
		}
		return nil
	}
	// SQLite integers are signed; the bit pattern round-trips through int64.
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balances (address, amount) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET amount = excluded.amount`,
		addr[:], int64(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

// LoadBalances retrieves every stored balance.
func (s *SQLiteStore) LoadBalances(ctx context.Context) (map[models.Address]models.Coins, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT address, amount FROM balances")
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[models.Address]models.Coins)
	for rows.Next() {
		var raw []byte
		var amount int64
		if err := rows.Scan(&raw, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		addr, err := models.AddressFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode balance address: %w", err)
		}
		balances[addr] = models.Coins(uint64(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return balances, nil
}
