package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ledger/internal/money"
)

// Balance maintenance. Each helper runs inside the unit of work that
// triggered it, so the account invariant (amount equals initial amount
// plus the signed sum of its transactions) holds after every commit.
// Deltas are computed with exact decimal arithmetic in the application
// layer, inside the same database transaction as the row write.

func accountAmount(ctx context.Context, tx *sql.Tx, id uuid.UUID) (money.Amount, error) {
	var amount money.Amount
	row := tx.QueryRowContext(ctx, `SELECT amount FROM accounts WHERE uuid = ?`, id.String())
	if err := row.Scan(&amount); err != nil {
		return money.Zero, fmt.Errorf("read balance of account %s: %w", id, err)
	}
	return amount, nil
}

// adjustAccountBalance applies a signed delta to one account's
// maintained balance.
func adjustAccountBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta money.Amount) error {
	if delta.IsZero() {
		return nil
	}
	current, err := accountAmount(ctx, tx, id)
	if err != nil {
		return err
	}
	next := current.Add(delta)
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET amount = ? WHERE uuid = ?`, next, id.String()); err != nil {
		return fmt.Errorf("adjust balance of account %s: %w", id, err)
	}
	return nil
}

// applyBalanceDeltas applies a set of per-account deltas accumulated by
// a multi-row mutation (cascade delete, category type flip).
func applyBalanceDeltas(ctx context.Context, tx *sql.Tx, deltas map[uuid.UUID]money.Amount) error {
	for id, delta := range deltas {
		if err := adjustAccountBalance(ctx, tx, id, delta); err != nil {
			return err
		}
	}
	return nil
}
