package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/money"
)

// StoreAccount inserts or updates an account. A transient account gets
// an id on first store; later stores update in place. The maintained
// balance follows the initial amount: inserting sets it, updating
// shifts it by the initial-amount change so existing transactions keep
// counting.
func (b *Book) StoreAccount(ctx context.Context, acc *core.Account) error {
	return b.run(func() error {
		if err := acc.Validate(); err != nil {
			return err
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			return storeSingleAccount(ctx, tx, acc)
		})
	})
}

// StoreAccounts stores a batch atomically: the first failure rolls the
// whole batch back and no item is persisted.
func (b *Book) StoreAccounts(ctx context.Context, accs []*core.Account) error {
	return b.run(func() error {
		for _, acc := range accs {
			if err := acc.Validate(); err != nil {
				return err
			}
		}
		var minted []*core.Account
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			for _, acc := range accs {
				if !acc.Stored() {
					minted = append(minted, acc)
				}
				if err := storeSingleAccount(ctx, tx, acc); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// ids minted during the rolled-back batch are void
			for _, acc := range minted {
				acc.Reset()
			}
		}
		return err
	})
}

func storeSingleAccount(ctx context.Context, tx *sql.Tx, acc *core.Account) error {
	isNew := !acc.Stored()
	if isNew {
		acc.ID = uuid.New()
		acc.Amount = acc.InitialAmount
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts(uuid, name, memo, color, initial_amount, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			acc.ID.String(), acc.Name, acc.Memo, acc.Color, acc.InitialAmount, acc.Amount)
		if err != nil {
			acc.Reset()
			return fmt.Errorf("insert account: %w", err)
		}
		slog.InfoContext(ctx, "Account stored", "id", acc.ID, "name", acc.Name)
		return nil
	}

	var prevInitial, prevAmount money.Amount
	row := tx.QueryRowContext(ctx,
		`SELECT initial_amount, amount FROM accounts WHERE uuid = ?`, acc.ID.String())
	if err := row.Scan(&prevInitial, &prevAmount); err != nil {
		return fmt.Errorf("read account %s: %w", acc.ID, err)
	}

	// shifting the initial amount shifts the balance by the same delta
	acc.Amount = prevAmount.Add(acc.InitialAmount.Sub(prevInitial))
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET name = ?, memo = ?, color = ?, initial_amount = ?, amount = ?
		 WHERE uuid = ?`,
		acc.Name, acc.Memo, acc.Color, acc.InitialAmount, acc.Amount, acc.ID.String())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	slog.InfoContext(ctx, "Account updated", "id", acc.ID, "name", acc.Name)
	return nil
}

// RemoveAccount deletes the account together with every transaction and
// recurring template referencing it, then resets the entity to
// transient.
func (b *Book) RemoveAccount(ctx context.Context, acc *core.Account) error {
	return b.run(func() error {
		if !acc.Stored() {
			return core.ErrNotStored
		}
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			id := acc.ID.String()
			steps := []struct {
				what  string
				query string
			}{
				{"delete attachment relations", `DELETE FROM attachment_relations WHERE single_transaction IN
					(SELECT uuid FROM transactions WHERE account = ?)`},
				{"delete recurring relations", `DELETE FROM recurring_relations WHERE generated_transaction IN
					(SELECT uuid FROM transactions WHERE account = ?)`},
				{"delete transactions", `DELETE FROM transactions WHERE account = ?`},
				{"delete recurring templates", `DELETE FROM recurring_transactions WHERE account = ?`},
				{"delete account", `DELETE FROM accounts WHERE uuid = ?`},
			}
			for _, s := range steps {
				if _, err := tx.ExecContext(ctx, s.query, id); err != nil {
					return fmt.Errorf("%s: %w", s.what, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Account removed", "id", acc.ID, "name", acc.Name)
		acc.Reset()
		return nil
	})
}

// Accounts fetches accounts ordered alphabetically by name.
func (b *Book) Accounts(ctx context.Context, page *Page) ([]*core.Account, error) {
	var accs []*core.Account
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			query := `SELECT uuid, name, memo, color, initial_amount, amount
				  FROM accounts ORDER BY name ASC`
			args := []any{}
			if page != nil {
				query += ` LIMIT ? OFFSET ?`
				args = append(args, page.Limit, page.Offset)
			}
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select accounts: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				acc, err := scanAccount(rows)
				if err != nil {
					return err
				}
				accs = append(accs, acc)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return accs, nil
}

// NumberOfAccounts counts the stored accounts, -1 on failure.
func (b *Book) NumberOfAccounts(ctx context.Context) (int, error) {
	count := -1
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			row := db.QueryRowContext(ctx, `SELECT count(*) FROM accounts`)
			if err := row.Scan(&count); err != nil {
				count = -1
				return fmt.Errorf("count accounts: %w", err)
			}
			return nil
		})
	})
	return count, err
}

func scanAccount(rows *sql.Rows) (*core.Account, error) {
	var acc core.Account
	var id string
	if err := rows.Scan(&id, &acc.Name, &acc.Memo, &acc.Color, &acc.InitialAmount, &acc.Amount); err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse account id %q: %w", id, err)
	}
	acc.ID = parsed
	return &acc, nil
}
