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

// StoreTransaction inserts or updates a transaction and keeps the
// referenced account balance in step, all in one unit of work. The
// stored amount is canonicalized: negative for expense categories when
// the caller supplied a positive magnitude.
func (b *Book) StoreTransaction(ctx context.Context, tran *core.Transaction) error {
	return b.run(func() error {
		if err := tran.Validate(); err != nil {
			return err
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			return storeSingleTransaction(ctx, tx, tran)
		})
	})
}

// StoreTransactions stores a batch atomically: any member failure rolls
// back every member.
func (b *Book) StoreTransactions(ctx context.Context, trans []*core.Transaction) error {
	return b.run(func() error {
		for _, tran := range trans {
			if err := tran.Validate(); err != nil {
				return err
			}
		}
		var minted []*core.Transaction
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			for _, tran := range trans {
				if !tran.Stored() {
					minted = append(minted, tran)
				}
				if err := storeSingleTransaction(ctx, tx, tran); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			for _, tran := range minted {
				tran.Reset()
			}
		}
		return err
	})
}

func storeSingleTransaction(ctx context.Context, tx *sql.Tx, tran *core.Transaction) error {
	signed := tran.SignedAmount()

	if !tran.Stored() {
		tran.ID = uuid.New()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions(uuid, amount, account, category, day, month, year, contents, memo, is_recurrent)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tran.ID.String(), signed, tran.Account.ID.String(), tran.Category.ID.String(),
			tran.Date.Day, tran.Date.Month, tran.Date.Year, tran.Contents, tran.Memo, tran.Recurrent)
		if err != nil {
			tran.Reset()
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := adjustAccountBalance(ctx, tx, tran.Account.ID, signed); err != nil {
			tran.Reset()
			return err
		}
		if err := storeAttachmentRelations(ctx, tx, tran); err != nil {
			tran.Reset()
			return err
		}
		slog.InfoContext(ctx, "Transaction stored",
			"id", tran.ID, "amount", signed.String(), "account", tran.Account.ID)
		return nil
	}

	var oldAmount money.Amount
	var oldAccountRaw string
	row := tx.QueryRowContext(ctx,
		`SELECT amount, account FROM transactions WHERE uuid = ?`, tran.ID.String())
	if err := row.Scan(&oldAmount, &oldAccountRaw); err != nil {
		return fmt.Errorf("read transaction %s: %w", tran.ID, err)
	}
	oldAccount, err := uuid.Parse(oldAccountRaw)
	if err != nil {
		return fmt.Errorf("parse account id %q: %w", oldAccountRaw, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, account = ?, category = ?, day = ?, month = ?, year = ?, contents = ?, memo = ?
		 WHERE uuid = ?`,
		signed, tran.Account.ID.String(), tran.Category.ID.String(),
		tran.Date.Day, tran.Date.Month, tran.Date.Year, tran.Contents, tran.Memo, tran.ID.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if oldAccount == tran.Account.ID {
		if err := adjustAccountBalance(ctx, tx, tran.Account.ID, signed.Sub(oldAmount)); err != nil {
			return err
		}
	} else {
		if err := adjustAccountBalance(ctx, tx, oldAccount, oldAmount.Neg()); err != nil {
			return err
		}
		if err := adjustAccountBalance(ctx, tx, tran.Account.ID, signed); err != nil {
			return err
		}
	}
	if err := storeAttachmentRelations(ctx, tx, tran); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction updated",
		"id", tran.ID, "amount", signed.String(), "account", tran.Account.ID)
	return nil
}

// RemoveTransaction deletes the row, decrements the account balance by
// the stored amount and resets the entity to transient.
func (b *Book) RemoveTransaction(ctx context.Context, tran *core.Transaction) error {
	return b.run(func() error {
		if !tran.Stored() {
			return core.ErrNotStored
		}
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			return removeSingleTransaction(ctx, tx, tran.ID)
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Transaction removed", "id", tran.ID)
		tran.Reset()
		return nil
	})
}

func removeSingleTransaction(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var amount money.Amount
	var accountRaw string
	row := tx.QueryRowContext(ctx,
		`SELECT amount, account FROM transactions WHERE uuid = ?`, id.String())
	if err := row.Scan(&amount, &accountRaw); err != nil {
		return fmt.Errorf("read transaction %s: %w", id, err)
	}
	account, err := uuid.Parse(accountRaw)
	if err != nil {
		return fmt.Errorf("parse account id %q: %w", accountRaw, err)
	}

	for _, q := range []string{
		`DELETE FROM attachment_relations WHERE single_transaction = ?`,
		`DELETE FROM recurring_relations WHERE generated_transaction = ?`,
		`DELETE FROM transactions WHERE uuid = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id.String()); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
	}
	return adjustAccountBalance(ctx, tx, account, amount.Neg())
}

const transactionColumns = `t.uuid, t.amount, t.account, t.category, t.day, t.month, t.year,
	t.contents, t.memo, t.is_recurrent, c.parent, c.name, c.type, c.color,
	a.name, a.memo, a.color, a.initial_amount, a.amount
	FROM transactions AS t
	INNER JOIN categories AS c ON t.category = c.uuid
	INNER JOIN accounts AS a ON t.account = a.uuid`

// Transactions fetches a month of transactions, optionally narrowed to
// one day, in chronological order.
func (b *Book) Transactions(ctx context.Context, year, month int, day *int, page *Page) ([]*core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` WHERE t.month = ? AND t.year = ?`
	args := []any{month, year}
	if day != nil {
		query += ` AND t.day = ?`
		args = append(args, *day)
	}
	query += ` ORDER BY t.year, t.month, t.day`
	return b.fetchTransactions(ctx, query, args, page)
}

// TransactionsForAccount fetches every transaction of one account.
func (b *Book) TransactionsForAccount(ctx context.Context, acc *core.Account, page *Page) ([]*core.Transaction, error) {
	if !acc.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	query := `SELECT ` + transactionColumns + ` WHERE t.account = ? ORDER BY t.year, t.month, t.day`
	return b.fetchTransactions(ctx, query, []any{acc.ID.String()}, page)
}

// TransactionsForCategory fetches every transaction of one category,
// optionally narrowed to a month.
func (b *Book) TransactionsForCategory(ctx context.Context, cat *core.Category, month, year *int, page *Page) ([]*core.Transaction, error) {
	if !cat.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	query := `SELECT ` + transactionColumns + ` WHERE t.category = ?`
	args := []any{cat.ID.String()}
	if month != nil && year != nil {
		query += ` AND t.month = ? AND t.year = ?`
		args = append(args, *month, *year)
	}
	query += ` ORDER BY t.year, t.month, t.day`
	return b.fetchTransactions(ctx, query, args, page)
}

func (b *Book) fetchTransactions(ctx context.Context, query string, args []any, page *Page) ([]*core.Transaction, error) {
	if page != nil {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	var trans []*core.Transaction
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select transactions: %w", err)
			}
			defer rows.Close()

			parsed, err := parseTransactions(rows)
			if err != nil {
				return err
			}
			trans = parsed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

// parseTransactions hydrates transactions from the joined select.
// Accounts and categories repeat across rows, so each is built once and
// shared.
func parseTransactions(rows *sql.Rows) ([]*core.Transaction, error) {
	accounts := make(map[uuid.UUID]*core.Account)
	categories := make(map[uuid.UUID]*core.Category)
	var trans []*core.Transaction

	for rows.Next() {
		var (
			idRaw, accRaw, catRaw      string
			amount                     money.Amount
			day, month, year           int
			contents, memo             string
			recurrent                  bool
			catParent                  sql.NullString
			catName, catColor          string
			catType                    int
			accName, accMemo, accColor string
			accInitial, accAmount      money.Amount
		)
		if err := rows.Scan(&idRaw, &amount, &accRaw, &catRaw, &day, &month, &year,
			&contents, &memo, &recurrent, &catParent, &catName, &catType, &catColor,
			&accName, &accMemo, &accColor, &accInitial, &accAmount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		id, err := uuid.Parse(idRaw)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id %q: %w", idRaw, err)
		}
		accID, err := uuid.Parse(accRaw)
		if err != nil {
			return nil, fmt.Errorf("parse account id %q: %w", accRaw, err)
		}
		catID, err := uuid.Parse(catRaw)
		if err != nil {
			return nil, fmt.Errorf("parse category id %q: %w", catRaw, err)
		}

		cat, ok := categories[catID]
		if !ok {
			cat = &core.Category{ID: catID, Name: catName, Type: core.CategoryType(catType), Color: catColor}
			categories[catID] = cat
		}
		acc, ok := accounts[accID]
		if !ok {
			acc = &core.Account{ID: accID, Name: accName, Memo: accMemo, Color: accColor,
				InitialAmount: accInitial, Amount: accAmount}
			accounts[accID] = acc
		}

		trans = append(trans, &core.Transaction{
			ID:        id,
			Account:   acc,
			Category:  cat,
			Amount:    amount,
			Date:      core.NewDate(year, month, day),
			Contents:  contents,
			Memo:      memo,
			Recurrent: recurrent,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trans, nil
}

// NumberOfTransactions counts transactions, optionally for one month or
// one day, -1 on failure.
func (b *Book) NumberOfTransactions(ctx context.Context, year, month, day *int) (int, error) {
	query := `SELECT count(uuid) FROM transactions`
	var conds []string
	var args []any
	if year != nil {
		conds = append(conds, `year = ?`)
		args = append(args, *year)
	}
	if month != nil {
		conds = append(conds, `month = ?`)
		args = append(args, *month)
	}
	if day != nil {
		conds = append(conds, `day = ?`)
		args = append(args, *day)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}

	count := -1
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			row := db.QueryRowContext(ctx, query, args...)
			if err := row.Scan(&count); err != nil {
				count = -1
				return fmt.Errorf("count transactions: %w", err)
			}
			return nil
		})
	})
	return count, err
}

// MonthsWithTransactions lists the months of a year having activity,
// most recent first.
func (b *Book) MonthsWithTransactions(ctx context.Context, year int, page *Page) ([]int, error) {
	query := `SELECT DISTINCT month FROM transactions WHERE year = ? ORDER BY month DESC`
	args := []any{year}
	if page != nil {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	var months []int
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select months: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var m int
				if err := rows.Scan(&m); err != nil {
					return fmt.Errorf("scan month: %w", err)
				}
				months = append(months, m)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return months, nil
}

// DaysWithTransactions lists the days of a month having activity, most
// recent first.
func (b *Book) DaysWithTransactions(ctx context.Context, year, month int, page *Page) ([]int, error) {
	query := `SELECT DISTINCT day FROM transactions WHERE year = ? AND month = ? ORDER BY day DESC`
	args := []any{year, month}
	if page != nil {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	var days []int
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select days: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var d int
				if err := rows.Scan(&d); err != nil {
					return fmt.Errorf("scan day: %w", err)
				}
				days = append(days, d)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}
