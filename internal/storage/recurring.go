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

// StoreRecurring inserts or updates a recurring template. Templates
// never touch account balances; only the transactions generated from
// them do.
func (b *Book) StoreRecurring(ctx context.Context, rec *core.RecurringTransaction) error {
	return b.run(func() error {
		if err := rec.Validate(); err != nil {
			return err
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			return storeSingleRecurring(ctx, tx, rec)
		})
	})
}

// StoreRecurringBatch stores a batch of templates atomically.
func (b *Book) StoreRecurringBatch(ctx context.Context, recs []*core.RecurringTransaction) error {
	return b.run(func() error {
		for _, rec := range recs {
			if err := rec.Validate(); err != nil {
				return err
			}
		}
		var minted []*core.RecurringTransaction
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			for _, rec := range recs {
				if !rec.Stored() {
					minted = append(minted, rec)
				}
				if err := storeSingleRecurring(ctx, tx, rec); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			for _, rec := range minted {
				rec.Reset()
			}
		}
		return err
	})
}

func storeSingleRecurring(ctx context.Context, tx *sql.Tx, rec *core.RecurringTransaction) error {
	tran := rec.Transaction
	r := rec.Recurrence
	signed := tran.SignedAmount()

	var lastDay, lastMonth, lastYear, endDay, endMonth, endYear, cadence, interval, occurrences any
	if r.LastGenerated != nil {
		lastDay, lastMonth, lastYear = r.LastGenerated.Day, r.LastGenerated.Month, r.LastGenerated.Year
	}
	if r.End != nil {
		endDay, endMonth, endYear = r.End.Day, r.End.Month, r.End.Year
	}
	if r.Cadence != nil {
		cadence = int(*r.Cadence)
	}
	if r.IntervalDays != nil {
		interval = *r.IntervalDays
	}
	if r.Occurrences != nil {
		occurrences = *r.Occurrences
	}

	if !rec.Stored() {
		rec.ID = uuid.New()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recurring_transactions(uuid, amount, account, category, contents, memo,
				start_day, start_month, start_year, last_day, last_month, last_year,
				end_day, end_month, end_year, cadence, interval_days, occurrences)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID.String(), signed, tran.Account.ID.String(), tran.Category.ID.String(),
			tran.Contents, tran.Memo,
			r.Start.Day, r.Start.Month, r.Start.Year,
			lastDay, lastMonth, lastYear, endDay, endMonth, endYear,
			cadence, interval, occurrences)
		if err != nil {
			rec.Reset()
			return fmt.Errorf("insert recurring transaction: %w", err)
		}
		slog.InfoContext(ctx, "Recurring transaction stored",
			"id", rec.ID, "amount", signed.String(), "start", r.Start)
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE recurring_transactions SET amount = ?, account = ?, category = ?, contents = ?, memo = ?,
			start_day = ?, start_month = ?, start_year = ?, last_day = ?, last_month = ?, last_year = ?,
			end_day = ?, end_month = ?, end_year = ?, cadence = ?, interval_days = ?, occurrences = ?
		 WHERE uuid = ?`,
		signed, tran.Account.ID.String(), tran.Category.ID.String(), tran.Contents, tran.Memo,
		r.Start.Day, r.Start.Month, r.Start.Year,
		lastDay, lastMonth, lastYear, endDay, endMonth, endYear,
		cadence, interval, occurrences, rec.ID.String())
	if err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	slog.InfoContext(ctx, "Recurring transaction updated", "id", rec.ID)
	return nil
}

// RemoveRecurring deletes a template. With removeGenerated the
// transactions generated from it are deleted too, each one rolling its
// amount out of the account balance; otherwise the generated
// transactions survive as plain ones.
func (b *Book) RemoveRecurring(ctx context.Context, rec *core.RecurringTransaction, removeGenerated bool) error {
	return b.run(func() error {
		if !rec.Stored() {
			return core.ErrNotStored
		}
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			id := rec.ID.String()
			if removeGenerated {
				rows, err := tx.QueryContext(ctx,
					`SELECT generated_transaction FROM recurring_relations WHERE recurring_transaction = ?`, id)
				if err != nil {
					return fmt.Errorf("select generated transactions: %w", err)
				}
				var generated []uuid.UUID
				for rows.Next() {
					var raw string
					if err := rows.Scan(&raw); err != nil {
						rows.Close()
						return fmt.Errorf("scan generated transaction: %w", err)
					}
					tid, err := uuid.Parse(raw)
					if err != nil {
						rows.Close()
						return fmt.Errorf("parse transaction id %q: %w", raw, err)
					}
					generated = append(generated, tid)
				}
				if err := rows.Err(); err != nil {
					rows.Close()
					return err
				}
				rows.Close()

				for _, tid := range generated {
					if err := removeSingleTransaction(ctx, tx, tid); err != nil {
						return err
					}
				}
			}
			for _, q := range []string{
				`DELETE FROM recurring_relations WHERE recurring_transaction = ?`,
				`DELETE FROM recurring_transactions WHERE uuid = ?`,
			} {
				if _, err := tx.ExecContext(ctx, q, id); err != nil {
					return fmt.Errorf("delete recurring transaction: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Recurring transaction removed", "id", rec.ID, "generated_removed", removeGenerated)
		rec.Reset()
		return nil
	})
}

const recurringColumns = `uuid, amount, account, category, contents, memo,
	start_day, start_month, start_year, last_day, last_month, last_year,
	end_day, end_month, end_year, cadence, interval_days, occurrences
	FROM recurring_transactions`

// RecurringTransactions fetches every template, oldest start first.
func (b *Book) RecurringTransactions(ctx context.Context, page *Page) ([]*core.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` ORDER BY start_year, start_month, start_day`
	return b.fetchRecurring(ctx, query, nil, page)
}

// RecurringTransactionsForCategory fetches the templates of one
// category.
func (b *Book) RecurringTransactionsForCategory(ctx context.Context, cat *core.Category, page *Page) ([]*core.RecurringTransaction, error) {
	if !cat.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	query := `SELECT ` + recurringColumns + ` WHERE category = ? ORDER BY start_year, start_month, start_day`
	return b.fetchRecurring(ctx, query, []any{cat.ID.String()}, page)
}

func (b *Book) fetchRecurring(ctx context.Context, query string, args []any, page *Page) ([]*core.RecurringTransaction, error) {
	if page != nil {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	var recs []*core.RecurringTransaction
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select recurring transactions: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				rec, err := scanRecurring(rows)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func scanRecurring(rows *sql.Rows) (*core.RecurringTransaction, error) {
	var (
		idRaw, accRaw, catRaw           string
		amount                          money.Amount
		contents, memo                  string
		startDay, startMonth, startYear int
		lastDay, lastMonth, lastYear    sql.NullInt64
		endDay, endMonth, endYear       sql.NullInt64
		cadence, interval, occurrences  sql.NullInt64
	)
	if err := rows.Scan(&idRaw, &amount, &accRaw, &catRaw, &contents, &memo,
		&startDay, &startMonth, &startYear, &lastDay, &lastMonth, &lastYear,
		&endDay, &endMonth, &endYear, &cadence, &interval, &occurrences); err != nil {
		return nil, fmt.Errorf("scan recurring transaction: %w", err)
	}

	id, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parse recurring id %q: %w", idRaw, err)
	}
	accID, err := uuid.Parse(accRaw)
	if err != nil {
		return nil, fmt.Errorf("parse account id %q: %w", accRaw, err)
	}
	catID, err := uuid.Parse(catRaw)
	if err != nil {
		return nil, fmt.Errorf("parse category id %q: %w", catRaw, err)
	}

	r := &core.Recurrence{Start: core.NewDate(startYear, startMonth, startDay)}
	if lastYear.Valid {
		d := core.NewDate(int(lastYear.Int64), int(lastMonth.Int64), int(lastDay.Int64))
		r.LastGenerated = &d
	}
	if endYear.Valid {
		d := core.NewDate(int(endYear.Int64), int(endMonth.Int64), int(endDay.Int64))
		r.End = &d
	}
	if cadence.Valid {
		c := core.Cadence(cadence.Int64)
		r.Cadence = &c
	}
	if interval.Valid {
		n := int(interval.Int64)
		r.IntervalDays = &n
	}
	if occurrences.Valid {
		n := int(occurrences.Int64)
		r.Occurrences = &n
	}

	return &core.RecurringTransaction{
		ID: id,
		Transaction: &core.Transaction{
			Account:   &core.Account{ID: accID},
			Category:  &core.Category{ID: catID},
			Amount:    amount,
			Contents:  contents,
			Memo:      memo,
			Recurrent: true,
		},
		Recurrence: r,
	}, nil
}

// GeneratedTransactions fetches the transactions a template produced,
// chronological.
func (b *Book) GeneratedTransactions(ctx context.Context, rec *core.RecurringTransaction, page *Page) ([]*core.Transaction, error) {
	if !rec.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	query := `SELECT ` + transactionColumns + `
		INNER JOIN recurring_relations AS r ON t.uuid = r.generated_transaction
		WHERE r.recurring_transaction = ?
		ORDER BY t.year, t.month, t.day`
	return b.fetchTransactions(ctx, query, []any{rec.ID.String()}, page)
}

// NumberOfRecurringTransactions counts the stored templates, -1 on
// failure.
func (b *Book) NumberOfRecurringTransactions(ctx context.Context) (int, error) {
	count := -1
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			row := db.QueryRowContext(ctx, `SELECT count(uuid) FROM recurring_transactions`)
			if err := row.Scan(&count); err != nil {
				count = -1
				return fmt.Errorf("count recurring transactions: %w", err)
			}
			return nil
		})
	})
	return count, err
}

// NumberOfGeneratedTransactions counts the transactions a template
// produced, -1 on failure.
func (b *Book) NumberOfGeneratedTransactions(ctx context.Context, rec *core.RecurringTransaction) (int, error) {
	if !rec.Stored() {
		return -1, b.reject(core.ErrNotStored)
	}
	count := -1
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			row := db.QueryRowContext(ctx,
				`SELECT count(generated_transaction) FROM recurring_relations WHERE recurring_transaction = ?`,
				rec.ID.String())
			if err := row.Scan(&count); err != nil {
				count = -1
				return fmt.Errorf("count generated transactions: %w", err)
			}
			return nil
		})
	})
	return count, err
}

// Generation pairs a template with the dates it is due to materialize.
type Generation struct {
	Template *core.RecurringTransaction
	Dates    []core.Date
}

// PersistGenerations materializes a generation plan in a single unit of
// work: every transaction row, relation row, balance adjustment and
// watermark update commits together. A failure anywhere rolls the whole
// run back and leaves the templates exactly as they were, so the next
// run regenerates the same dates. In-memory watermarks advance only
// after the commit.
func (b *Book) PersistGenerations(ctx context.Context, plan []Generation) ([]*core.Transaction, error) {
	var generated []*core.Transaction
	err := b.run(func() error {
		for _, g := range plan {
			if !g.Template.Stored() {
				return core.ErrNotStored
			}
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			for _, g := range plan {
				if len(g.Dates) == 0 {
					continue
				}
				rec := g.Template
				for _, date := range g.Dates {
					tran := &core.Transaction{
						Account:   rec.Transaction.Account,
						Category:  rec.Transaction.Category,
						Amount:    rec.Transaction.Amount,
						Date:      date,
						Contents:  rec.Transaction.Contents,
						Memo:      rec.Transaction.Memo,
						Recurrent: true,
					}
					if err := storeSingleTransaction(ctx, tx, tran); err != nil {
						return err
					}
					_, err := tx.ExecContext(ctx,
						`INSERT INTO recurring_relations(recurring_transaction, generated_transaction) VALUES (?, ?)`,
						rec.ID.String(), tran.ID.String())
					if err != nil {
						return fmt.Errorf("insert recurring relation: %w", err)
					}
					generated = append(generated, tran)
				}

				last := g.Dates[len(g.Dates)-1]
				_, err := tx.ExecContext(ctx,
					`UPDATE recurring_transactions SET last_day = ?, last_month = ?, last_year = ? WHERE uuid = ?`,
					last.Day, last.Month, last.Year, rec.ID.String())
				if err != nil {
					return fmt.Errorf("advance generation watermark: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		for _, tran := range generated {
			tran.Reset()
		}
		return nil, err
	}
	for _, g := range plan {
		g.Template.Recurrence.Advance(g.Dates)
	}
	slog.InfoContext(ctx, "Recurring transactions generated",
		"templates", len(plan), "count", len(generated))
	return generated, nil
}
