package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/money"
)

// Aggregation queries. Sums are computed in the application layer with
// exact decimal arithmetic over the per-row canonical strings; SQL
// never aggregates the amount column.

// MonthsTotalForAccount returns twelve signed totals, one per month of
// the year, zero-filled for months without activity.
func (b *Book) MonthsTotalForAccount(ctx context.Context, acc *core.Account, year int) ([]money.Amount, error) {
	if !acc.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	return b.monthlyTotals(ctx,
		`SELECT month, amount FROM transactions WHERE account = ? AND year = ?`,
		[]any{acc.ID.String(), year}, false)
}

// MonthsTotalForCategory returns twelve totals, one per month of the
// year, zero-filled. Expense totals come back as positive magnitudes.
func (b *Book) MonthsTotalForCategory(ctx context.Context, cat *core.Category, year int) ([]money.Amount, error) {
	if !cat.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	return b.monthlyTotals(ctx,
		`SELECT month, amount FROM transactions WHERE category = ? AND year = ?`,
		[]any{cat.ID.String(), year}, true)
}

func (b *Book) monthlyTotals(ctx context.Context, query string, args []any, magnitude bool) ([]money.Amount, error) {
	totals := make([]money.Amount, 12)
	for i := range totals {
		totals[i] = money.Zero
	}
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select monthly amounts: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var month int
				var amount money.Amount
				if err := rows.Scan(&month, &amount); err != nil {
					return fmt.Errorf("scan monthly amount: %w", err)
				}
				if month < 1 || month > 12 {
					return fmt.Errorf("month %d out of range", month)
				}
				totals[month-1] = totals[month-1].Add(amount)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	if magnitude {
		for i := range totals {
			totals[i] = totals[i].Abs()
		}
	}
	return totals, nil
}

// CategoryBreakdown aggregates one month per category: occurrence count
// and signed total per category, plus the grand total across them.
func (b *Book) CategoryBreakdown(ctx context.Context, month, year int) (*core.MonthBreakdown, error) {
	breakdown := &core.MonthBreakdown{Month: month, Year: year, Total: money.Zero}
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx,
				`SELECT t.amount, c.uuid, c.name, c.type, c.color
				 FROM transactions AS t
				 INNER JOIN categories AS c ON t.category = c.uuid
				 WHERE t.month = ? AND t.year = ?
				 ORDER BY c.name ASC`, month, year)
			if err != nil {
				return fmt.Errorf("select category breakdown: %w", err)
			}
			defer rows.Close()

			index := make(map[uuid.UUID]int)
			for rows.Next() {
				var amount money.Amount
				var catRaw, catName, catColor string
				var catType int
				if err := rows.Scan(&amount, &catRaw, &catName, &catType, &catColor); err != nil {
					return fmt.Errorf("scan category breakdown: %w", err)
				}
				catID, err := uuid.Parse(catRaw)
				if err != nil {
					return fmt.Errorf("parse category id %q: %w", catRaw, err)
				}

				i, ok := index[catID]
				if !ok {
					i = len(breakdown.Categories)
					index[catID] = i
					breakdown.Categories = append(breakdown.Categories, core.CategorySummary{
						Category: &core.Category{ID: catID, Name: catName, Type: core.CategoryType(catType), Color: catColor},
						Total:    money.Zero,
					})
				}
				breakdown.Categories[i].Occurrences++
				breakdown.Categories[i].Total = breakdown.Categories[i].Total.Add(amount)
				breakdown.Total = breakdown.Total.Add(amount)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}
