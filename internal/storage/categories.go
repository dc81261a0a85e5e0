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

// StoreCategory inserts or updates a category. An unstored parent is
// stored first inside the same unit of work. Flipping the type of a
// stored category negates the stored amount of every transaction under
// it and re-balances every affected account atomically.
func (b *Book) StoreCategory(ctx context.Context, cat *core.Category) error {
	return b.run(func() error {
		if err := cat.Validate(); err != nil {
			return err
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			return storeSingleCategory(ctx, tx, cat)
		})
	})
}

// StoreCategories stores a batch atomically, parents first.
func (b *Book) StoreCategories(ctx context.Context, cats []*core.Category) error {
	return b.run(func() error {
		for _, cat := range cats {
			if err := cat.Validate(); err != nil {
				return err
			}
		}
		var minted []*core.Category
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			for _, cat := range cats {
				if !cat.Stored() {
					minted = append(minted, cat)
				}
				if err := storeSingleCategory(ctx, tx, cat); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			for _, cat := range minted {
				cat.Reset()
			}
		}
		return err
	})
}

func storeSingleCategory(ctx context.Context, tx *sql.Tx, cat *core.Category) error {
	if cat.Parent != nil && !cat.Parent.Stored() {
		slog.InfoContext(ctx, "Storing parent category first", "name", cat.Parent.Name)
		if err := storeSingleCategory(ctx, tx, cat.Parent); err != nil {
			return err
		}
	}

	var parent any
	if cat.Parent != nil {
		parent = cat.Parent.ID.String()
	}

	if !cat.Stored() {
		cat.ID = uuid.New()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories(uuid, parent, name, type, color) VALUES (?, ?, ?, ?, ?)`,
			cat.ID.String(), parent, cat.Name, int(cat.Type), cat.Color)
		if err != nil {
			cat.Reset()
			return fmt.Errorf("insert category: %w", err)
		}
		slog.InfoContext(ctx, "Category stored", "id", cat.ID, "name", cat.Name, "type", cat.Type)
		return nil
	}

	var oldType int
	row := tx.QueryRowContext(ctx, `SELECT type FROM categories WHERE uuid = ?`, cat.ID.String())
	if err := row.Scan(&oldType); err != nil {
		return fmt.Errorf("read category %s: %w", cat.ID, err)
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE categories SET parent = ?, name = ?, type = ?, color = ? WHERE uuid = ?`,
		parent, cat.Name, int(cat.Type), cat.Color, cat.ID.String())
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	if core.CategoryType(oldType) != cat.Type {
		if err := flipCategoryAmounts(ctx, tx, cat.ID); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Category updated", "id", cat.ID, "name", cat.Name, "type", cat.Type)
	return nil
}

// flipCategoryAmounts negates the stored amount of every transaction
// under a category whose type flipped, and applies the resulting
// deltas to every affected account. One logical operation, atomic with
// the category row update.
func flipCategoryAmounts(ctx context.Context, tx *sql.Tx, catID uuid.UUID) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT uuid, amount, account FROM transactions WHERE category = ?`, catID.String())
	if err != nil {
		return fmt.Errorf("select transactions to flip: %w", err)
	}

	type flip struct {
		id      string
		negated money.Amount
	}
	var flips []flip
	deltas := make(map[uuid.UUID]money.Amount)
	for rows.Next() {
		var id, accID string
		var amount money.Amount
		if err := rows.Scan(&id, &amount, &accID); err != nil {
			rows.Close()
			return fmt.Errorf("scan transaction to flip: %w", err)
		}
		account, err := uuid.Parse(accID)
		if err != nil {
			rows.Close()
			return fmt.Errorf("parse account id %q: %w", accID, err)
		}
		negated := amount.Neg()
		flips = append(flips, flip{id: id, negated: negated})
		deltas[account] = deltas[account].Add(negated.Sub(amount))
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, f := range flips {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET amount = ? WHERE uuid = ?`, f.negated, f.id); err != nil {
			return fmt.Errorf("flip transaction %s: %w", f.id, err)
		}
	}
	return applyBalanceDeltas(ctx, tx, deltas)
}

// RemoveCategory deletes a category, every descendant category, and
// every transaction and recurring template under any of them,
// decrementing the affected account balances. Destructive by design.
func (b *Book) RemoveCategory(ctx context.Context, cat *core.Category) error {
	return b.run(func() error {
		if !cat.Stored() {
			return core.ErrNotStored
		}
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			doomed, err := descendantCategoryIDs(ctx, tx, cat.ID)
			if err != nil {
				return err
			}

			deltas := make(map[uuid.UUID]money.Amount)
			for _, catID := range doomed {
				if err := collectTransactionDeltas(ctx, tx, catID, deltas); err != nil {
					return err
				}
			}

			for _, catID := range doomed {
				id := catID.String()
				steps := []struct {
					what  string
					query string
				}{
					{"delete attachment relations", `DELETE FROM attachment_relations WHERE single_transaction IN
						(SELECT uuid FROM transactions WHERE category = ?)`},
					{"delete recurring relations", `DELETE FROM recurring_relations WHERE generated_transaction IN
						(SELECT uuid FROM transactions WHERE category = ?)`},
					{"delete transactions", `DELETE FROM transactions WHERE category = ?`},
					{"delete recurring templates", `DELETE FROM recurring_transactions WHERE category = ?`},
				}
				for _, s := range steps {
					if _, err := tx.ExecContext(ctx, s.query, id); err != nil {
						return fmt.Errorf("%s: %w", s.what, err)
					}
				}
			}

			if err := applyBalanceDeltas(ctx, tx, deltas); err != nil {
				return err
			}

			// children before parents, uuid keys are not FK-ordered anyway
			for i := len(doomed) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM categories WHERE uuid = ?`, doomed[i].String()); err != nil {
					return fmt.Errorf("delete category: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Category removed with descendants", "id", cat.ID, "name", cat.Name)
		cat.Reset()
		return nil
	})
}

// descendantCategoryIDs returns the category and all its descendants,
// parents before children.
func descendantCategoryIDs(ctx context.Context, tx *sql.Tx, root uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, `SELECT uuid, parent FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("select category tree: %w", err)
	}
	defer rows.Close()

	children := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var id string
		var parent sql.NullString
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("scan category tree: %w", err)
		}
		if !parent.Valid {
			continue
		}
		childID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse category id %q: %w", id, err)
		}
		parentID, err := uuid.Parse(parent.String)
		if err != nil {
			return nil, fmt.Errorf("parse parent id %q: %w", parent.String, err)
		}
		children[parentID] = append(children[parentID], childID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := []uuid.UUID{root}
	for i := 0; i < len(ordered); i++ {
		ordered = append(ordered, children[ordered[i]]...)
	}
	return ordered, nil
}

// collectTransactionDeltas accumulates the balance decrements caused by
// deleting every transaction under one category.
func collectTransactionDeltas(ctx context.Context, tx *sql.Tx, catID uuid.UUID, deltas map[uuid.UUID]money.Amount) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT amount, account FROM transactions WHERE category = ?`, catID.String())
	if err != nil {
		return fmt.Errorf("select doomed transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var amount money.Amount
		var accID string
		if err := rows.Scan(&amount, &accID); err != nil {
			return fmt.Errorf("scan doomed transaction: %w", err)
		}
		account, err := uuid.Parse(accID)
		if err != nil {
			return fmt.Errorf("parse account id %q: %w", accID, err)
		}
		deltas[account] = deltas[account].Sub(amount)
	}
	return rows.Err()
}

// Categories fetches categories ordered by name, optionally filtered by
// type. Rows load flat into an id-keyed map and parent links are wired
// in a second pass, so arbitrarily deep trees never recurse during
// load.
func (b *Book) Categories(ctx context.Context, typ *core.CategoryType, page *Page) ([]*core.Category, error) {
	var cats []*core.Category
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			query := `SELECT uuid, parent, name, type, color FROM categories`
			args := []any{}
			if typ != nil {
				query += ` WHERE type = ?`
				args = append(args, int(*typ))
			}
			query += ` ORDER BY name ASC`
			if page != nil {
				query += ` LIMIT ? OFFSET ?`
				args = append(args, page.Limit, page.Offset)
			}

			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("select categories: %w", err)
			}
			defer rows.Close()

			parsed, err := parseCategories(rows)
			if err != nil {
				return err
			}
			cats = parsed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// parseCategories scans rows flat, then wires parent pointers through
// an id-keyed map. Parents outside the fetched window stay nil.
func parseCategories(rows *sql.Rows) ([]*core.Category, error) {
	type link struct {
		child  uuid.UUID
		parent uuid.UUID
	}
	byID := make(map[uuid.UUID]*core.Category)
	var links []link
	var ordered []*core.Category

	for rows.Next() {
		var id string
		var parent sql.NullString
		var typ int
		cat := &core.Category{}
		if err := rows.Scan(&id, &parent, &cat.Name, &typ, &cat.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse category id %q: %w", id, err)
		}
		cat.ID = parsedID
		cat.Type = core.CategoryType(typ)
		byID[cat.ID] = cat
		ordered = append(ordered, cat)

		if parent.Valid {
			parentID, err := uuid.Parse(parent.String)
			if err != nil {
				return nil, fmt.Errorf("parse parent id %q: %w", parent.String, err)
			}
			links = append(links, link{child: cat.ID, parent: parentID})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, l := range links {
		if parent, ok := byID[l.parent]; ok {
			byID[l.child].Parent = parent
		}
	}
	return ordered, nil
}

// NumberOfCategories counts categories, optionally per type, -1 on
// failure.
func (b *Book) NumberOfCategories(ctx context.Context, typ *core.CategoryType) (int, error) {
	count := -1
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			query := `SELECT count(*) FROM categories`
			args := []any{}
			if typ != nil {
				query += ` WHERE type = ?`
				args = append(args, int(*typ))
			}
			row := db.QueryRowContext(ctx, query, args...)
			if err := row.Scan(&count); err != nil {
				count = -1
				return fmt.Errorf("count categories: %w", err)
			}
			return nil
		})
	})
	return count, err
}
