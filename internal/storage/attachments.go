package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// StoreAttachment inserts or replaces an attachment blob. Relations to
// transactions are written when the transaction itself is stored.
func (b *Book) StoreAttachment(ctx context.Context, att *core.Attachment) error {
	return b.run(func() error {
		if !att.Stored() {
			att.ID = uuid.New()
		}
		return b.withTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO attachments(uuid, name, data) VALUES (?, ?, ?)`,
				att.ID.String(), att.Name, att.Data)
			if err != nil {
				att.Reset()
				return fmt.Errorf("store attachment: %w", err)
			}
			slog.InfoContext(ctx, "Attachment stored", "id", att.ID, "name", att.Name, "bytes", len(att.Data))
			return nil
		})
	})
}

// Attachment fetches one blob by id.
func (b *Book) Attachment(ctx context.Context, id uuid.UUID) (*core.Attachment, error) {
	att := &core.Attachment{ID: id}
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			row := db.QueryRowContext(ctx,
				`SELECT name, data FROM attachments WHERE uuid = ?`, id.String())
			if err := row.Scan(&att.Name, &att.Data); err != nil {
				return fmt.Errorf("read attachment %s: %w", id, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// RemoveAttachment deletes the blob and every relation pointing at it.
func (b *Book) RemoveAttachment(ctx context.Context, att *core.Attachment) error {
	return b.run(func() error {
		if !att.Stored() {
			return core.ErrNotStored
		}
		err := b.withTx(ctx, func(tx *sql.Tx) error {
			for _, q := range []string{
				`DELETE FROM attachment_relations WHERE attachment = ?`,
				`DELETE FROM attachments WHERE uuid = ?`,
			} {
				if _, err := tx.ExecContext(ctx, q, att.ID.String()); err != nil {
					return fmt.Errorf("delete attachment: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		att.Reset()
		return nil
	})
}

// AttachmentIDs lists the attachments linked to a transaction.
func (b *Book) AttachmentIDs(ctx context.Context, tran *core.Transaction) ([]uuid.UUID, error) {
	if !tran.Stored() {
		return nil, b.reject(core.ErrNotStored)
	}
	var ids []uuid.UUID
	err := b.run(func() error {
		return b.withDB(ctx, func(db *sql.DB) error {
			rows, err := db.QueryContext(ctx,
				`SELECT attachment FROM attachment_relations WHERE single_transaction = ?`,
				tran.ID.String())
			if err != nil {
				return fmt.Errorf("select attachment relations: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var raw string
				if err := rows.Scan(&raw); err != nil {
					return fmt.Errorf("scan attachment relation: %w", err)
				}
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("parse attachment id %q: %w", raw, err)
				}
				ids = append(ids, id)
			}
			return rows.Err()
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// storeAttachmentRelations rewrites the relation rows of a transaction
// to match its Attachments field. Runs inside the transaction's unit of
// work.
func storeAttachmentRelations(ctx context.Context, tx *sql.Tx, tran *core.Transaction) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attachment_relations WHERE single_transaction = ?`, tran.ID.String()); err != nil {
		return fmt.Errorf("clear attachment relations: %w", err)
	}
	for _, attID := range tran.Attachments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attachment_relations(single_transaction, attachment) VALUES (?, ?)`,
			tran.ID.String(), attID.String())
		if err != nil {
			return fmt.Errorf("insert attachment relation: %w", err)
		}
	}
	return nil
}
