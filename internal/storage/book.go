// Package storage persists the ledger in a local SQLite database.
//
// The Book is the session handle: it owns the database path and the
// sticky error status, and serializes operations with a per-book lock.
// Every operation opens its own scoped connection (open, execute,
// close) and every mutation runs as an explicit unit of work: begin,
// write the row, adjust the affected account balances, commit, with a
// rollback on any failure. Balances therefore never drift from the
// transaction history, whatever the storage engine does or does not
// support.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Book is a handle to one ledger database. Construct it with Open and
// inject it wherever storage access is needed; there is no global
// connection factory.
type Book struct {
	path string

	// serializes all operations: the engine is a single-writer design
	mu sync.Mutex

	status status
}

// Page bounds a fetch. A nil *Page fetches everything.
type Page struct {
	Limit  int
	Offset int
}

// Open prepares the database file, runs pending migrations and returns
// a ready Book.
func Open(path string) (*Book, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Book{path: path}, nil
}

// Path returns the database file location.
func (b *Book) Path() string { return b.path }

// IsError reports whether the most recent operation failed.
func (b *Book) IsError() bool { return b.status.isError() }

// LastError returns the error recorded by the most recent operation,
// nil after a success.
func (b *Book) LastError() error { return b.status.lastError() }

// withDB opens a scoped connection for a single operation.
func (b *Book) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return fn(db)
}

// withTx runs one unit of work: fn's writes and balance adjustments
// either all commit or all roll back.
func (b *Book) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return b.withDB(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// run wraps a public operation: take the writer lock, clear the sticky
// status, execute, and record the outcome.
func (b *Book) run(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.clear()
	if err := fn(); err != nil {
		b.status.set(err)
		return err
	}
	return nil
}

// reject records a failure that is detected before storage is touched.
// The sticky status has to reflect every public call, including the
// ones that never open a connection.
func (b *Book) reject(err error) error {
	return b.run(func() error { return err })
}

// status is the sticky error channel consumers poll between calls. It
// reflects the most recent operation: a success clears it.
type status struct {
	mu  sync.Mutex
	err error
}

func (s *status) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *status) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

func (s *status) isError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *status) lastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
