package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/money"
	"ledger/internal/storage"
)

type recordingPublisher struct {
	messages []*amqp.GenerationMessage
	err      error
}

func (p *recordingPublisher) PublishGeneration(_ context.Context, msg *amqp.GenerationMessage) error {
	p.messages = append(p.messages, msg)
	return p.err
}

func setupBook(t *testing.T) (*storage.Book, *core.RecurringTransaction) {
	t.Helper()
	ctx := context.Background()

	book, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	acc := &core.Account{Name: "Checking"}
	if err := book.StoreAccount(ctx, acc); err != nil {
		t.Fatalf("StoreAccount() error = %v", err)
	}
	cat := &core.Category{Name: "Rent", Type: core.Expense}
	if err := book.StoreCategory(ctx, cat); err != nil {
		t.Fatalf("StoreCategory() error = %v", err)
	}

	daily := core.Daily
	rec := &core.RecurringTransaction{
		Transaction: &core.Transaction{Account: acc, Category: cat,
			Amount: money.MustParse("700"), Contents: "rent"},
		Recurrence: &core.Recurrence{Start: core.NewDate(2020, 1, 1), Cadence: &daily},
	}
	if err := book.StoreRecurring(ctx, rec); err != nil {
		t.Fatalf("StoreRecurring() error = %v", err)
	}
	return book, rec
}

func TestGenerateAndPersist(t *testing.T) {
	book, rec := setupBook(t)
	ctx := context.Background()

	pub := &recordingPublisher{}
	processor := NewRecurringProcessor(book, pub)

	asOf := core.NewDate(2020, 1, 4)
	n, err := processor.GenerateAndPersist(ctx, asOf)
	if err != nil {
		t.Fatalf("GenerateAndPersist() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("generated = %d, want 3", n)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.TemplateID != rec.ID.String() || msg.Generated != 3 || msg.Through != "2020-01-04" {
		t.Fatalf("unexpected message %+v", msg)
	}

	trans, err := book.Transactions(ctx, 2020, 1, nil, nil)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(trans) != 3 {
		t.Fatalf("persisted %d transactions, want 3", len(trans))
	}
}

func TestGenerateAndPersistIdempotent(t *testing.T) {
	book, _ := setupBook(t)
	ctx := context.Background()

	processor := NewRecurringProcessor(book, nil)
	asOf := core.NewDate(2020, 1, 4)

	if _, err := processor.GenerateAndPersist(ctx, asOf); err != nil {
		t.Fatalf("first GenerateAndPersist() error = %v", err)
	}
	n, err := processor.GenerateAndPersist(ctx, asOf)
	if err != nil {
		t.Fatalf("second GenerateAndPersist() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("second run generated %d, want 0", n)
	}

	// fresh processor over the same database: the watermark is durable
	reopened, err := storage.Open(book.Path())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	n, err = NewRecurringProcessor(reopened, nil).GenerateAndPersist(ctx, asOf)
	if err != nil {
		t.Fatalf("reopened GenerateAndPersist() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("reopened run generated %d, want 0", n)
	}
}

func TestGenerateAndPersistPublisherFailureDoesNotFail(t *testing.T) {
	book, _ := setupBook(t)
	ctx := context.Background()

	pub := &recordingPublisher{err: errors.New("broker down")}
	processor := NewRecurringProcessor(book, pub)

	n, err := processor.GenerateAndPersist(ctx, core.NewDate(2020, 1, 2))
	if err != nil {
		t.Fatalf("GenerateAndPersist() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("generated = %d, want 1", n)
	}
}

func TestGenerateAndPersistUninitialized(t *testing.T) {
	processor := NewRecurringProcessor(nil, nil)
	if _, err := processor.GenerateAndPersist(context.Background(), core.Today()); err == nil {
		t.Fatal("expected error for uninitialized processor")
	}
}
