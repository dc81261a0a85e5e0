package services

import (
	"testing"

	"ledger/internal/amqp"
)

func TestBalanceReporterHandle(t *testing.T) {
	book, rec := setupBook(t)

	reporter := NewBalanceReporter(book)
	msg := amqp.NewGenerationMessage(rec.ID.String(), 2, "2020-01-03")
	if err := reporter.Handle(msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}

func TestBalanceReporterUninitialized(t *testing.T) {
	reporter := NewBalanceReporter(nil)
	if err := reporter.Handle(amqp.NewGenerationMessage("x", 1, "2020-01-02")); err == nil {
		t.Fatal("expected error for uninitialized reporter")
	}
}
