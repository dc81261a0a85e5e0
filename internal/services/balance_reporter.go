package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/storage"
)

// BalanceReporter handles generation announcements by logging the
// account balances that resulted from the run. It is the consuming end
// of the generation queue: operators tail its output instead of polling
// the database.
type BalanceReporter struct {
	book *storage.Book
}

// NewBalanceReporter creates a reporter over one book.
func NewBalanceReporter(book *storage.Book) *BalanceReporter {
	return &BalanceReporter{book: book}
}

// Handle processes one generation message. An error tells the consumer
// loop to requeue the delivery.
func (r *BalanceReporter) Handle(msg *amqp.GenerationMessage) error {
	if r.book == nil {
		return fmt.Errorf("reporter not properly initialized")
	}
	ctx := context.Background()

	slog.InfoContext(ctx, "Recurring template generated transactions",
		"template", msg.TemplateID, "generated", msg.Generated, "through", msg.Through)

	accounts, err := r.book.Accounts(ctx, nil)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	for _, acc := range accounts {
		slog.InfoContext(ctx, "Account balance", "name", acc.Name, "amount", acc.Amount.String())
	}
	return nil
}
