// Package services holds the application services that drive the
// storage layer.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// GenerationPublisher announces generation runs to interested
// consumers. A nil publisher disables announcements.
type GenerationPublisher interface {
	PublishGeneration(ctx context.Context, msg *amqp.GenerationMessage) error
}

// RecurringProcessor materializes the transactions that recurring
// templates are due to produce.
type RecurringProcessor struct {
	book      *storage.Book
	publisher GenerationPublisher
}

// NewRecurringProcessor creates a processor over one book. The
// publisher may be nil.
func NewRecurringProcessor(book *storage.Book, publisher GenerationPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		book:      book,
		publisher: publisher,
	}
}

// GenerateAndPersist brings every template up to date with asOf: it
// computes each template's missing dates, materializes one transaction
// per date and advances the watermarks, all in a single storage unit of
// work. Returns the number of transactions generated. Running twice
// with the same asOf generates nothing the second time.
func (p *RecurringProcessor) GenerateAndPersist(ctx context.Context, asOf core.Date) (int, error) {
	if p.book == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.book.RecurringTransactions(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("load recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total", len(templates), "as_of", asOf)

	var plan []storage.Generation
	for _, rec := range templates {
		if err := rec.Recurrence.Validate(); err != nil {
			slog.ErrorContext(ctx, "Skipping template with invalid recurrence",
				"template", rec.ID, "error", err)
			continue
		}
		dates := rec.Recurrence.MissingDates(asOf)
		if len(dates) == 0 {
			continue
		}
		plan = append(plan, storage.Generation{Template: rec, Dates: dates})
	}
	if len(plan) == 0 {
		slog.InfoContext(ctx, "No recurring transactions due", "as_of", asOf)
		return 0, nil
	}

	generated, err := p.book.PersistGenerations(ctx, plan)
	if err != nil {
		return 0, fmt.Errorf("persist generated transactions: %w", err)
	}

	p.announce(ctx, plan)

	slog.InfoContext(ctx, "Recurring generation complete",
		"templates", len(plan), "generated", len(generated))
	return len(generated), nil
}

// announce publishes one message per template. Publishing is best
// effort: the transactions are already committed, so failures only log.
func (p *RecurringProcessor) announce(ctx context.Context, plan []storage.Generation) {
	if p.publisher == nil {
		return
	}
	for _, g := range plan {
		through := g.Dates[len(g.Dates)-1]
		msg := amqp.NewGenerationMessage(g.Template.ID.String(), len(g.Dates), through.String())
		if err := p.publisher.PublishGeneration(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish generation message",
				"template", g.Template.ID, "error", err)
		}
	}
}
