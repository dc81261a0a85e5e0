package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// ledger opens the book, brings recurring transactions up to date and
// prints the account balances.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelWarn, Component: log.ComponentApp})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	book, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open ledger database", log.FieldError, err, "path", cfg.DBPath)
		os.Exit(1)
	}

	ctx := context.Background()

	processor := services.NewRecurringProcessor(book, nil)
	generated, err := processor.GenerateAndPersist(ctx, core.Today())
	if err != nil {
		logger.Error("Recurring generation failed", log.FieldError, err)
		os.Exit(1)
	}
	if generated > 0 {
		fmt.Printf("generated %d recurring transactions\n\n", generated)
	}

	accounts, err := book.Accounts(ctx, nil)
	if err != nil {
		logger.Error("Failed to list accounts", log.FieldError, err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		fmt.Println("no accounts")
		return
	}

	for _, acc := range accounts {
		fmt.Printf("%-20s %12s\n", acc.Name, acc.Amount)
	}
}
