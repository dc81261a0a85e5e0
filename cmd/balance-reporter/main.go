package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// balance-reporter consumes the generation queue and logs the account
// balances after every recurring generation run, so operators see the
// ledger move without polling the database.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentAMQP)
	log.SetDefault(logger)

	logger.Info("Starting balance-reporter")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required: the reporter has nothing to consume without a broker")
		os.Exit(1)
	}

	book, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open ledger database", log.FieldError, err, "path", cfg.DBPath)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reporter := services.NewBalanceReporter(book)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := amqpClient.ConsumeGenerations(ctx, reporter.Handle); err != nil && err != context.Canceled {
		logger.Error("Consumption stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Balance-reporter shutdown complete")
}
