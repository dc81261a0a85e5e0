package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// AMQP is optional: without it generated transactions are simply not
	// announced
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - generation events will not be published")
	}

	var publisher services.GenerationPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	processor := services.NewRecurringProcessor(book, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Recurring generation configured",
		"interval", cfg.GenerationInterval, "db", cfg.DBPath)

	generate := func(ctx context.Context) {
		count, err := processor.GenerateAndPersist(ctx, core.Today())
		if err != nil {
			logger.ErrorContext(ctx, "Generation run failed", log.FieldError, err)
			return
		}
		logger.InfoContext(ctx, "Generation run complete", log.FieldGenerated, count)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// run once on startup, then on every tick
		generate(ctx)

		ticker := time.NewTicker(cfg.GenerationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				generate(ctx)
			}
		}
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
