// Package main provides the review decision worker.
// It consumes review decisions from an SQS queue and applies them to purchase
// intents held for manual review, with health endpoints for rolling
// deployments.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	inboundhttp "github.com/motorlot/saleverify/internal/adapters/inbound/http"
	"github.com/motorlot/saleverify/internal/adapters/outbound/memory"
	"github.com/motorlot/saleverify/internal/adapters/outbound/postgres"
	"github.com/motorlot/saleverify/internal/adapters/outbound/sqs"
	"github.com/motorlot/saleverify/internal/application"
	"github.com/motorlot/saleverify/internal/pkg/env"
	"github.com/motorlot/saleverify/internal/services/reviewworker"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	queueURL := os.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		logger.Error("SQS_QUEUE_URL environment variable is required")
		os.Exit(1)
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(databaseURL))
	if err != nil {
		logger.Error("failed to open database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	txManager, err := postgres.NewTxManager(pool, logger)
	if err != nil {
		logger.Error("failed to create tx manager", "error", err)
		os.Exit(1)
	}
	intents := postgres.NewPurchaseIntentRepository(pool, logger)
	vehicles := postgres.NewVehicleRepository(pool, logger)

	// Review resolutions publish their events from the API server's topic in
	// most deployments; the worker only logs them unless a topic is wired in.
	reviews, err := application.NewReviewService(txManager, intents, vehicles, memory.NewEventSink(), logger)
	if err != nil {
		logger.Error("failed to create review service", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(env.Get("AWS_REGION", "eu-west-1")))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	consumer, err := sqs.NewConsumer(awsCfg, sqs.Config{QueueURL: queueURL}, logger)
	if err != nil {
		logger.Error("failed to create SQS consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	worker, err := reviewworker.NewService(reviewworker.Config{
		BatchSize: env.GetInt("BATCH_SIZE", 10),
		Logger:    logger,
	}, consumer, reviews)
	if err != nil {
		logger.Error("failed to create review worker", "error", err)
		os.Exit(1)
	}

	var shuttingDown atomic.Bool
	healthServer := inboundhttp.NewHealthServer(inboundhttp.HealthServerConfig{
		Addr:   env.Get("HEALTH_ADDR", ":8081"),
		Logger: logger,
	}, worker, &shuttingDown)
	healthServer.Start()

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		shuttingDown.Store(true)
		worker.Stop()
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("review worker failed", "error", err)
		os.Exit(1)
	}

	if err := healthServer.Shutdown(5 * time.Second); err != nil {
		logger.Error("health server shutdown failed", "error", err)
	}
	logger.Info("review worker stopped")
}
