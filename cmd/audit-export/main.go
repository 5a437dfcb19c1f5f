// Package main provides the audit export batch job.
// It archives the previous day's resolved purchase intents to S3 as JSONL,
// one object per tenant, and exits. Scheduled daily.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/motorlot/saleverify/internal/adapters/outbound/postgres"
	"github.com/motorlot/saleverify/internal/adapters/outbound/s3"
	"github.com/motorlot/saleverify/internal/pkg/env"
	"github.com/motorlot/saleverify/internal/services/auditexport"
)

func main() {
	day := flag.String("day", "", "Day to export as YYYY-MM-DD (default: yesterday, UTC)")
	flag.Parse()

	_ = godotenv.Load(".env")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}
	bucket := os.Getenv("AUDIT_BUCKET")
	if bucket == "" {
		logger.Error("AUDIT_BUCKET environment variable is required")
		os.Exit(1)
	}

	exportDay := time.Now().UTC().AddDate(0, 0, -1)
	if *day != "" {
		parsed, err := time.Parse(time.DateOnly, *day)
		if err != nil {
			logger.Error("invalid -day value", "value", *day, "error", err)
			os.Exit(1)
		}
		exportDay = parsed
	}

	ctx := context.Background()

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(databaseURL))
	if err != nil {
		logger.Error("failed to open database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(env.Get("AWS_REGION", "eu-west-1")))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	writer, err := s3.NewAuditWriter(awsCfg, s3.Config{
		Bucket:       bucket,
		CompressGzip: env.Get("AUDIT_GZIP", "") == "true",
	}, logger)
	if err != nil {
		logger.Error("failed to create audit writer", "error", err)
		os.Exit(1)
	}

	service, err := auditexport.NewService(auditexport.Config{
		KeyPrefix: env.Get("AUDIT_KEY_PREFIX", "audit"),
		Logger:    logger,
	}, postgres.NewPurchaseIntentRepository(pool, logger), writer)
	if err != nil {
		logger.Error("failed to create audit export service", "error", err)
		os.Exit(1)
	}

	if err := service.Export(ctx, exportDay); err != nil {
		logger.Error("audit export failed", "day", exportDay.Format(time.DateOnly), "error", err)
		os.Exit(1)
	}
	logger.Info("audit export complete", "day", exportDay.Format(time.DateOnly))
}
