// Package main applies the embedded database migrations and exits.
package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/motorlot/saleverify/db/migrator"
	"github.com/motorlot/saleverify/internal/adapters/outbound/postgres"
)

func main() {
	_ = godotenv.Load(".env")

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		logger.Error("required environment variable not set: DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrationsFS, err := fs.Sub(postgres.Migrations, "migrations")
	if err != nil {
		logger.Error("failed to open embedded migrations", "error", err)
		os.Exit(1)
	}

	if err := migrator.New(pool, migrationsFS, logger).ApplyAll(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("all migrations up to date")
}
