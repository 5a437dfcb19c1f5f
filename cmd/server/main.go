// Package main provides the sale-verification API server.
// It exposes the purchase-intent and review endpoints over HTTP, backed by
// Postgres, Redis and SNS. With -local it runs entirely in memory for
// development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	snssdk "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"

	"github.com/motorlot/saleverify/db/migrator"
	inboundhttp "github.com/motorlot/saleverify/internal/adapters/inbound/http"
	"github.com/motorlot/saleverify/internal/adapters/outbound/memory"
	"github.com/motorlot/saleverify/internal/adapters/outbound/postgres"
	redisdir "github.com/motorlot/saleverify/internal/adapters/outbound/redis"
	"github.com/motorlot/saleverify/internal/adapters/outbound/sns"
	"github.com/motorlot/saleverify/internal/application"
	"github.com/motorlot/saleverify/internal/pkg/env"
	"github.com/motorlot/saleverify/internal/pkg/retry"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Build-time variables
var (
	GitCommit string
	BuildTime string
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "" {
					GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == "" {
					BuildTime = setting.Value
				}
			}
		}
	}
}

func main() {
	local := flag.Bool("local", false, "Run with in-memory adapters (no Postgres/Redis/SNS)")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("saleverify-server\n")
		fmt.Printf("  Commit:     %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	logger.Info("starting saleverify-server",
		"commit", GitCommit,
		"buildTime", BuildTime,
		"local", *local,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		deps *dependencies
		err  error
	)
	if *local {
		deps = localDependencies()
	} else {
		deps, err = productionDependencies(ctx, logger)
		if err != nil {
			logger.Error("failed to wire dependencies", "error", err)
			os.Exit(1)
		}
	}
	defer deps.close()

	fraud, err := application.NewFraudEvaluator(deps.clients, deps.dealers, deps.sales, deps.inventory, logger)
	if err != nil {
		logger.Error("failed to create fraud evaluator", "error", err)
		os.Exit(1)
	}

	service, err := application.NewSaleVerificationService(
		application.Config{Logger: logger},
		deps.txManager, deps.vehicles, deps.interactions, deps.intents, fraud, deps.events,
	)
	if err != nil {
		logger.Error("failed to create verification service", "error", err)
		os.Exit(1)
	}

	reviews, err := application.NewReviewService(deps.txManager, deps.intents, deps.vehicles, deps.events, logger)
	if err != nil {
		logger.Error("failed to create review service", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	inboundhttp.NewHandler(service, reviews, deps.dealers, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:         env.Get("HTTP_ADDR", ":8080"),
		Handler:      mux,
		ReadTimeout:  env.GetDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: env.GetDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}

// dependencies bundles the outbound adapters behind the application services.
type dependencies struct {
	txManager    outbound.TxManager
	vehicles     outbound.VehicleRepository
	interactions outbound.InteractionRepository
	intents      outbound.PurchaseIntentRepository
	clients      outbound.ClientRepository
	sales        outbound.SalesHistory
	inventory    outbound.InventoryIndex
	dealers      outbound.DealerDirectory
	events       outbound.EventSink

	closers []func() error
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

// localDependencies wires everything in memory.
func localDependencies() *dependencies {
	store := memory.NewStore()
	return &dependencies{
		txManager:    store,
		vehicles:     store.Vehicles(),
		interactions: store,
		intents:      store.Intents(),
		clients:      store,
		sales:        store,
		inventory:    store,
		dealers:      memory.NewDealerDirectory(),
		events:       memory.NewEventSink(),
	}
}

// productionDependencies wires Postgres, Redis and SNS from the environment.
// SNS_TOPIC_ARN is optional; without it events stay in memory, which suits
// single-instance deployments without downstream consumers.
func productionDependencies(ctx context.Context, logger *slog.Logger) (*dependencies, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	deps := &dependencies{}
	deps.closers = append(deps.closers, func() error { pool.Close(); return nil })

	// The database may still be starting when the task comes up.
	err = retry.DoVoid(ctx, retry.Config{
		MaxRetries:     10,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}, func(error) bool { return true }, func(attempt int, err error, backoff time.Duration) {
		logger.Warn("waiting for database", "attempt", attempt, "error", err, "backoff", backoff)
	}, func() error {
		return pool.Ping(ctx)
	})
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("database never became reachable: %w", err)
	}

	migrationsFS, err := fs.Sub(postgres.Migrations, "migrations")
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	if err := migrator.New(pool, migrationsFS, logger).ApplyAll(ctx); err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	txManager, err := postgres.NewTxManager(pool, logger)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to create tx manager: %w", err)
	}
	deps.txManager = txManager
	deps.vehicles = postgres.NewVehicleRepository(pool, logger)
	deps.interactions = postgres.NewInteractionRepository(pool, logger)
	deps.intents = postgres.NewPurchaseIntentRepository(pool, logger)
	deps.clients = postgres.NewClientRepository(pool, logger)
	deps.sales = postgres.NewSalesHistoryRepository(pool, logger)
	deps.inventory = postgres.NewInventoryIndex(pool, logger)

	redisCfg := redisdir.ConfigDefaults()
	redisCfg.Addr = env.Get("REDIS_ADDR", redisCfg.Addr)
	redisCfg.Password = os.Getenv("REDIS_PASSWORD")
	redisCfg.DB = env.GetInt("REDIS_DB", redisCfg.DB)
	redisCfg.TTL = env.GetDuration("DEALER_IP_TTL", redisCfg.TTL)
	dealers, err := redisdir.NewDealerIPStore(redisCfg, logger)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to create dealer directory: %w", err)
	}
	if err := dealers.Ping(ctx); err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	deps.dealers = dealers
	deps.closers = append(deps.closers, dealers.Close)

	topicARN := os.Getenv("SNS_TOPIC_ARN")
	if topicARN == "" {
		logger.Warn("SNS_TOPIC_ARN not set, verification events will not leave the process")
		deps.events = memory.NewEventSink()
		return deps, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(env.Get("AWS_REGION", "eu-west-1")))
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	sink, err := sns.NewEventSink(snssdk.NewFromConfig(awsCfg), sns.Config{
		TopicARN: topicARN,
		Logger:   logger,
	})
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to create event sink: %w", err)
	}
	deps.events = sink
	deps.closers = append(deps.closers, sink.Close)

	return deps, nil
}
