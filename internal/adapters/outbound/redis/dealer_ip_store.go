// Package redis provides a Redis implementation of the DealerDirectory port.
//
// The shared-IP fraud signal compares the IP on a client interaction against
// the dealer's last seen IP. Dealer IPs are recorded on every authenticated
// request, which makes this a high-churn, loss-tolerant dataset: Redis with a
// TTL fits, Postgres durability is not needed.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that DealerIPStore implements outbound.DealerDirectory
var _ outbound.DealerDirectory = (*DealerIPStore)(nil)

// Config holds Redis configuration for the dealer directory.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL is how long a recorded dealer IP stays relevant
	TTL time.Duration
	// KeyPrefix is prepended to all keys
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for the dealer directory.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		TTL:       30 * 24 * time.Hour,
		KeyPrefix: "saleverify",
	}
}

// DealerIPStore is a Redis implementation of the outbound.DealerDirectory port.
type DealerIPStore struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewDealerIPStore creates a new Redis dealer directory.
func NewDealerIPStore(cfg Config, logger *slog.Logger) (*DealerIPStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dealer-directory")

	return &DealerIPStore{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

// Ping checks the Redis connection.
func (s *DealerIPStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *DealerIPStore) Close() error {
	return s.client.Close()
}

func (s *DealerIPStore) key(dealerID string) string {
	return fmt.Sprintf("%s:dealer:%s:last_ip", s.keyPrefix, dealerID)
}

// LastKnownIP returns the dealer's last recorded IP, or "" when unknown.
func (s *DealerIPStore) LastKnownIP(ctx context.Context, dealerID string) (string, error) {
	ip, err := s.client.Get(ctx, s.key(dealerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get dealer IP: %w", err)
	}
	return ip, nil
}

// RecordIP stores the dealer's current IP with the configured TTL.
func (s *DealerIPStore) RecordIP(ctx context.Context, dealerID, ip string) error {
	if err := s.client.Set(ctx, s.key(dealerID), ip, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record dealer IP: %w", err)
	}
	return nil
}
