package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that ClientRepository implements outbound.ClientRepository
var _ outbound.ClientRepository = (*ClientRepository)(nil)

// ClientRepository reads client/lead records owned by the CRM subsystem.
type ClientRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewClientRepository creates a new PostgreSQL client repository.
func NewClientRepository(pool *pgxpool.Pool, logger *slog.Logger) *ClientRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientRepository{pool: pool, logger: logger}
}

// ClientCreatedAt returns when the client record was created, or the zero time
// when the record does not exist.
func (r *ClientRepository) ClientCreatedAt(ctx context.Context, tenantID, clientID string) (time.Time, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT created_at FROM clients WHERE tenant_id = $1 AND id = $2`,
		tenantID, clientID).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get client creation time: %w", err)
	}
	return createdAt, nil
}
