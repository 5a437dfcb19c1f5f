package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that InteractionRepository implements outbound.InteractionRepository
var _ outbound.InteractionRepository = (*InteractionRepository)(nil)

// InteractionRepository reads the interaction store owned by the
// messaging/CRM subsystem. Read-only here.
type InteractionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewInteractionRepository creates a new PostgreSQL interaction repository.
func NewInteractionRepository(pool *pgxpool.Pool, logger *slog.Logger) *InteractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &InteractionRepository{pool: pool, logger: logger}
}

// LatestInteraction returns the single most recent interaction matching the
// exact (clientID, vehicleID, dealerID) triple within the tenant, or
// (nil, nil) when none exists.
func (r *InteractionRepository) LatestInteraction(ctx context.Context, tenantID, clientID, vehicleID, dealerID string) (*entity.Interaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, client_id, vehicle_id, dealer_id, kind, ip_address, user_agent, occurred_at
		 FROM interactions
		 WHERE tenant_id = $1 AND client_id = $2 AND vehicle_id = $3 AND dealer_id = $4
		 ORDER BY occurred_at DESC
		 LIMIT 1`,
		tenantID, clientID, vehicleID, dealerID)

	var i entity.Interaction
	err := row.Scan(&i.ID, &i.TenantID, &i.ClientID, &i.VehicleID, &i.DealerID,
		&i.Kind, &i.IPAddress, &i.UserAgent, &i.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest interaction: %w", err)
	}
	return &i, nil
}
