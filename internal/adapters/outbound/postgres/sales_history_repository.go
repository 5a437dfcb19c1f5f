package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that SalesHistoryRepository implements outbound.SalesHistory
var _ outbound.SalesHistory = (*SalesHistoryRepository)(nil)

// SalesHistoryRepository answers the history lookups behind the fraud
// signals. Dealer history comes from sold vehicles because external sales
// never produce an intent record; client history comes from purchase intents.
type SalesHistoryRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSalesHistoryRepository creates a new PostgreSQL sales history repository.
func NewSalesHistoryRepository(pool *pgxpool.Pool, logger *slog.Logger) *SalesHistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesHistoryRepository{pool: pool, logger: logger}
}

// RecentDealerSaleStatuses returns the statuses of the dealer's most recently
// completed sales, newest first, at most limit entries.
func (r *SalesHistoryRepository) RecentDealerSaleStatuses(ctx context.Context, tenantID, dealerID string, limit int) ([]entity.VehicleStatus, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status FROM vehicles
		 WHERE tenant_id = $1 AND dealer_id = $2
		   AND status IN ($3, $4)
		   AND sold_at IS NOT NULL
		 ORDER BY sold_at DESC
		 LIMIT $5`,
		tenantID, dealerID, entity.VehicleSoldVerified, entity.VehicleSoldExternal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dealer sale history: %w", err)
	}
	defer rows.Close()

	var statuses []entity.VehicleStatus
	for rows.Next() {
		var status entity.VehicleStatus
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("failed to scan sale status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dealer sale history: %w", err)
	}
	return statuses, nil
}

// ClientSaleCount returns how many sale records exist among the client's limit
// most recent purchase intents.
func (r *SalesHistoryRepository) ClientSaleCount(ctx context.Context, tenantID, clientID string, limit int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
		     SELECT id FROM purchase_intents
		     WHERE tenant_id = $1 AND client_id = $2
		     ORDER BY created_at DESC
		     LIMIT $3
		 ) recent`,
		tenantID, clientID, limit).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count client sales: %w", err)
	}
	return count, nil
}
