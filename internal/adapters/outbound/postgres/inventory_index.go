package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that InventoryIndex implements outbound.InventoryIndex
var _ outbound.InventoryIndex = (*InventoryIndex)(nil)

// InventoryIndex answers VIN lookups across the whole vehicles table.
type InventoryIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewInventoryIndex creates a new PostgreSQL inventory index.
func NewInventoryIndex(pool *pgxpool.Pool, logger *slog.Logger) *InventoryIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryIndex{pool: pool, logger: logger}
}

// CountByVIN returns the number of inventory records sharing the given VIN.
// No tenant filter: the same physical vehicle relisted under multiple dealer
// accounts is the pattern this exists to catch.
func (r *InventoryIndex) CountByVIN(ctx context.Context, vin string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE vin = $1`,
		vin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count VIN matches: %w", err)
	}
	return count, nil
}
