package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that VehicleRepository implements outbound.VehicleRepository
var _ outbound.VehicleRepository = (*VehicleRepository)(nil)

// VehicleRepository is a PostgreSQL implementation of the
// outbound.VehicleRepository port. Sale transitions are conditional UPDATEs
// guarded on the current status, so a concurrent attempt that lost the race
// affects zero rows and surfaces as an error instead of a silent overwrite.
type VehicleRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(pool *pgxpool.Pool, logger *slog.Logger) *VehicleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &VehicleRepository{pool: pool, logger: logger}
}

const vehicleColumns = `tenant_id, id, dealer_id, vin, status, purchase_id, fraud_score, fraud_flags, sold_at, created_at, updated_at`

func scanVehicle(row pgx.Row) (*entity.Vehicle, error) {
	var v entity.Vehicle
	var purchaseID *string
	err := row.Scan(&v.TenantID, &v.ID, &v.DealerID, &v.VIN, &v.Status,
		&purchaseID, &v.FraudScore, &v.FraudFlags, &v.SoldAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if purchaseID != nil {
		v.PurchaseID = *purchaseID
	}
	return &v, nil
}

// GetForUpdateWithTX loads a vehicle and locks its row for the duration of the
// transaction. Returns (nil, nil) when the vehicle does not exist.
func (r *VehicleRepository) GetForUpdateWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string) (*entity.Vehicle, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles
		 WHERE tenant_id = $1 AND id = $2
		 FOR UPDATE`,
		tenantID, vehicleID)

	vehicle, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle for update: %w", err)
	}
	return vehicle, nil
}

// MarkExternalWithTX transitions a pending vehicle to SOLD_EXTERNAL.
func (r *VehicleRepository) MarkExternalWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string, soldAt time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET status = $1, sold_at = $2, updated_at = NOW()
		 WHERE tenant_id = $3 AND id = $4 AND status = $5`,
		entity.VehicleSoldExternal, soldAt, tenantID, vehicleID, entity.VehicleSoldPending)
	if err != nil {
		return fmt.Errorf("failed to mark vehicle as external: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %s is no longer pending verification", vehicleID)
	}
	return nil
}

// MarkVerifiedWithTX transitions a pending vehicle to SOLD_VERIFIED, attaches
// the purchase id and clears any fraud annotations.
func (r *VehicleRepository) MarkVerifiedWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID, purchaseID string, soldAt time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET status = $1, purchase_id = $2, sold_at = $3,
		     fraud_score = NULL, fraud_flags = NULL, updated_at = NOW()
		 WHERE tenant_id = $4 AND id = $5 AND status = $6`,
		entity.VehicleSoldVerified, purchaseID, soldAt, tenantID, vehicleID, entity.VehicleSoldPending)
	if err != nil {
		return fmt.Errorf("failed to mark vehicle as verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %s is no longer pending verification", vehicleID)
	}
	return nil
}

// HoldForReviewWithTX keeps the vehicle pending and attaches the fraud score
// and flags for review tooling.
func (r *VehicleRepository) HoldForReviewWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string, score int, flags []string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET fraud_score = $1, fraud_flags = $2, updated_at = NOW()
		 WHERE tenant_id = $3 AND id = $4 AND status = $5`,
		score, flags, tenantID, vehicleID, entity.VehicleSoldPending)
	if err != nil {
		return fmt.Errorf("failed to hold vehicle for review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %s is no longer pending verification", vehicleID)
	}
	return nil
}

// ReleaseWithTX returns a pending vehicle to AVAILABLE and clears sale and
// fraud annotations.
func (r *VehicleRepository) ReleaseWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET status = $1, purchase_id = NULL, sold_at = NULL,
		     fraud_score = NULL, fraud_flags = NULL, updated_at = NOW()
		 WHERE tenant_id = $2 AND id = $3 AND status = $4`,
		entity.VehicleAvailable, tenantID, vehicleID, entity.VehicleSoldPending)
	if err != nil {
		return fmt.Errorf("failed to release vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %s is no longer pending verification", vehicleID)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (r *VehicleRepository) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
