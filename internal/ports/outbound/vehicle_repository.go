package outbound

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// VehicleRepository defines the persistence interface for vehicle records.
// All sale transitions are conditional writes guarded on the current status,
// so a concurrent attempt that lost the race affects zero rows.
type VehicleRepository interface {
	// GetForUpdateWithTX loads a vehicle and locks its row for the duration
	// of the transaction. Returns (nil, nil) when the vehicle does not exist.
	GetForUpdateWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string) (*entity.Vehicle, error)

	// MarkExternalWithTX transitions a SOLD_PENDING_VERIFICATION vehicle to
	// SOLD_EXTERNAL, recording when the unverifiable sale was classified.
	MarkExternalWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string, soldAt time.Time) error

	// MarkVerifiedWithTX transitions a SOLD_PENDING_VERIFICATION vehicle to
	// SOLD_VERIFIED, attaches the purchase id and clears fraud annotations.
	MarkVerifiedWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID, purchaseID string, soldAt time.Time) error

	// HoldForReviewWithTX keeps the vehicle in SOLD_PENDING_VERIFICATION and
	// attaches the fraud score and flags for downstream review tooling.
	HoldForReviewWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string, score int, flags []string) error

	// ReleaseWithTX returns a vehicle to AVAILABLE and clears sale and fraud
	// annotations. Used when a reviewer rejects a held sale.
	ReleaseWithTX(ctx context.Context, tx pgx.Tx, tenantID, vehicleID string) error

	// HealthCheck verifies the underlying store is reachable.
	HealthCheck(ctx context.Context) error
}
