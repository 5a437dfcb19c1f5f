package outbound

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxManager defines the interface for database transaction management.
// The orchestrator injects this to make the multi-step sequence (vehicle
// precondition, intent write, vehicle transition) a single atomic unit, which
// closes the double-submission race on the vehicle-status check.
type TxManager interface {
	// WithTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}
