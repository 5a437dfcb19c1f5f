package outbound

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// PurchaseIntentRepository persists the append-only audit records of sale
// attempts. Create-once semantics: fields are written exactly once, except
// for the status, purchase id and verification timestamp set by a single
// resolution update. Nothing ever mutates the fraud score, flags or party
// references after creation.
type PurchaseIntentRepository interface {
	// CreateWithTX inserts a new intent record.
	CreateWithTX(ctx context.Context, tx pgx.Tx, intent *entity.PurchaseIntent) error

	// GetForUpdateWithTX loads an intent and locks its row. Returns
	// (nil, nil) when the intent does not exist.
	GetForUpdateWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID string) (*entity.PurchaseIntent, error)

	// MarkVerifiedWithTX performs the single permitted follow-up update:
	// status becomes verified and the purchase id and verification timestamp
	// are attached. Fails if the intent already carries a purchase id.
	MarkVerifiedWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID, purchaseID string, verifiedAt time.Time) error

	// MarkRejectedWithTX resolves a pending intent as rejected.
	MarkRejectedWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID string) error

	// ListResolvedInWindow returns intents resolved as verified or rejected
	// that were created in [from, to), across all tenants, for audit export.
	ListResolvedInWindow(ctx context.Context, from, to time.Time) ([]*entity.PurchaseIntent, error)
}
