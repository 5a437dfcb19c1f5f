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

// Compile-time check that PurchaseIntentRepository implements outbound.PurchaseIntentRepository
var _ outbound.PurchaseIntentRepository = (*PurchaseIntentRepository)(nil)

// PurchaseIntentRepository persists the append-only audit records of sale
// attempts.
type PurchaseIntentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPurchaseIntentRepository creates a new PostgreSQL purchase intent repository.
func NewPurchaseIntentRepository(pool *pgxpool.Pool, logger *slog.Logger) *PurchaseIntentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseIntentRepository{pool: pool, logger: logger}
}

const intentColumns = `id, tenant_id, dealer_id, vehicle_id, client_id, interaction_id, status, fraud_score, fraud_flags, purchase_id, created_at, verified_at`

func scanIntent(row pgx.Row) (*entity.PurchaseIntent, error) {
	var i entity.PurchaseIntent
	var purchaseID *string
	err := row.Scan(&i.ID, &i.TenantID, &i.DealerID, &i.VehicleID, &i.ClientID,
		&i.InteractionID, &i.Status, &i.FraudScore, &i.FraudFlags,
		&purchaseID, &i.CreatedAt, &i.VerifiedAt)
	if err != nil {
		return nil, err
	}
	if purchaseID != nil {
		i.PurchaseID = *purchaseID
	}
	return &i, nil
}

// CreateWithTX inserts a new intent record.
func (r *PurchaseIntentRepository) CreateWithTX(ctx context.Context, tx pgx.Tx, intent *entity.PurchaseIntent) error {
	var purchaseID *string
	if intent.PurchaseID != "" {
		purchaseID = &intent.PurchaseID
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO purchase_intents (`+intentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		intent.ID, intent.TenantID, intent.DealerID, intent.VehicleID, intent.ClientID,
		intent.InteractionID, intent.Status, intent.FraudScore, intent.FraudFlags,
		purchaseID, intent.CreatedAt, intent.VerifiedAt)
	if err != nil {
		return fmt.Errorf("failed to create purchase intent: %w", err)
	}
	return nil
}

// GetForUpdateWithTX loads an intent and locks its row. Returns (nil, nil)
// when the intent does not exist.
func (r *PurchaseIntentRepository) GetForUpdateWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID string) (*entity.PurchaseIntent, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+intentColumns+` FROM purchase_intents
		 WHERE tenant_id = $1 AND id = $2
		 FOR UPDATE`,
		tenantID, intentID)

	intent, err := scanIntent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase intent for update: %w", err)
	}
	return intent, nil
}

// MarkVerifiedWithTX performs the single permitted follow-up update: status
// becomes verified and the purchase id and verification timestamp are
// attached. The purchase_id IS NULL guard keeps the record write-once.
func (r *PurchaseIntentRepository) MarkVerifiedWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID, purchaseID string, verifiedAt time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE purchase_intents
		 SET status = $1, purchase_id = $2, verified_at = $3
		 WHERE tenant_id = $4 AND id = $5 AND purchase_id IS NULL`,
		entity.IntentVerified, purchaseID, verifiedAt, tenantID, intentID)
	if err != nil {
		return fmt.Errorf("failed to mark intent as verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase intent %s already carries a purchase id", intentID)
	}
	return nil
}

// MarkRejectedWithTX resolves a pending intent as rejected.
func (r *PurchaseIntentRepository) MarkRejectedWithTX(ctx context.Context, tx pgx.Tx, tenantID, intentID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE purchase_intents
		 SET status = $1
		 WHERE tenant_id = $2 AND id = $3 AND status = $4`,
		entity.IntentRejected, tenantID, intentID, entity.IntentPending)
	if err != nil {
		return fmt.Errorf("failed to mark intent as rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase intent %s is not pending", intentID)
	}
	return nil
}

// ListResolvedInWindow returns intents resolved as verified or rejected that
// were created in [from, to), across all tenants, ordered by creation time.
func (r *PurchaseIntentRepository) ListResolvedInWindow(ctx context.Context, from, to time.Time) ([]*entity.PurchaseIntent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+intentColumns+` FROM purchase_intents
		 WHERE status IN ($1, $2)
		   AND created_at >= $3 AND created_at < $4
		 ORDER BY created_at`,
		entity.IntentVerified, entity.IntentRejected, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved intents: %w", err)
	}
	defer rows.Close()

	var intents []*entity.PurchaseIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase intent: %w", err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resolved intents: %w", err)
	}
	return intents, nil
}
