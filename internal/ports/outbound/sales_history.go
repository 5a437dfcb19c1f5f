package outbound

import (
	"context"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// SalesHistory reads recent sale activity for the history-based fraud
// signals.
type SalesHistory interface {
	// RecentDealerSaleStatuses returns the statuses of the dealer's most
	// recently completed sales (SOLD_VERIFIED or SOLD_EXTERNAL), newest
	// first, at most limit entries.
	RecentDealerSaleStatuses(ctx context.Context, tenantID, dealerID string, limit int) ([]entity.VehicleStatus, error)

	// ClientSaleCount returns how many sale records exist among the client's
	// limit most recent Purchase Intents.
	ClientSaleCount(ctx context.Context, tenantID, clientID string, limit int) (int, error)
}
