package outbound

import (
	"context"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// InteractionRepository reads recorded customer touch-points. The interaction
// store is owned by the messaging/CRM subsystem and is read-only here.
type InteractionRepository interface {
	// LatestInteraction returns the single most recent interaction matching
	// the exact (clientID, vehicleID, dealerID) triple within the tenant, or
	// (nil, nil) when none exists.
	LatestInteraction(ctx context.Context, tenantID, clientID, vehicleID, dealerID string) (*entity.Interaction, error)
}
