package application

import (
	"context"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// validateInteraction resolves the most recent interaction for the exact
// (client, vehicle, dealer) triple and checks it qualifies as prior intent for
// the sale. Returns nil when no qualifying interaction exists. A lookup
// failure also returns nil: an interaction we cannot read cannot corroborate
// a sale.
func (s *SaleVerificationService) validateInteraction(ctx context.Context, tenantID, clientID, vehicleID, dealerID string, saleTime time.Time) *entity.Interaction {
	interaction, err := s.interactions.LatestInteraction(ctx, tenantID, clientID, vehicleID, dealerID)
	if err != nil {
		s.logger.Warn("interaction lookup failed, treating sale as external",
			"tenant", tenantID,
			"vehicle", vehicleID,
			"client", clientID,
			"error", err)
		return nil
	}
	if interaction == nil {
		return nil
	}
	if !interaction.Qualifies(saleTime) {
		return nil
	}
	return interaction
}
