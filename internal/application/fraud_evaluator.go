package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// FraudEvaluator gathers the history inputs for the scoring policy and
// evaluates it. Each lookup degrades independently: a failed read leaves its
// signal context field at the zero value, which the predicates treat as "not
// triggered", so one flaky dependency never blocks a sale.
type FraudEvaluator struct {
	clients   outbound.ClientRepository
	dealers   outbound.DealerDirectory
	sales     outbound.SalesHistory
	inventory outbound.InventoryIndex
	logger    *slog.Logger
}

// NewFraudEvaluator creates the evaluator with its read-side dependencies.
func NewFraudEvaluator(
	clients outbound.ClientRepository,
	dealers outbound.DealerDirectory,
	sales outbound.SalesHistory,
	inventory outbound.InventoryIndex,
	logger *slog.Logger,
) (*FraudEvaluator, error) {
	if clients == nil {
		return nil, fmt.Errorf("clients repository is required")
	}
	if dealers == nil {
		return nil, fmt.Errorf("dealer directory is required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sales history is required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory index is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FraudEvaluator{
		clients:   clients,
		dealers:   dealers,
		sales:     sales,
		inventory: inventory,
		logger:    logger.With("component", "fraud-evaluator"),
	}, nil
}

// Check evaluates the scoring policy for one sale attempt. It always produces
// a result.
func (e *FraudEvaluator) Check(ctx context.Context, tenantID, dealerID, clientID, vin string, interaction *entity.Interaction, saleTime time.Time) entity.FraudCheckResult {
	sc := entity.SignalContext{
		SaleTime: saleTime,
	}
	if interaction != nil {
		sc.InteractionTime = interaction.OccurredAt
		sc.InteractionIP = interaction.IPAddress
	}

	createdAt, err := e.clients.ClientCreatedAt(ctx, tenantID, clientID)
	if err != nil {
		e.logger.Warn("client creation lookup failed, skipping signal",
			"tenant", tenantID, "client", clientID, "error", err)
	} else {
		sc.ClientCreatedAt = createdAt
	}

	dealerIP, err := e.dealers.LastKnownIP(ctx, dealerID)
	if err != nil {
		e.logger.Warn("dealer IP lookup failed, skipping signal",
			"dealer", dealerID, "error", err)
	} else {
		sc.DealerLastIP = dealerIP
	}

	statuses, err := e.sales.RecentDealerSaleStatuses(ctx, tenantID, dealerID, entity.DealerSalesWindow)
	if err != nil {
		e.logger.Warn("dealer sales lookup failed, skipping signal",
			"tenant", tenantID, "dealer", dealerID, "error", err)
	} else {
		sc.DealerRecentSaleStatuses = statuses
	}

	if vin != "" {
		matches, err := e.inventory.CountByVIN(ctx, vin)
		if err != nil {
			e.logger.Warn("VIN lookup failed, skipping signal",
				"vin", vin, "error", err)
		} else {
			sc.VINMatches = matches
		}
	}

	count, err := e.sales.ClientSaleCount(ctx, tenantID, clientID, entity.ClientSalesWindow)
	if err != nil {
		e.logger.Warn("client sales lookup failed, skipping signal",
			"tenant", tenantID, "client", clientID, "error", err)
	} else {
		sc.ClientSaleCount = count
	}

	return entity.EvaluateFraudSignals(sc)
}
