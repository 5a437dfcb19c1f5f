package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/inbound"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that ReviewService implements inbound.ReviewService
var _ inbound.ReviewService = (*ReviewService)(nil)

// ReviewService applies human review decisions to intents held by the
// pipeline. Approval completes the sale exactly as auto-verification would;
// rejection returns the vehicle to inventory.
type ReviewService struct {
	now       func() time.Time
	txManager outbound.TxManager
	intents   outbound.PurchaseIntentRepository
	vehicles  outbound.VehicleRepository
	events    outbound.EventSink
	logger    *slog.Logger
}

// NewReviewService creates the service with its dependencies.
func NewReviewService(
	txManager outbound.TxManager,
	intents outbound.PurchaseIntentRepository,
	vehicles outbound.VehicleRepository,
	events outbound.EventSink,
	logger *slog.Logger,
) (*ReviewService, error) {
	if txManager == nil {
		return nil, fmt.Errorf("txManager is required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intents repository is required")
	}
	if vehicles == nil {
		return nil, fmt.Errorf("vehicles repository is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{
		now:       time.Now,
		txManager: txManager,
		intents:   intents,
		vehicles:  vehicles,
		events:    events,
		logger:    logger.With("component", "review"),
	}, nil
}

// Resolve applies a reviewer's decision to a pending intent. Only pending
// intents can be resolved; resolving is a one-shot transition.
func (s *ReviewService) Resolve(ctx context.Context, tenantID, intentID string, decision inbound.ReviewDecision, reviewerID string) (*entity.PurchaseIntent, error) {
	if reviewerID == "" {
		return nil, entity.Errorf(entity.CodeUnauthenticated, "reviewer identity is required")
	}
	if tenantID == "" {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "tenantId is required")
	}
	if intentID == "" {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "intentId is required")
	}
	if !decision.IsValid() {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "unknown review decision %q", decision)
	}

	var resolved *entity.PurchaseIntent

	err := s.txManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		intent, err := s.intents.GetForUpdateWithTX(ctx, tx, tenantID, intentID)
		if err != nil {
			return entity.Internalf(err, "load intent %s", intentID)
		}
		if intent == nil {
			return entity.Errorf(entity.CodeNotFound, "purchase intent %s not found", intentID)
		}
		if intent.Status.IsTerminal() {
			return entity.Errorf(entity.CodeFailedPrecondition,
				"purchase intent %s is already %s", intentID, intent.Status)
		}

		switch decision {
		case inbound.ReviewApprove:
			now := s.now()
			purchaseID := entity.NewPurchaseID(now)
			if err := s.intents.MarkVerifiedWithTX(ctx, tx, tenantID, intentID, purchaseID, now); err != nil {
				return entity.Internalf(err, "stamp verification on intent %s", intentID)
			}
			if err := s.vehicles.MarkVerifiedWithTX(ctx, tx, tenantID, intent.VehicleID, purchaseID, now); err != nil {
				return entity.Internalf(err, "mark vehicle %s as verified", intent.VehicleID)
			}
			intent.Status = entity.IntentVerified
			intent.PurchaseID = purchaseID
			intent.VerifiedAt = &now
		case inbound.ReviewReject:
			if err := s.intents.MarkRejectedWithTX(ctx, tx, tenantID, intentID); err != nil {
				return entity.Internalf(err, "mark intent %s as rejected", intentID)
			}
			if err := s.vehicles.ReleaseWithTX(ctx, tx, tenantID, intent.VehicleID); err != nil {
				return entity.Internalf(err, "release vehicle %s", intent.VehicleID)
			}
			intent.Status = entity.IntentRejected
		}

		resolved = intent
		return nil
	})
	if err != nil {
		var coded *entity.CodedError
		if !errors.As(err, &coded) {
			err = entity.Internalf(err, "resolve review for intent %s", intentID)
		}
		return nil, err
	}

	publishEvent(ctx, s.events, s.logger, outbound.VerificationEvent{
		Type:       outbound.EventReviewResolved,
		TenantID:   tenantID,
		VehicleID:  resolved.VehicleID,
		DealerID:   resolved.DealerID,
		ClientID:   resolved.ClientID,
		IntentID:   resolved.ID,
		PurchaseID: resolved.PurchaseID,
		ReviewerID: reviewerID,
		FraudScore: resolved.FraudScore,
		FraudFlags: resolved.FraudFlags,
		OccurredAt: s.now(),
	})

	s.logger.Info("review resolved",
		"tenant", tenantID,
		"intent", intentID,
		"decision", decision,
		"reviewer", reviewerID,
		"status", resolved.Status)
	return resolved, nil
}
