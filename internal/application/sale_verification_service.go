// Package application contains the implementation of use cases.
package application

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"context"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/inbound"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that SaleVerificationService implements inbound.SaleVerificationService
var _ inbound.SaleVerificationService = (*SaleVerificationService)(nil)

// Config holds configuration for the sale-verification service.
type Config struct {
	// Now supplies the current time. Overridable for tests.
	Now func() time.Time

	// Logger is the structured logger for the service.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		Now:    time.Now,
		Logger: slog.Default(),
	}
}

// SaleVerificationService orchestrates the sale-verification pipeline:
// vehicle precondition, interaction validation, fraud scoring, intent
// persistence and the vehicle transition, all within one transaction.
type SaleVerificationService struct {
	config       Config
	txManager    outbound.TxManager
	vehicles     outbound.VehicleRepository
	interactions outbound.InteractionRepository
	intents      outbound.PurchaseIntentRepository
	fraud        *FraudEvaluator
	events       outbound.EventSink
	logger       *slog.Logger
}

// NewSaleVerificationService creates the service with its dependencies.
func NewSaleVerificationService(
	config Config,
	txManager outbound.TxManager,
	vehicles outbound.VehicleRepository,
	interactions outbound.InteractionRepository,
	intents outbound.PurchaseIntentRepository,
	fraud *FraudEvaluator,
	events outbound.EventSink,
) (*SaleVerificationService, error) {
	if txManager == nil {
		return nil, fmt.Errorf("txManager is required")
	}
	if vehicles == nil {
		return nil, fmt.Errorf("vehicles repository is required")
	}
	if interactions == nil {
		return nil, fmt.Errorf("interactions repository is required")
	}
	if intents == nil {
		return nil, fmt.Errorf("intents repository is required")
	}
	if fraud == nil {
		return nil, fmt.Errorf("fraud evaluator is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event sink is required")
	}

	defaults := ConfigDefaults()
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &SaleVerificationService{
		config:       config,
		txManager:    txManager,
		vehicles:     vehicles,
		interactions: interactions,
		intents:      intents,
		fraud:        fraud,
		events:       events,
		logger:       config.Logger.With("component", "sale-verification"),
	}, nil
}

// CreatePurchaseIntent runs the pipeline for one sale attempt. Every
// completed invocation yields a definitive verdict; rejections before a
// verdict carry one of the structured error codes.
func (s *SaleVerificationService) CreatePurchaseIntent(ctx context.Context, req inbound.CreatePurchaseIntentRequest) (*inbound.Verdict, error) {
	if req.DealerID == "" {
		return nil, entity.Errorf(entity.CodeUnauthenticated, "caller identity is required")
	}
	if req.TenantID == "" {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "tenantId is required")
	}
	if req.VehicleID == "" {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "vehicleId is required")
	}
	if req.ClientID == "" {
		return nil, entity.Errorf(entity.CodeInvalidArgument, "clientId is required")
	}

	saleTime := req.SaleTime
	if saleTime.IsZero() {
		saleTime = s.config.Now()
	}

	var verdict *inbound.Verdict
	var event outbound.VerificationEvent

	err := s.txManager.WithTransaction(ctx, func(tx pgx.Tx) error {
		vehicle, err := s.vehicles.GetForUpdateWithTX(ctx, tx, req.TenantID, req.VehicleID)
		if err != nil {
			return entity.Internalf(err, "load vehicle %s", req.VehicleID)
		}
		if vehicle == nil {
			return entity.Errorf(entity.CodeNotFound, "vehicle %s not found", req.VehicleID)
		}
		if vehicle.Status != entity.VehicleSoldPending {
			return entity.Errorf(entity.CodeFailedPrecondition,
				"vehicle %s is %s, expected %s", req.VehicleID, vehicle.Status, entity.VehicleSoldPending)
		}

		interaction := s.validateInteraction(ctx, req.TenantID, req.ClientID, req.VehicleID, req.DealerID, saleTime)
		if interaction == nil {
			if err := s.vehicles.MarkExternalWithTX(ctx, tx, req.TenantID, req.VehicleID, saleTime); err != nil {
				return entity.Internalf(err, "mark vehicle %s as external sale", req.VehicleID)
			}
			verdict = &inbound.Verdict{
				Status: inbound.VerdictExternal,
				Reason: "no qualifying interaction between client and vehicle before the sale",
			}
			event = outbound.VerificationEvent{
				Type:      outbound.EventExternalSale,
				TenantID:  req.TenantID,
				VehicleID: req.VehicleID,
				DealerID:  req.DealerID,
				ClientID:  req.ClientID,
			}
			return nil
		}

		result := s.fraud.Check(ctx, req.TenantID, req.DealerID, req.ClientID, vehicle.VIN, interaction, saleTime)

		intent, err := entity.NewPurchaseIntent(req.TenantID, req.DealerID, req.VehicleID, req.ClientID, interaction.ID, result, s.config.Now())
		if err != nil {
			return entity.Internalf(err, "build purchase intent for vehicle %s", req.VehicleID)
		}
		if err := s.intents.CreateWithTX(ctx, tx, intent); err != nil {
			return entity.Internalf(err, "persist purchase intent %s", intent.ID)
		}

		if result.Passed {
			now := s.config.Now()
			purchaseID := entity.NewPurchaseID(now)
			if err := s.intents.MarkVerifiedWithTX(ctx, tx, req.TenantID, intent.ID, purchaseID, now); err != nil {
				return entity.Internalf(err, "stamp verification on intent %s", intent.ID)
			}
			if err := s.vehicles.MarkVerifiedWithTX(ctx, tx, req.TenantID, req.VehicleID, purchaseID, saleTime); err != nil {
				return entity.Internalf(err, "mark vehicle %s as verified", req.VehicleID)
			}
			verdict = &inbound.Verdict{
				Success:    true,
				Status:     inbound.VerdictVerified,
				PurchaseID: purchaseID,
				FraudScore: result.Score,
				FraudFlags: result.Flags,
			}
			event = outbound.VerificationEvent{
				Type:       outbound.EventSaleVerified,
				TenantID:   req.TenantID,
				VehicleID:  req.VehicleID,
				DealerID:   req.DealerID,
				ClientID:   req.ClientID,
				IntentID:   intent.ID,
				PurchaseID: purchaseID,
				FraudScore: result.Score,
				FraudFlags: result.Flags,
			}
			return nil
		}

		if err := s.vehicles.HoldForReviewWithTX(ctx, tx, req.TenantID, req.VehicleID, result.Score, result.Flags); err != nil {
			return entity.Internalf(err, "attach review hold to vehicle %s", req.VehicleID)
		}
		verdict = &inbound.Verdict{
			Status:     inbound.VerdictPendingReview,
			FraudScore: result.Score,
			FraudFlags: result.Flags,
			Reason:     fmt.Sprintf("fraud score %d at or above review threshold %d", result.Score, entity.FraudReviewThreshold),
		}
		event = outbound.VerificationEvent{
			Type:       outbound.EventReviewHold,
			TenantID:   req.TenantID,
			VehicleID:  req.VehicleID,
			DealerID:   req.DealerID,
			ClientID:   req.ClientID,
			IntentID:   intent.ID,
			FraudScore: result.Score,
			FraudFlags: result.Flags,
		}
		return nil
	})
	if err != nil {
		var coded *entity.CodedError
		if !errors.As(err, &coded) {
			err = entity.Internalf(err, "sale verification for vehicle %s", req.VehicleID)
		}
		return nil, err
	}

	event.OccurredAt = s.config.Now()
	publishEvent(ctx, s.events, s.logger, event)

	s.logger.Info("sale verification completed",
		"tenant", req.TenantID,
		"vehicle", req.VehicleID,
		"dealer", req.DealerID,
		"status", verdict.Status,
		"fraudScore", verdict.FraudScore)
	return verdict, nil
}

// Ping verifies the service is running and its store is reachable.
func (s *SaleVerificationService) Ping(ctx context.Context) error {
	return s.vehicles.HealthCheck(ctx)
}
