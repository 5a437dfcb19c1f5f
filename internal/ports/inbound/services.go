// Package inbound contains the primary/inbound ports.
// These interfaces define the use cases that the application exposes.
package inbound

import (
	"context"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
)

// VerdictStatus is the outcome class of a sale-verification attempt.
type VerdictStatus string

const (
	// VerdictVerified: the sale was corroborated and auto-verified.
	VerdictVerified VerdictStatus = "verified"
	// VerdictExternal: no qualifying interaction exists; the sale is
	// classified as external rather than blocked.
	VerdictExternal VerdictStatus = "external"
	// VerdictPendingReview: the fraud score reached the review threshold and
	// the sale is held for a human decision.
	VerdictPendingReview VerdictStatus = "pending_review"
)

// CreatePurchaseIntentRequest carries one sale-verification attempt.
// DealerID comes from the caller's verified identity, never from the request
// body. A zero SaleTime means "now".
type CreatePurchaseIntentRequest struct {
	TenantID  string
	VehicleID string
	ClientID  string
	DealerID  string
	SaleTime  time.Time
}

// Verdict is the definitive outcome returned for every completed attempt.
type Verdict struct {
	Success    bool
	Status     VerdictStatus
	PurchaseID string
	FraudScore int
	FraudFlags []string
	Reason     string
}

// SaleVerificationService is the entry point of the verification pipeline.
type SaleVerificationService interface {
	// CreatePurchaseIntent runs the full pipeline for one "mark vehicle as
	// sold" action and returns a verdict, or a *entity.CodedError when the
	// attempt is rejected before a verdict can be produced.
	CreatePurchaseIntent(ctx context.Context, req CreatePurchaseIntentRequest) (*Verdict, error)

	// Ping verifies the service and its persistence dependency are healthy.
	Ping(ctx context.Context) error
}

// ReviewDecision is a human reviewer's resolution of a pending intent.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

// IsValid reports whether d is a recognised review decision.
func (d ReviewDecision) IsValid() bool {
	return d == ReviewApprove || d == ReviewReject
}

// ReviewService resolves manual-review holds created by the pipeline.
type ReviewService interface {
	// Resolve applies a reviewer's decision to a pending Purchase Intent and
	// returns the updated record. Approval issues a purchase id and verifies
	// the vehicle; rejection returns the vehicle to inventory.
	Resolve(ctx context.Context, tenantID, intentID string, decision ReviewDecision, reviewerID string) (*entity.PurchaseIntent, error)
}

// HealthChecker reports readiness and liveness for worker binaries so rolling
// deployments can gate traffic on a processing loop actually running.
type HealthChecker interface {
	// IsReady returns true once the service has started its processing loop.
	IsReady() bool

	// IsHealthy returns true while the processing loop is polling regularly.
	IsHealthy() bool
}
