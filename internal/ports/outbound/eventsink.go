package outbound

import (
	"context"
	"time"
)

// VerificationEventType classifies verdict events published for downstream
// consumers (certificate generation, admin alerting).
type VerificationEventType string

const (
	EventSaleVerified   VerificationEventType = "sale_verified"
	EventReviewHold     VerificationEventType = "review_hold"
	EventExternalSale   VerificationEventType = "external_sale"
	EventReviewResolved VerificationEventType = "review_resolved"
)

// VerificationEvent is published after a verdict or review resolution has
// been committed. Publishing is best-effort and never alters the verdict.
type VerificationEvent struct {
	Type       VerificationEventType `json:"type"`
	TenantID   string                `json:"tenantId"`
	VehicleID  string                `json:"vehicleId"`
	DealerID   string                `json:"dealerId"`
	ClientID   string                `json:"clientId,omitempty"`
	IntentID   string                `json:"intentId,omitempty"`
	PurchaseID string                `json:"purchaseId,omitempty"`
	ReviewerID string                `json:"reviewerId,omitempty"`
	FraudScore int                   `json:"fraudScore"`
	FraudFlags []string              `json:"fraudFlags,omitempty"`
	OccurredAt time.Time             `json:"occurredAt"`
}

// EventSink publishes verification events.
type EventSink interface {
	// Publish delivers one event. Implementations may retry transient
	// failures internally.
	Publish(ctx context.Context, event VerificationEvent) error

	// Close releases resources and prevents further publishing.
	Close() error
}
