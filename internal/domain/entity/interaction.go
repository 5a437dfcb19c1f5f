package entity

import (
	"time"
)

// InteractionKind classifies recorded customer touch-points.
type InteractionKind string

const (
	InteractionChat        InteractionKind = "chat"
	InteractionLead        InteractionKind = "lead"
	InteractionReservation InteractionKind = "reservation"
	InteractionFinancing   InteractionKind = "financing"
	InteractionView        InteractionKind = "view"
)

// ValidInteractionKinds is the set of recognised interaction kinds.
var ValidInteractionKinds = map[InteractionKind]bool{
	InteractionChat: true, InteractionLead: true, InteractionReservation: true,
	InteractionFinancing: true, InteractionView: true,
}

// IsValid reports whether k is a recognised interaction kind.
func (k InteractionKind) IsValid() bool {
	return ValidInteractionKinds[k]
}

// MinInteractionLead is the minimum gap between a recorded interaction and the
// sale it corroborates. Anything shorter is indistinguishable from an
// interaction fabricated moments before marking the sale.
const MinInteractionLead = 60 * time.Second

// Interaction is a recorded customer touch-point, owned by the messaging/CRM
// subsystem and read-only here.
type Interaction struct {
	ID         string
	TenantID   string
	ClientID   string
	VehicleID  string
	DealerID   string
	Kind       InteractionKind
	IPAddress  string
	UserAgent  string
	OccurredAt time.Time
}

// Qualifies reports whether the interaction can corroborate a sale at
// saleTime. The interaction must strictly predate the sale (an interaction
// from the future is never valid) and lead it by at least MinInteractionLead;
// a gap of exactly MinInteractionLead qualifies.
func (i *Interaction) Qualifies(saleTime time.Time) bool {
	if !i.OccurredAt.Before(saleTime) {
		return false
	}
	return saleTime.Sub(i.OccurredAt) >= MinInteractionLead
}
