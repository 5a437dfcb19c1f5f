package entity

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IntentStatus is the state of a Purchase Intent record.
type IntentStatus string

const (
	IntentPending  IntentStatus = "pending"
	IntentVerified IntentStatus = "verified"
	IntentRejected IntentStatus = "rejected"
	IntentExternal IntentStatus = "external"
)

// IsValid reports whether s is a recognised intent status.
func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentPending, IntentVerified, IntentRejected, IntentExternal:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is a resolved state. Only pending intents can
// still be acted on by a reviewer.
func (s IntentStatus) IsTerminal() bool {
	return s != IntentPending
}

// PurchaseIntent is the audit record for one sale-verification attempt. It is
// created exactly once per attempt that has a qualifying interaction and is
// immutable afterwards, except for the status, verification timestamp and
// purchase id set by a single resolution update.
type PurchaseIntent struct {
	ID            string
	TenantID      string
	DealerID      string
	VehicleID     string
	ClientID      string
	InteractionID string
	Status        IntentStatus
	FraudScore    int
	FraudFlags    []string
	PurchaseID    string
	CreatedAt     time.Time
	VerifiedAt    *time.Time
}

// NewPurchaseIntent creates a Purchase Intent for a sale attempt that passed
// interaction validation. The intent starts verified when the fraud check
// passed and pending (held for manual review) when it did not.
func NewPurchaseIntent(tenantID, dealerID, vehicleID, clientID, interactionID string, fraud FraudCheckResult, createdAt time.Time) (*PurchaseIntent, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID must not be empty")
	}
	if dealerID == "" {
		return nil, fmt.Errorf("dealerID must not be empty")
	}
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicleID must not be empty")
	}
	if clientID == "" {
		return nil, fmt.Errorf("clientID must not be empty")
	}
	if interactionID == "" {
		return nil, fmt.Errorf("interactionID must not be empty")
	}
	if fraud.Score < 0 || fraud.Score > MaxFraudScore {
		return nil, fmt.Errorf("fraud score out of range: %d", fraud.Score)
	}
	status := IntentPending
	if fraud.Passed {
		status = IntentVerified
	}
	flags := fraud.Flags
	if flags == nil {
		flags = []string{}
	}
	return &PurchaseIntent{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		DealerID:      dealerID,
		VehicleID:     vehicleID,
		ClientID:      clientID,
		InteractionID: interactionID,
		Status:        status,
		FraudScore:    fraud.Score,
		FraudFlags:    flags,
		CreatedAt:     createdAt,
	}, nil
}

const purchaseIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewPurchaseID returns a human-readable purchase id, issued only for
// verified sales. Format: PUR-<base36 epoch millis>-<7 random alphanumerics>,
// uppercased.
func NewPurchaseID(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = purchaseIDAlphabet[rand.IntN(len(purchaseIDAlphabet))]
	}
	return fmt.Sprintf("PUR-%s-%s", ts, suffix)
}
