package outbound

import "context"

// DealerDirectory tracks per-dealer identity details used by the fraud
// signals, currently the dealer's last recorded IP address.
type DealerDirectory interface {
	// LastKnownIP returns the dealer's last recorded IP, or "" when unknown.
	LastKnownIP(ctx context.Context, dealerID string) (string, error)

	// RecordIP stores the dealer's current IP as the last known one.
	RecordIP(ctx context.Context, dealerID, ip string) error
}
