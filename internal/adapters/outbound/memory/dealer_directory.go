package memory

import (
	"context"
	"sync"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time check that DealerDirectory implements outbound.DealerDirectory
var _ outbound.DealerDirectory = (*DealerDirectory)(nil)

// DealerDirectory is an in-memory dealer IP directory for tests and local
// development, where no Redis instance exists.
type DealerDirectory struct {
	mu  sync.RWMutex
	ips map[string]string
}

// NewDealerDirectory creates an empty in-memory dealer directory.
func NewDealerDirectory() *DealerDirectory {
	return &DealerDirectory{ips: make(map[string]string)}
}

// LastKnownIP returns the dealer's last recorded IP, or "" when unknown.
func (d *DealerDirectory) LastKnownIP(_ context.Context, dealerID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ips[dealerID], nil
}

// RecordIP stores the dealer's current IP as the last known one.
func (d *DealerDirectory) RecordIP(_ context.Context, dealerID, ip string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ips[dealerID] = ip
	return nil
}
