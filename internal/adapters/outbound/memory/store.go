// Package memory provides in-memory implementations of the outbound ports.
// Useful for testing and for running the server locally without Postgres.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Compile-time checks that the store implements the persistence ports
var (
	_ outbound.TxManager                = (*Store)(nil)
	_ outbound.InteractionRepository    = (*Store)(nil)
	_ outbound.ClientRepository         = (*Store)(nil)
	_ outbound.SalesHistory             = (*Store)(nil)
	_ outbound.InventoryIndex           = (*Store)(nil)
	_ outbound.VehicleRepository        = (*VehicleRepository)(nil)
	_ outbound.PurchaseIntentRepository = (*PurchaseIntentRepository)(nil)
)

// Store is an in-memory implementation of the persistence ports backing the
// verification pipeline. A single mutex stands in for the database
// transaction, which gives the same effective isolation for a single process.
//
// The vehicle and intent repositories share method names with clashing
// signatures, so they live on typed facades returned by Vehicles() and
// Intents().
type Store struct {
	mu           sync.Mutex
	vehicles     map[string]*entity.Vehicle
	clients      map[string]time.Time
	interactions []*entity.Interaction
	intents      map[string]*entity.PurchaseIntent
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		vehicles: make(map[string]*entity.Vehicle),
		clients:  make(map[string]time.Time),
		intents:  make(map[string]*entity.PurchaseIntent),
	}
}

// VehicleRepository is the vehicle facade of the store.
type VehicleRepository struct{ s *Store }

// PurchaseIntentRepository is the purchase-intent facade of the store.
type PurchaseIntentRepository struct{ s *Store }

// Vehicles returns the store's VehicleRepository port.
func (s *Store) Vehicles() *VehicleRepository { return &VehicleRepository{s: s} }

// Intents returns the store's PurchaseIntentRepository port.
func (s *Store) Intents() *PurchaseIntentRepository { return &PurchaseIntentRepository{s: s} }

func storeKey(tenantID, id string) string {
	return tenantID + "/" + id
}

// WithTransaction serializes fn under the store mutex. The tx handle is nil;
// the in-memory WithTX methods ignore it.
func (s *Store) WithTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

// SeedVehicle adds or replaces a vehicle record.
func (s *Store) SeedVehicle(v *entity.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *v
	s.vehicles[storeKey(v.TenantID, v.ID)] = &copied
}

// SeedClient records a client creation time.
func (s *Store) SeedClient(tenantID, clientID string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[storeKey(tenantID, clientID)] = createdAt
}

// SeedInteraction records a customer interaction.
func (s *Store) SeedInteraction(i *entity.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *i
	s.interactions = append(s.interactions, &copied)
}

// Vehicle returns a copy of the stored vehicle, or nil.
func (s *Store) Vehicle(tenantID, vehicleID string) *entity.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[storeKey(tenantID, vehicleID)]
	if !ok {
		return nil
	}
	copied := *v
	return &copied
}

// Intent returns a copy of the stored purchase intent, or nil.
func (s *Store) Intent(tenantID, intentID string) *entity.PurchaseIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.intents[storeKey(tenantID, intentID)]
	if !ok {
		return nil
	}
	copied := *i
	return &copied
}

// LatestInteraction returns the most recent interaction for the exact triple,
// or (nil, nil) when none exists.
func (s *Store) LatestInteraction(_ context.Context, tenantID, clientID, vehicleID, dealerID string) (*entity.Interaction, error) {
	var latest *entity.Interaction
	for _, i := range s.interactions {
		if i.TenantID != tenantID || i.ClientID != clientID || i.VehicleID != vehicleID || i.DealerID != dealerID {
			continue
		}
		if latest == nil || i.OccurredAt.After(latest.OccurredAt) {
			latest = i
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// ClientCreatedAt returns the client's creation time, or the zero time when
// the record does not exist.
func (s *Store) ClientCreatedAt(_ context.Context, tenantID, clientID string) (time.Time, error) {
	return s.clients[storeKey(tenantID, clientID)], nil
}

// RecentDealerSaleStatuses returns the dealer's most recent sale statuses,
// newest first.
func (s *Store) RecentDealerSaleStatuses(_ context.Context, tenantID, dealerID string, limit int) ([]entity.VehicleStatus, error) {
	var sold []*entity.Vehicle
	for _, v := range s.vehicles {
		if v.TenantID != tenantID || v.DealerID != dealerID || v.SoldAt == nil {
			continue
		}
		if v.Status != entity.VehicleSoldVerified && v.Status != entity.VehicleSoldExternal {
			continue
		}
		sold = append(sold, v)
	}
	for i := 0; i < len(sold); i++ {
		for j := i + 1; j < len(sold); j++ {
			if sold[j].SoldAt.After(*sold[i].SoldAt) {
				sold[i], sold[j] = sold[j], sold[i]
			}
		}
	}
	statuses := make([]entity.VehicleStatus, 0, limit)
	for _, v := range sold {
		if len(statuses) == limit {
			break
		}
		statuses = append(statuses, v.Status)
	}
	return statuses, nil
}

// ClientSaleCount counts the client's purchase intents, capped at limit.
func (s *Store) ClientSaleCount(_ context.Context, tenantID, clientID string, limit int) (int, error) {
	count := 0
	for _, i := range s.intents {
		if i.TenantID == tenantID && i.ClientID == clientID {
			count++
		}
	}
	if count > limit {
		count = limit
	}
	return count, nil
}

// CountByVIN counts inventory records sharing the VIN, across all tenants.
func (s *Store) CountByVIN(_ context.Context, vin string) (int, error) {
	count := 0
	for _, v := range s.vehicles {
		if v.VIN == vin {
			count++
		}
	}
	return count, nil
}

// GetForUpdateWithTX returns the vehicle, or (nil, nil) when absent.
func (r *VehicleRepository) GetForUpdateWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string) (*entity.Vehicle, error) {
	v, ok := r.s.vehicles[storeKey(tenantID, vehicleID)]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *VehicleRepository) pending(tenantID, vehicleID string) (*entity.Vehicle, error) {
	v, ok := r.s.vehicles[storeKey(tenantID, vehicleID)]
	if !ok || v.Status != entity.VehicleSoldPending {
		return nil, fmt.Errorf("vehicle %s is no longer pending verification", vehicleID)
	}
	return v, nil
}

// MarkExternalWithTX transitions a pending vehicle to SOLD_EXTERNAL.
func (r *VehicleRepository) MarkExternalWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string, soldAt time.Time) error {
	v, err := r.pending(tenantID, vehicleID)
	if err != nil {
		return err
	}
	v.Status = entity.VehicleSoldExternal
	v.SoldAt = &soldAt
	v.UpdatedAt = time.Now()
	return nil
}

// MarkVerifiedWithTX transitions a pending vehicle to SOLD_VERIFIED.
func (r *VehicleRepository) MarkVerifiedWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID, purchaseID string, soldAt time.Time) error {
	v, err := r.pending(tenantID, vehicleID)
	if err != nil {
		return err
	}
	v.Status = entity.VehicleSoldVerified
	v.PurchaseID = purchaseID
	v.SoldAt = &soldAt
	v.FraudScore = nil
	v.FraudFlags = nil
	v.UpdatedAt = time.Now()
	return nil
}

// HoldForReviewWithTX attaches fraud annotations to a pending vehicle.
func (r *VehicleRepository) HoldForReviewWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string, score int, flags []string) error {
	v, err := r.pending(tenantID, vehicleID)
	if err != nil {
		return err
	}
	v.FraudScore = &score
	v.FraudFlags = append([]string(nil), flags...)
	v.UpdatedAt = time.Now()
	return nil
}

// ReleaseWithTX returns a pending vehicle to AVAILABLE.
func (r *VehicleRepository) ReleaseWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string) error {
	v, err := r.pending(tenantID, vehicleID)
	if err != nil {
		return err
	}
	v.Status = entity.VehicleAvailable
	v.PurchaseID = ""
	v.SoldAt = nil
	v.FraudScore = nil
	v.FraudFlags = nil
	v.UpdatedAt = time.Now()
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (r *VehicleRepository) HealthCheck(_ context.Context) error {
	return nil
}

// CreateWithTX inserts a new intent record.
func (r *PurchaseIntentRepository) CreateWithTX(_ context.Context, _ pgx.Tx, intent *entity.PurchaseIntent) error {
	key := storeKey(intent.TenantID, intent.ID)
	if _, exists := r.s.intents[key]; exists {
		return fmt.Errorf("purchase intent %s already exists", intent.ID)
	}
	copied := *intent
	r.s.intents[key] = &copied
	return nil
}

// GetForUpdateWithTX returns the intent, or (nil, nil) when absent.
func (r *PurchaseIntentRepository) GetForUpdateWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID string) (*entity.PurchaseIntent, error) {
	i, ok := r.s.intents[storeKey(tenantID, intentID)]
	if !ok {
		return nil, nil
	}
	copied := *i
	return &copied, nil
}

// MarkVerifiedWithTX stamps the resolution on an intent without a purchase id.
func (r *PurchaseIntentRepository) MarkVerifiedWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID, purchaseID string, verifiedAt time.Time) error {
	i, ok := r.s.intents[storeKey(tenantID, intentID)]
	if !ok {
		return fmt.Errorf("purchase intent %s not found", intentID)
	}
	if i.PurchaseID != "" {
		return fmt.Errorf("purchase intent %s already carries a purchase id", intentID)
	}
	i.Status = entity.IntentVerified
	i.PurchaseID = purchaseID
	i.VerifiedAt = &verifiedAt
	return nil
}

// MarkRejectedWithTX resolves a pending intent as rejected.
func (r *PurchaseIntentRepository) MarkRejectedWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID string) error {
	i, ok := r.s.intents[storeKey(tenantID, intentID)]
	if !ok {
		return fmt.Errorf("purchase intent %s not found", intentID)
	}
	if i.Status != entity.IntentPending {
		return fmt.Errorf("purchase intent %s is not pending", intentID)
	}
	i.Status = entity.IntentRejected
	return nil
}

// ListResolvedInWindow returns resolved intents created in [from, to).
func (r *PurchaseIntentRepository) ListResolvedInWindow(_ context.Context, from, to time.Time) ([]*entity.PurchaseIntent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PurchaseIntent
	for _, i := range r.s.intents {
		if i.Status != entity.IntentVerified && i.Status != entity.IntentRejected {
			continue
		}
		if i.CreatedAt.Before(from) || !i.CreatedAt.Before(to) {
			continue
		}
		copied := *i
		out = append(out, &copied)
	}
	return out, nil
}
