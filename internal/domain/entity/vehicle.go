// Package entity defines the core domain types for the sale-verification
// pipeline: vehicles, customer interactions, purchase intents and the fraud
// scoring policy.
package entity

import (
	"fmt"
	"time"
)

// VehicleStatus is the lifecycle state of a vehicle in inventory.
type VehicleStatus string

const (
	VehicleAvailable     VehicleStatus = "AVAILABLE"
	VehicleInNegotiation VehicleStatus = "IN_NEGOTIATION"
	// VehicleSoldPending marks a vehicle the dealer reported as sold but whose
	// sale has not yet been verified. It is also the hold state for sales
	// flagged for manual review, distinguished by attached fraud annotations.
	VehicleSoldPending  VehicleStatus = "SOLD_PENDING_VERIFICATION"
	VehicleSoldVerified VehicleStatus = "SOLD_VERIFIED"
	VehicleSoldExternal VehicleStatus = "SOLD_EXTERNAL"
)

// ValidVehicleStatuses is the set of recognised vehicle statuses.
var ValidVehicleStatuses = map[VehicleStatus]bool{
	VehicleAvailable: true, VehicleInNegotiation: true, VehicleSoldPending: true,
	VehicleSoldVerified: true, VehicleSoldExternal: true,
}

// IsValid reports whether s is a recognised vehicle status.
func (s VehicleStatus) IsValid() bool {
	return ValidVehicleStatuses[s]
}

// IsSold reports whether s is one of the sold states.
func (s VehicleStatus) IsSold() bool {
	return s == VehicleSoldPending || s == VehicleSoldVerified || s == VehicleSoldExternal
}

// vehicleTransitions describes the lifecycle state machine. SOLD_VERIFIED and
// SOLD_EXTERNAL are terminal. A pending vehicle may loop back to pending (a
// scored review hold) or to AVAILABLE (review rejection).
var vehicleTransitions = map[VehicleStatus][]VehicleStatus{
	VehicleAvailable:     {VehicleInNegotiation, VehicleSoldPending},
	VehicleInNegotiation: {VehicleAvailable, VehicleSoldPending},
	VehicleSoldPending:   {VehicleSoldPending, VehicleSoldVerified, VehicleSoldExternal, VehicleAvailable},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s VehicleStatus) CanTransitionTo(next VehicleStatus) bool {
	for _, allowed := range vehicleTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Vehicle represents one inventory record. Vehicles are created by inventory
// intake; once a vehicle reaches SOLD_PENDING_VERIFICATION its transitions are
// driven exclusively by the sale-verification pipeline.
type Vehicle struct {
	TenantID   string
	ID         string
	DealerID   string
	VIN        string
	Status     VehicleStatus
	PurchaseID string
	FraudScore *int
	FraudFlags []string
	SoldAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewVehicle creates a new Vehicle entity with validation.
func NewVehicle(tenantID, id, dealerID, vin string) (*Vehicle, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID must not be empty")
	}
	if id == "" {
		return nil, fmt.Errorf("vehicle id must not be empty")
	}
	if dealerID == "" {
		return nil, fmt.Errorf("dealerID must not be empty")
	}
	return &Vehicle{
		TenantID: tenantID,
		ID:       id,
		DealerID: dealerID,
		VIN:      vin,
		Status:   VehicleAvailable,
	}, nil
}
