package entity

import (
	"time"
)

// FraudReviewThreshold is the score at or above which a sale is held for
// manual review instead of being auto-verified. Stated as a fixed threshold so
// the decision is reproducible bit-for-bit given identical inputs.
const FraudReviewThreshold = 31

// MaxFraudScore caps the composite score.
const MaxFraudScore = 100

// Windows and limits referenced by the signal predicates and by the
// evaluator's history lookups.
const (
	// ClientCreationWindow: a client record created this close to the sale
	// suggests a lead fabricated for the occasion.
	ClientCreationWindow = time.Hour
	// RecentInteractionGap: an interaction this close to the sale still
	// qualifies but raises suspicion.
	RecentInteractionGap = 5 * time.Minute
	// DealerSalesWindow is how many of the dealer's most recent sales the
	// external-ratio signal inspects.
	DealerSalesWindow = 10
	// ExternalSalesLimit triggers the external-ratio signal when reached
	// within DealerSalesWindow.
	ExternalSalesLimit = 5
	// ClientSalesWindow is how many of the client's most recent sale records
	// the repeat-buyer signal inspects.
	ClientSalesWindow = 5
	// ClientSalesLimit: strictly more than this many sale records within
	// ClientSalesWindow triggers the repeat-buyer signal.
	ClientSalesLimit = 2
)

// FraudSignalID names one heuristic in the scoring policy. The names appear
// verbatim in fraud flags persisted on intents and vehicles.
type FraudSignalID string

const (
	SignalClientCreatedRecently  FraudSignalID = "client_created_recently"
	SignalSharedIP               FraudSignalID = "same_ip_dealer_client"
	SignalInteractionTooRecent   FraudSignalID = "interaction_too_recent"
	SignalExcessiveExternalSales FraudSignalID = "excessive_external_sales"
	SignalDuplicateVIN           FraudSignalID = "duplicate_vin"
	SignalRepeatBuyer            FraudSignalID = "client_multiple_sales"
)

// SignalContext carries the pre-fetched inputs the fraud signals evaluate
// against. Zero values mean the input could not be resolved; every predicate
// treats an unresolved input as "not triggered", so a failed lookup degrades
// one signal without aborting the check.
type SignalContext struct {
	SaleTime        time.Time
	InteractionTime time.Time
	// InteractionIP is the IP recorded on the qualifying interaction, if any.
	InteractionIP string
	// DealerLastIP is the dealer's last recorded IP, if known.
	DealerLastIP string
	// ClientCreatedAt is the creation time of the client/lead record; zero
	// when the record is missing.
	ClientCreatedAt time.Time
	// DealerRecentSaleStatuses holds the statuses of the dealer's most recent
	// completed sales, newest first, at most DealerSalesWindow entries.
	DealerRecentSaleStatuses []VehicleStatus
	// VINMatches is the number of inventory records sharing the vehicle's
	// VIN, across all tenants. Zero when the VIN is absent or unresolved.
	VINMatches int
	// ClientSaleCount is the number of sale records among the client's
	// ClientSalesWindow most recent.
	ClientSaleCount int
}

// FraudSignal is one row of the scoring policy: a named predicate with a
// fixed weight.
type FraudSignal struct {
	ID        FraudSignalID
	Weight    int
	Triggered func(SignalContext) bool
}

// FraudSignals returns the scoring policy as data. Order is significant: it
// fixes the order of flags in results. Each signal is independent and
// additive.
func FraudSignals() []FraudSignal {
	return []FraudSignal{
		{
			ID:     SignalClientCreatedRecently,
			Weight: 25,
			Triggered: func(sc SignalContext) bool {
				if sc.ClientCreatedAt.IsZero() {
					return false
				}
				return sc.SaleTime.Sub(sc.ClientCreatedAt) < ClientCreationWindow
			},
		},
		{
			ID:     SignalSharedIP,
			Weight: 30,
			Triggered: func(sc SignalContext) bool {
				return sc.InteractionIP != "" && sc.InteractionIP == sc.DealerLastIP
			},
		},
		{
			ID:     SignalInteractionTooRecent,
			Weight: 20,
			Triggered: func(sc SignalContext) bool {
				if sc.InteractionTime.IsZero() {
					return false
				}
				return sc.SaleTime.Sub(sc.InteractionTime) < RecentInteractionGap
			},
		},
		{
			ID:     SignalExcessiveExternalSales,
			Weight: 15,
			Triggered: func(sc SignalContext) bool {
				external := 0
				for _, status := range sc.DealerRecentSaleStatuses {
					if status == VehicleSoldExternal {
						external++
					}
				}
				return external >= ExternalSalesLimit
			},
		},
		{
			ID:     SignalDuplicateVIN,
			Weight: 10,
			Triggered: func(sc SignalContext) bool {
				return sc.VINMatches > 1
			},
		},
		{
			ID:     SignalRepeatBuyer,
			Weight: 10,
			Triggered: func(sc SignalContext) bool {
				return sc.ClientSaleCount > ClientSalesLimit
			},
		},
	}
}

// FraudCheckResult is the outcome of evaluating the scoring policy for one
// sale attempt. It is ephemeral; the score and flags are copied onto the
// Purchase Intent and, for review holds, onto the vehicle.
type FraudCheckResult struct {
	// Score is the capped sum of triggered signal weights, in [0, 100].
	Score int
	// Flags lists the triggered signal names in policy order.
	Flags []string
	// Passed is true iff Score < FraudReviewThreshold.
	Passed bool
}

// EvaluateFraudSignals applies the scoring policy to the given context and
// always produces a result.
func EvaluateFraudSignals(sc SignalContext) FraudCheckResult {
	score := 0
	flags := []string{}
	for _, sig := range FraudSignals() {
		if sig.Triggered(sc) {
			score += sig.Weight
			flags = append(flags, string(sig.ID))
		}
	}
	if score > MaxFraudScore {
		score = MaxFraudScore
	}
	return FraudCheckResult{
		Score:  score,
		Flags:  flags,
		Passed: score < FraudReviewThreshold,
	}
}
