package entity

import (
	"testing"
	"time"
)

var saleAt = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// quietContext returns a context in which no signal triggers: interaction
// well before the sale, established client, distinct IPs, clean histories.
func quietContext() SignalContext {
	return SignalContext{
		SaleTime:        saleAt,
		InteractionTime: saleAt.Add(-10 * time.Minute),
		InteractionIP:   "203.0.113.7",
		DealerLastIP:    "198.51.100.4",
		ClientCreatedAt: saleAt.Add(-90 * 24 * time.Hour),
		VINMatches:      1,
		ClientSaleCount: 0,
	}
}

func TestFraudSignalsIndividually(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignalContext)
		wantID FraudSignalID
		weight int
	}{
		{
			name:   "client created within the hour",
			mutate: func(sc *SignalContext) { sc.ClientCreatedAt = saleAt.Add(-30 * time.Minute) },
			wantID: SignalClientCreatedRecently,
			weight: 25,
		},
		{
			name:   "client created after the sale marker",
			mutate: func(sc *SignalContext) { sc.ClientCreatedAt = saleAt.Add(2 * time.Minute) },
			wantID: SignalClientCreatedRecently,
			weight: 25,
		},
		{
			name:   "dealer and client share an IP",
			mutate: func(sc *SignalContext) { sc.DealerLastIP = sc.InteractionIP },
			wantID: SignalSharedIP,
			weight: 30,
		},
		{
			name:   "interaction under five minutes before sale",
			mutate: func(sc *SignalContext) { sc.InteractionTime = saleAt.Add(-2 * time.Minute) },
			wantID: SignalInteractionTooRecent,
			weight: 20,
		},
		{
			name: "five of ten recent sales external",
			mutate: func(sc *SignalContext) {
				sc.DealerRecentSaleStatuses = []VehicleStatus{
					VehicleSoldExternal, VehicleSoldExternal, VehicleSoldExternal,
					VehicleSoldExternal, VehicleSoldExternal, VehicleSoldVerified,
					VehicleSoldVerified, VehicleSoldVerified, VehicleSoldVerified,
					VehicleSoldVerified,
				}
			},
			wantID: SignalExcessiveExternalSales,
			weight: 15,
		},
		{
			name:   "duplicate VIN across inventories",
			mutate: func(sc *SignalContext) { sc.VINMatches = 2 },
			wantID: SignalDuplicateVIN,
			weight: 10,
		},
		{
			name:   "client with more than two sales",
			mutate: func(sc *SignalContext) { sc.ClientSaleCount = 3 },
			wantID: SignalRepeatBuyer,
			weight: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := quietContext()
			tt.mutate(&sc)
			result := EvaluateFraudSignals(sc)
			if result.Score != tt.weight {
				t.Errorf("Score = %d, want %d", result.Score, tt.weight)
			}
			if len(result.Flags) != 1 || result.Flags[0] != string(tt.wantID) {
				t.Errorf("Flags = %v, want [%s]", result.Flags, tt.wantID)
			}
		})
	}
}

func TestFraudSignalsStayQuiet(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignalContext)
	}{
		{"clean context", func(sc *SignalContext) {}},
		{"unknown client creation time", func(sc *SignalContext) { sc.ClientCreatedAt = time.Time{} }},
		{"unknown dealer IP", func(sc *SignalContext) { sc.DealerLastIP = "" }},
		{"interaction without IP", func(sc *SignalContext) {
			sc.InteractionIP = ""
			sc.DealerLastIP = ""
		}},
		{"interaction exactly five minutes before", func(sc *SignalContext) { sc.InteractionTime = saleAt.Add(-5 * time.Minute) }},
		{"four external among recent sales", func(sc *SignalContext) {
			sc.DealerRecentSaleStatuses = []VehicleStatus{
				VehicleSoldExternal, VehicleSoldExternal, VehicleSoldExternal,
				VehicleSoldExternal, VehicleSoldVerified,
			}
		}},
		{"single VIN match is the vehicle itself", func(sc *SignalContext) { sc.VINMatches = 1 }},
		{"unresolved VIN count", func(sc *SignalContext) { sc.VINMatches = 0 }},
		{"exactly two client sales", func(sc *SignalContext) { sc.ClientSaleCount = 2 }},
		{"client created just over an hour before", func(sc *SignalContext) { sc.ClientCreatedAt = saleAt.Add(-time.Hour - time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := quietContext()
			tt.mutate(&sc)
			result := EvaluateFraudSignals(sc)
			if result.Score != 0 {
				t.Errorf("Score = %d, want 0 (flags %v)", result.Score, result.Flags)
			}
			if !result.Passed {
				t.Errorf("Passed = false, want true")
			}
			if len(result.Flags) != 0 {
				t.Errorf("Flags = %v, want empty", result.Flags)
			}
		})
	}
}

func TestFraudDecisionBoundary(t *testing.T) {
	// Score 30 (shared IP alone) passes; score 31 is the review threshold.
	sc := quietContext()
	sc.DealerLastIP = sc.InteractionIP // 30 points
	result := EvaluateFraudSignals(sc)
	if result.Score != 30 {
		t.Fatalf("Score = %d, want 30", result.Score)
	}
	if !result.Passed {
		t.Errorf("score 30 must pass (threshold is %d)", FraudReviewThreshold)
	}

	// 20 + 10 + 10 = 40 fails; the closest composable score above the
	// threshold with this policy. The exact 31 boundary is covered directly
	// against the evaluator's comparison.
	sc = quietContext()
	sc.InteractionTime = saleAt.Add(-2 * time.Minute)
	sc.VINMatches = 3
	sc.ClientSaleCount = 4
	result = EvaluateFraudSignals(sc)
	if result.Score != 40 {
		t.Fatalf("Score = %d, want 40", result.Score)
	}
	if result.Passed {
		t.Errorf("score 40 must not pass")
	}

	if FraudReviewThreshold != 31 {
		t.Fatalf("FraudReviewThreshold = %d, want 31", FraudReviewThreshold)
	}
	if 30 >= FraudReviewThreshold {
		t.Errorf("score 30 must be below the threshold")
	}
	if 31 < FraudReviewThreshold {
		t.Errorf("score 31 must be at or above the threshold")
	}
}

func TestFraudScoreCapAndOrdering(t *testing.T) {
	sc := quietContext()
	sc.ClientCreatedAt = saleAt.Add(-5 * time.Minute)  // 25
	sc.DealerLastIP = sc.InteractionIP                 // 30
	sc.InteractionTime = saleAt.Add(-90 * time.Second) // 20
	sc.DealerRecentSaleStatuses = []VehicleStatus{     // 15
		VehicleSoldExternal, VehicleSoldExternal, VehicleSoldExternal,
		VehicleSoldExternal, VehicleSoldExternal,
	}
	sc.VINMatches = 4     // 10
	sc.ClientSaleCount = 5 // 10

	result := EvaluateFraudSignals(sc)
	if result.Score != MaxFraudScore {
		t.Errorf("Score = %d, want capped at %d (raw sum is 110)", result.Score, MaxFraudScore)
	}
	if result.Passed {
		t.Errorf("Passed = true, want false")
	}

	want := []string{
		string(SignalClientCreatedRecently),
		string(SignalSharedIP),
		string(SignalInteractionTooRecent),
		string(SignalExcessiveExternalSales),
		string(SignalDuplicateVIN),
		string(SignalRepeatBuyer),
	}
	if len(result.Flags) != len(want) {
		t.Fatalf("Flags = %v, want %v", result.Flags, want)
	}
	for i := range want {
		if result.Flags[i] != want[i] {
			t.Errorf("Flags[%d] = %s, want %s (policy order must be stable)", i, result.Flags[i], want[i])
		}
	}
}

func TestFraudScoreMonotonicity(t *testing.T) {
	// Adding a triggered signal never decreases the score.
	sc := quietContext()
	base := EvaluateFraudSignals(sc).Score

	sc.VINMatches = 2
	withVIN := EvaluateFraudSignals(sc).Score
	if withVIN < base {
		t.Errorf("score decreased after triggering a signal: %d -> %d", base, withVIN)
	}

	sc.ClientSaleCount = 3
	withBoth := EvaluateFraudSignals(sc).Score
	if withBoth < withVIN {
		t.Errorf("score decreased after triggering a signal: %d -> %d", withVIN, withBoth)
	}
}
