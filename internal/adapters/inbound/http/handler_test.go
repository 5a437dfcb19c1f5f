package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/motorlot/saleverify/internal/adapters/outbound/memory"
	"github.com/motorlot/saleverify/internal/application"
	"github.com/motorlot/saleverify/internal/domain/entity"
)

var testSaleTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type handlerHarness struct {
	mux     *http.ServeMux
	store   *memory.Store
	dealers *memory.DealerDirectory
	events  *memory.EventSink
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()

	store := memory.NewStore()
	dealers := memory.NewDealerDirectory()
	events := memory.NewEventSink()
	logger := slog.New(slog.DiscardHandler)

	fraud, err := application.NewFraudEvaluator(store, dealers, store, store, logger)
	if err != nil {
		t.Fatalf("NewFraudEvaluator() error = %v", err)
	}
	service, err := application.NewSaleVerificationService(
		application.Config{Now: func() time.Time { return testSaleTime }, Logger: logger},
		store, store.Vehicles(), store, store.Intents(), fraud, events,
	)
	if err != nil {
		t.Fatalf("NewSaleVerificationService() error = %v", err)
	}
	reviews, err := application.NewReviewService(store, store.Intents(), store.Vehicles(), events, logger)
	if err != nil {
		t.Fatalf("NewReviewService() error = %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(service, reviews, dealers, logger).RegisterRoutes(mux)

	return &handlerHarness{mux: mux, store: store, dealers: dealers, events: events}
}

func (h *handlerHarness) seedVerifiableSale() {
	h.store.SeedVehicle(&entity.Vehicle{
		TenantID: "t1",
		ID:       "veh-1",
		DealerID: "dealer-1",
		VIN:      "1HGCM82633A004352",
		Status:   entity.VehicleSoldPending,
	})
	h.store.SeedClient("t1", "client-1", testSaleTime.Add(-30*24*time.Hour))
	h.store.SeedInteraction(&entity.Interaction{
		ID:         "int-1",
		TenantID:   "t1",
		ClientID:   "client-1",
		VehicleID:  "veh-1",
		DealerID:   "dealer-1",
		Kind:       entity.InteractionChat,
		IPAddress:  "198.51.100.7",
		OccurredAt: testSaleTime.Add(-48 * time.Hour),
	})
}

func (h *handlerHarness) do(method, path, dealerID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:51234"
	if dealerID != "" {
		req.Header.Set("X-Dealer-ID", dealerID)
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

const createBody = `{"tenantId":"t1","vehicleId":"veh-1","clientId":"client-1"}`

func TestCreatePurchaseIntentEndpoint(t *testing.T) {
	h := newHandlerHarness(t)
	h.seedVerifiableSale()

	w := h.do(http.MethodPost, "/v1/purchase-intents", "dealer-1", createBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success    bool    `json:"success"`
		Status     string  `json:"status"`
		PurchaseID *string `json:"purchaseId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.Status != "verified" {
		t.Errorf("response = %+v, want verified success", resp)
	}
	if resp.PurchaseID == nil || !strings.HasPrefix(*resp.PurchaseID, "PUR-") {
		t.Errorf("purchaseId = %v, want PUR- prefixed id", resp.PurchaseID)
	}

	vehicle := h.store.Vehicle("t1", "veh-1")
	if vehicle.Status != entity.VehicleSoldVerified {
		t.Errorf("vehicle status = %s, want %s", vehicle.Status, entity.VehicleSoldVerified)
	}
}

func TestCreatePurchaseIntentEndpointExternalSale(t *testing.T) {
	h := newHandlerHarness(t)
	// Vehicle pending but no interaction on record.
	h.store.SeedVehicle(&entity.Vehicle{
		TenantID: "t1", ID: "veh-1", DealerID: "dealer-1", Status: entity.VehicleSoldPending,
	})

	w := h.do(http.MethodPost, "/v1/purchase-intents", "dealer-1", createBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success    bool    `json:"success"`
		Status     string  `json:"status"`
		PurchaseID *string `json:"purchaseId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success || resp.Status != "external" {
		t.Errorf("response = %+v, want external non-success", resp)
	}
	if resp.PurchaseID != nil {
		t.Errorf("purchaseId = %v, want null for external sale", *resp.PurchaseID)
	}
}

func TestCreatePurchaseIntentEndpointHonorsSaleTimestamp(t *testing.T) {
	h := newHandlerHarness(t)
	h.seedVerifiableSale()

	// An explicit sale timestamp 30s after the interaction leaves the gap
	// under a minute, so the interaction cannot corroborate the sale.
	saleMillis := testSaleTime.Add(-48 * time.Hour).Add(30 * time.Second).UnixMilli()
	body := fmt.Sprintf(`{"tenantId":"t1","vehicleId":"veh-1","clientId":"client-1","saleTimestamp":%d}`, saleMillis)

	w := h.do(http.MethodPost, "/v1/purchase-intents", "dealer-1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "external" {
		t.Errorf("status = %q, want external for a sub-minute gap", resp.Status)
	}
}

func TestCreatePurchaseIntentEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		seed       func(h *handlerHarness)
		dealerID   string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing dealer header",
			seed:       func(h *handlerHarness) { h.seedVerifiableSale() },
			body:       createBody,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthenticated",
		},
		{
			name:       "malformed JSON",
			seed:       func(h *handlerHarness) { h.seedVerifiableSale() },
			dealerID:   "dealer-1",
			body:       `{"tenantId":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid-argument",
		},
		{
			name:       "missing vehicle id",
			seed:       func(h *handlerHarness) { h.seedVerifiableSale() },
			dealerID:   "dealer-1",
			body:       `{"tenantId":"t1","clientId":"client-1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid-argument",
		},
		{
			name:       "unknown vehicle",
			seed:       func(h *handlerHarness) {},
			dealerID:   "dealer-1",
			body:       createBody,
			wantStatus: http.StatusNotFound,
			wantCode:   "not-found",
		},
		{
			name: "vehicle not pending",
			seed: func(h *handlerHarness) {
				h.store.SeedVehicle(&entity.Vehicle{
					TenantID: "t1", ID: "veh-1", DealerID: "dealer-1", Status: entity.VehicleAvailable,
				})
			},
			dealerID:   "dealer-1",
			body:       createBody,
			wantStatus: http.StatusConflict,
			wantCode:   "failed-precondition",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlerHarness(t)
			tt.seed(h)

			w := h.do(http.MethodPost, "/v1/purchase-intents", tt.dealerID, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", resp["code"], tt.wantCode)
			}
		})
	}
}

func TestCreatePurchaseIntentRecordsDealerIP(t *testing.T) {
	h := newHandlerHarness(t)
	h.seedVerifiableSale()

	req := httptest.NewRequest(http.MethodPost, "/v1/purchase-intents", strings.NewReader(createBody))
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("X-Dealer-ID", "dealer-1")
	req.Header.Set("X-Forwarded-For", "198.51.100.20, 10.0.0.2")
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)

	ip, err := h.dealers.LastKnownIP(context.Background(), "dealer-1")
	if err != nil {
		t.Fatalf("LastKnownIP() error = %v", err)
	}
	if ip != "198.51.100.20" {
		t.Errorf("recorded IP = %q, want first X-Forwarded-For hop", ip)
	}
}

func TestResolveReviewEndpoint(t *testing.T) {
	h := newHandlerHarness(t)
	score := 50
	h.store.SeedVehicle(&entity.Vehicle{
		TenantID: "t1", ID: "veh-1", DealerID: "dealer-1",
		Status: entity.VehicleSoldPending, FraudScore: &score,
	})
	intent := &entity.PurchaseIntent{
		ID: "intent-1", TenantID: "t1", DealerID: "dealer-1", VehicleID: "veh-1",
		ClientID: "client-1", InteractionID: "int-1", Status: entity.IntentPending,
		FraudScore: score, CreatedAt: testSaleTime,
	}
	if err := h.store.Intents().CreateWithTX(context.Background(), nil, intent); err != nil {
		t.Fatalf("seed intent: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/purchase-intents/intent-1/review",
		strings.NewReader(`{"tenantId":"t1","decision":"approve"}`))
	req.Header.Set("X-Reviewer-ID", "reviewer-9")
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		IntentID   string  `json:"intentId"`
		Status     string  `json:"status"`
		PurchaseID *string `json:"purchaseId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "verified" || resp.PurchaseID == nil {
		t.Errorf("response = %+v, want verified with purchase id", resp)
	}
}

func TestResolveReviewRequiresReviewer(t *testing.T) {
	h := newHandlerHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/purchase-intents/intent-1/review",
		strings.NewReader(`{"tenantId":"t1","decision":"approve"}`))
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
