// handler.go provides HTTP REST API handlers for the sale-verification
// service.
//
// This inbound adapter exposes the service functionality over HTTP:
//   - POST /v1/purchase-intents: run the verification pipeline for a sale
//   - POST /v1/purchase-intents/{id}/review: resolve a manual-review hold
//   - GET /health: health check endpoint for liveness/readiness probes
//
// Caller identity arrives in the X-Dealer-ID header (resp. X-Reviewer-ID for
// reviews), set by the authenticating gateway in front of this service. It is
// never read from the request body.
package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/inbound"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Handler implements HTTP handlers for the API.
type Handler struct {
	service inbound.SaleVerificationService
	reviews inbound.ReviewService
	dealers outbound.DealerDirectory
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler with the given services. The dealer
// directory receives the caller's IP on every authenticated request; it feeds
// the shared-IP fraud signal.
func NewHandler(service inbound.SaleVerificationService, reviews inbound.ReviewService, dealers outbound.DealerDirectory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		reviews: reviews,
		dealers: dealers,
		logger:  logger.With("component", "http-handler"),
	}
}

// RegisterRoutes registers the HTTP routes with the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/purchase-intents", h.withDealer(h.CreatePurchaseIntent))
	mux.HandleFunc("POST /v1/purchase-intents/{id}/review", h.ResolveReview)
	mux.HandleFunc("GET /health", h.Health)
}

// withDealer extracts the dealer identity from the X-Dealer-ID header and
// records the caller's IP for the fraud signals. Requests without an identity
// are rejected before reaching the service.
func (h *Handler) withDealer(next func(w http.ResponseWriter, r *http.Request, dealerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealerID := r.Header.Get("X-Dealer-ID")
		if dealerID == "" {
			h.respondError(w, entity.Errorf(entity.CodeUnauthenticated, "missing X-Dealer-ID header"))
			return
		}

		if ip := clientIP(r); ip != "" {
			if err := h.dealers.RecordIP(r.Context(), dealerID, ip); err != nil {
				h.logger.Warn("failed to record dealer IP", "dealer", dealerID, "error", err)
			}
		}

		next(w, r, dealerID)
	}
}

// clientIP resolves the caller's IP, preferring the gateway-set
// X-Forwarded-For header over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// createPurchaseIntentRequest is the JSON body of POST /v1/purchase-intents.
// SaleTimestamp is epoch milliseconds; absent means "now".
type createPurchaseIntentRequest struct {
	TenantID      string `json:"tenantId"`
	VehicleID     string `json:"vehicleId"`
	ClientID      string `json:"clientId"`
	SaleTimestamp *int64 `json:"saleTimestamp,omitempty"`
}

// verdictResponse is the JSON body returned for every completed attempt.
// PurchaseID is a pointer so external and held verdicts serialize it as null.
type verdictResponse struct {
	Success    bool     `json:"success"`
	Status     string   `json:"status"`
	PurchaseID *string  `json:"purchaseId"`
	FraudScore int      `json:"fraudScore"`
	FraudFlags []string `json:"fraudFlags,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// CreatePurchaseIntent handles POST /v1/purchase-intents.
func (h *Handler) CreatePurchaseIntent(w http.ResponseWriter, r *http.Request, dealerID string) {
	var body createPurchaseIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, entity.Errorf(entity.CodeInvalidArgument, "invalid JSON body"))
		return
	}

	req := inbound.CreatePurchaseIntentRequest{
		TenantID:  body.TenantID,
		VehicleID: body.VehicleID,
		ClientID:  body.ClientID,
		DealerID:  dealerID,
	}
	if body.SaleTimestamp != nil {
		req.SaleTime = time.UnixMilli(*body.SaleTimestamp).UTC()
	}

	verdict, err := h.service.CreatePurchaseIntent(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := verdictResponse{
		Success:    verdict.Success,
		Status:     string(verdict.Status),
		FraudScore: verdict.FraudScore,
		FraudFlags: verdict.FraudFlags,
		Reason:     verdict.Reason,
	}
	if verdict.PurchaseID != "" {
		resp.PurchaseID = &verdict.PurchaseID
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// reviewRequest is the JSON body of POST /v1/purchase-intents/{id}/review.
type reviewRequest struct {
	TenantID string `json:"tenantId"`
	Decision string `json:"decision"`
}

// reviewResponse is the JSON body returned for a resolved review.
type reviewResponse struct {
	IntentID   string   `json:"intentId"`
	Status     string   `json:"status"`
	PurchaseID *string  `json:"purchaseId"`
	FraudScore int      `json:"fraudScore"`
	FraudFlags []string `json:"fraudFlags,omitempty"`
}

// ResolveReview handles POST /v1/purchase-intents/{id}/review.
func (h *Handler) ResolveReview(w http.ResponseWriter, r *http.Request) {
	reviewerID := r.Header.Get("X-Reviewer-ID")
	if reviewerID == "" {
		h.respondError(w, entity.Errorf(entity.CodeUnauthenticated, "missing X-Reviewer-ID header"))
		return
	}

	var body reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, entity.Errorf(entity.CodeInvalidArgument, "invalid JSON body"))
		return
	}

	intent, err := h.reviews.Resolve(r.Context(), body.TenantID, r.PathValue("id"),
		inbound.ReviewDecision(body.Decision), reviewerID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := reviewResponse{
		IntentID:   intent.ID,
		Status:     string(intent.Status),
		FraudScore: intent.FraudScore,
		FraudFlags: intent.FraudFlags,
	}
	if intent.PurchaseID != "" {
		resp.PurchaseID = &intent.PurchaseID
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusOf maps structured error codes to HTTP status codes.
func statusOf(code entity.ErrorCode) int {
	switch code {
	case entity.CodeUnauthenticated:
		return http.StatusUnauthorized
	case entity.CodeInvalidArgument:
		return http.StatusBadRequest
	case entity.CodeNotFound:
		return http.StatusNotFound
	case entity.CodeFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	code := entity.CodeOf(err)
	status := statusOf(code)
	message := err.Error()
	if code == entity.CodeInternal {
		// Internal details stay in the logs.
		h.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	h.respondJSON(w, status, map[string]string{
		"code":  string(code),
		"error": message,
	})
}
