// Package auditexport provides a batch service that archives resolved
// purchase intents to long-term object storage. Each run covers one calendar
// day and writes one JSONL object per tenant.
package auditexport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// Config holds configuration for the audit export service.
type Config struct {
	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// Logger for the service.
	Logger *slog.Logger
}

// ConfigDefaults returns sensible defaults for the audit export service.
func ConfigDefaults() Config {
	return Config{
		KeyPrefix: "audit",
		Logger:    slog.Default(),
	}
}

// Service exports resolved intents as daily JSONL archives.
type Service struct {
	config  Config
	intents outbound.PurchaseIntentRepository
	writer  outbound.AuditWriter
	logger  *slog.Logger
}

// NewService creates a new audit export service.
func NewService(config Config, intents outbound.PurchaseIntentRepository, writer outbound.AuditWriter) (*Service, error) {
	if intents == nil {
		return nil, fmt.Errorf("intents repository is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("audit writer is required")
	}

	// Apply defaults
	defaults := ConfigDefaults()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Service{
		config:  config,
		intents: intents,
		writer:  writer,
		logger:  config.Logger.With("component", "audit-export"),
	}, nil
}

// auditRecord is one JSONL line of the archive.
type auditRecord struct {
	IntentID      string     `json:"intentId"`
	TenantID      string     `json:"tenantId"`
	DealerID      string     `json:"dealerId"`
	VehicleID     string     `json:"vehicleId"`
	ClientID      string     `json:"clientId"`
	InteractionID string     `json:"interactionId"`
	Status        string     `json:"status"`
	FraudScore    int        `json:"fraudScore"`
	FraudFlags    []string   `json:"fraudFlags"`
	PurchaseID    string     `json:"purchaseId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
}

// Export archives all intents resolved on the given calendar day (UTC). One
// object per tenant, key <prefix>/<tenant>/<YYYY-MM-DD>.jsonl. Days with no
// resolved intents produce no objects.
func (s *Service) Export(ctx context.Context, day time.Time) error {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	intents, err := s.intents.ListResolvedInWindow(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to list resolved intents: %w", err)
	}
	if len(intents) == 0 {
		s.logger.Info("no resolved intents to export", "day", from.Format(time.DateOnly))
		return nil
	}

	byTenant := make(map[string][]*entity.PurchaseIntent)
	for _, intent := range intents {
		byTenant[intent.TenantID] = append(byTenant[intent.TenantID], intent)
	}

	tenants := make([]string, 0, len(byTenant))
	for tenant := range byTenant {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)

	for _, tenant := range tenants {
		body, err := s.encode(byTenant[tenant])
		if err != nil {
			return fmt.Errorf("failed to encode archive for tenant %s: %w", tenant, err)
		}

		key := fmt.Sprintf("%s/%s/%s.jsonl", s.config.KeyPrefix, tenant, from.Format(time.DateOnly))
		if err := s.writer.Write(ctx, key, body); err != nil {
			return fmt.Errorf("failed to write archive %s: %w", key, err)
		}

		s.logger.Info("exported audit archive",
			"tenant", tenant,
			"key", key,
			"records", len(byTenant[tenant]))
	}

	return nil
}

// encode renders intents as JSONL, oldest first.
func (s *Service) encode(intents []*entity.PurchaseIntent) ([]byte, error) {
	sort.Slice(intents, func(i, j int) bool {
		return intents[i].CreatedAt.Before(intents[j].CreatedAt)
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, intent := range intents {
		record := auditRecord{
			IntentID:      intent.ID,
			TenantID:      intent.TenantID,
			DealerID:      intent.DealerID,
			VehicleID:     intent.VehicleID,
			ClientID:      intent.ClientID,
			InteractionID: intent.InteractionID,
			Status:        string(intent.Status),
			FraudScore:    intent.FraudScore,
			FraudFlags:    intent.FraudFlags,
			PurchaseID:    intent.PurchaseID,
			CreatedAt:     intent.CreatedAt,
			VerifiedAt:    intent.VerifiedAt,
		}
		if err := enc.Encode(record); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
