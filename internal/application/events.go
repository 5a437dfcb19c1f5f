package application

import (
	"context"
	"log/slog"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// publishEvent delivers a committed-verdict event. Publishing is best-effort:
// a failure is logged and never surfaces to the caller, because the verdict
// has already been committed.
func publishEvent(ctx context.Context, sink outbound.EventSink, logger *slog.Logger, event outbound.VerificationEvent) {
	if err := sink.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish verification event",
			"type", event.Type,
			"tenant", event.TenantID,
			"vehicle", event.VehicleID,
			"error", err)
	}
}
