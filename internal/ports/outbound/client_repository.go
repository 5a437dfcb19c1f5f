package outbound

import (
	"context"
	"time"
)

// ClientRepository reads client/lead records owned by the CRM subsystem.
type ClientRepository interface {
	// ClientCreatedAt returns when the client record was created, or the
	// zero time when the record does not exist.
	ClientCreatedAt(ctx context.Context, tenantID, clientID string) (time.Time, error)
}
