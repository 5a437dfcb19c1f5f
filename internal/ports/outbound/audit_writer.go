package outbound

import "context"

// AuditWriter stores audit archive objects in long-term storage.
type AuditWriter interface {
	// Write stores body under the given key, overwriting any previous
	// object.
	Write(ctx context.Context, key string, body []byte) error
}
