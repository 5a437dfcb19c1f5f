package outbound

import "context"

// InventoryIndex answers VIN lookups across the whole inventory space.
type InventoryIndex interface {
	// CountByVIN returns the number of inventory records sharing the given
	// VIN. Deliberately cross-tenant: the same physical vehicle relisted
	// under multiple dealer accounts is a fraud pattern this exists to
	// catch.
	CountByVIN(ctx context.Context, vin string) (int, error)
}
