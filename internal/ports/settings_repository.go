package ports

import "context"

// Well-known settings keys.
const (
	SettingCircularRoute = "circular_route" // "true"/"false"
	SettingDepotAddress  = "depot_address"
	SettingDwellSeconds  = "dwell_seconds"     // per-stop service time
	SettingPricePerKm    = "price_per_km_cents" // delivery pricing rate
)

// Port: key/value configuration store.
type SettingsRepository interface {
	// Get returns the stored value, or fallback when the key is absent.
	Get(ctx context.Context, key, fallback string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
