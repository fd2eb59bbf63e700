package services

import (
	"context"
	"log"
	"strconv"

	"sameday-dispatch-service/internal/ports"
)

// Defaults applied when a tunable is absent or unparseable.
const (
	defaultDwellSeconds    = 180
	defaultPricePerKmCents = 120
)

// SettingsReader provides typed access to the operator-tunable
// settings store. Malformed numeric values fall back to defaults so a
// bad edit can never fail an optimize run.
type SettingsReader struct {
	Repo ports.SettingsRepository
}

func NewSettingsReader(repo ports.SettingsRepository) *SettingsReader {
	return &SettingsReader{Repo: repo}
}

// DepotAddress returns the configured depot address, empty when unset.
func (s *SettingsReader) DepotAddress(ctx context.Context) (string, error) {
	return s.Repo.Get(ctx, ports.SettingDepotAddress, "")
}

// CircularRoute reports whether routes must return to the depot.
func (s *SettingsReader) CircularRoute(ctx context.Context) (bool, error) {
	raw, err := s.Repo.Get(ctx, ports.SettingCircularRoute, "false")
	if err != nil {
		return false, err
	}
	circular, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("settings: %s=%q is not a bool, assuming false", ports.SettingCircularRoute, raw)
		return false, nil
	}
	return circular, nil
}

// DwellSeconds returns the per-stop service time included in route
// duration estimates.
func (s *SettingsReader) DwellSeconds(ctx context.Context) (int, error) {
	return s.intSetting(ctx, ports.SettingDwellSeconds, defaultDwellSeconds)
}

// PricePerKmCents returns the delivery pricing rate.
func (s *SettingsReader) PricePerKmCents(ctx context.Context) (int, error) {
	return s.intSetting(ctx, ports.SettingPricePerKm, defaultPricePerKmCents)
}

func (s *SettingsReader) intSetting(ctx context.Context, key string, fallback int) (int, error) {
	raw, err := s.Repo.Get(ctx, key, strconv.Itoa(fallback))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("settings: %s=%q is not a non-negative integer, using %d", key, raw, fallback)
		return fallback, nil
	}
	return n, nil
}
