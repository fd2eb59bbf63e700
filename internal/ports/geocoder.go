package ports

import (
	"context"

	"sameday-dispatch-service/internal/domain"
)

// GeocodeResult is a resolved free-text address.
type GeocodeResult struct {
	Coord            domain.Coordinates
	FormattedAddress string
}

// Contract for resolving a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}
