package ports

import (
	"context"

	"sameday-dispatch-service/internal/domain"
)

// Port: append-only store for courier position reports.
type TrackingRepository interface {
	Append(ctx context.Context, ping *domain.TrackingPing) error
	ListByRoute(ctx context.Context, routeID string) ([]*domain.TrackingPing, error)
	ListByStop(ctx context.Context, stopID string) ([]*domain.TrackingPing, error)
}
