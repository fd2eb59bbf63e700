package ports

import (
	"context"

	"sameday-dispatch-service/internal/domain"
)

// Port: persistence boundary for delivery stops and their child records.
type StopRepository interface {
	Create(ctx context.Context, stop *domain.DeliveryStop) error

	Get(ctx context.Context, id string) (*domain.DeliveryStop, error)

	// ListByDate returns every stop scheduled on the date, ordered by
	// creation sequence ascending.
	ListByDate(ctx context.Context, date string) ([]*domain.DeliveryStop, error)

	Update(ctx context.Context, stop *domain.DeliveryStop) error

	// ExternalIDExists reports whether any stop on any date already
	// carries the external order id.
	ExternalIDExists(ctx context.Context, externalID string) (bool, error)

	// MarkDelivered sets the stop's status to delivered regardless of
	// its prior state and returns the updated stop.
	MarkDelivered(ctx context.Context, id string) (*domain.DeliveryStop, error)

	// Delete removes the stop together with its tracking pings and
	// notifications as one atomic unit.
	Delete(ctx context.Context, id string) error

	AddNotification(ctx context.Context, stopID, notifType, message string) error

	NotificationsByStop(ctx context.Context, stopID string) ([]domain.Notification, error)
}
