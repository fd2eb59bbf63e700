package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

// StopService owns manual stop entry and the per-stop status
// operations that are not part of an optimization run.
type StopService struct {
	Stops    ports.StopRepository
	Routes   ports.RouteRepository
	Geocoder ports.Geocoder
	Events   ports.EventSink
}

func NewStopService(
	stops ports.StopRepository,
	routes ports.RouteRepository,
	geocoder ports.Geocoder,
	events ports.EventSink,
) *StopService {
	return &StopService{Stops: stops, Routes: routes, Geocoder: geocoder, Events: events}
}

// CreateStopRequest carries caller-supplied stop fields. Nil/empty
// optional fields fall back to the category catalog when the category
// is known.
type CreateStopRequest struct {
	ScheduledDate string
	CustomerName  string
	Phone         string
	Address       string
	Product       string
	Category      string
	Size          string
	Priority      *int
	WindowStart   string
	WindowEnd     string
	Kind          string
}

// Create validates the request, fills catalog defaults, geocodes the
// address and persists the stop in pending status. A geocoding failure
// aborts the operation; single-entity writes fail fast.
func (s *StopService) Create(ctx context.Context, req CreateStopRequest) (*domain.DeliveryStop, error) {
	stop, err := s.buildStop(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	stop.ID = uuid.NewString()
	stop.Status = domain.StopPending
	now := time.Now().UTC()
	stop.CreatedAt = now
	stop.UpdatedAt = now

	if err := s.Stops.Create(ctx, stop); err != nil {
		return nil, err
	}
	return stop, nil
}

// Update rewrites a stop's caller-editable fields, re-geocoding when
// the address changed. Status is never touched here.
func (s *StopService) Update(ctx context.Context, id string, req CreateStopRequest) (*domain.DeliveryStop, error) {
	existing, err := s.Stops.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildStop(ctx, req, existing)
	if err != nil {
		return nil, err
	}

	updated.ID = existing.ID
	updated.ExternalOrderID = existing.ExternalOrderID
	updated.Seq = existing.Seq
	updated.Status = existing.Status
	updated.RawPayload = existing.RawPayload
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.Stops.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *StopService) Get(ctx context.Context, id string) (*domain.DeliveryStop, error) {
	return s.Stops.Get(ctx, id)
}

func (s *StopService) ListByDate(ctx context.Context, date string) ([]*domain.DeliveryStop, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	return s.Stops.ListByDate(ctx, date)
}

// Complete marks a stop delivered regardless of prior status
// (idempotent), records a delivered notification and emits the
// delivery-completed event.
func (s *StopService) Complete(ctx context.Context, id string) (*domain.DeliveryStop, error) {
	stop, err := s.Stops.MarkDelivered(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.Stops.AddNotification(ctx, stop.ID, domain.NotifyDelivered, "delivered to "+stop.CustomerName); err != nil {
		log.Printf("complete stop id=%s: record notification: %v", stop.ID, err)
	}

	s.Events.Emit(ports.RouteTopic(stop.ScheduledDate), ports.Event{
		Type:      ports.EventDeliveryCompleted,
		RouteDate: stop.ScheduledDate,
		StopID:    stop.ID,
	})
	return stop, nil
}

// Delete removes a stop and its tracking/notification children as one
// atomic unit. Allowed in any status.
func (s *StopService) Delete(ctx context.Context, id string) error {
	return s.Stops.Delete(ctx, id)
}

// ClearDate removes every record belonging to a date: notifications,
// then tracking pings, then stops, then the route, atomically.
func (s *StopService) ClearDate(ctx context.Context, date string) (domain.ClearCounts, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.ClearCounts{}, err
	}
	counts, err := s.Routes.ClearDate(ctx, date)
	if err != nil {
		return domain.ClearCounts{}, err
	}
	log.Printf("cleared date=%s stops=%d pings=%d notifications=%d routes=%d",
		date, counts.Stops, counts.TrackingPings, counts.Notifications, counts.Routes)
	return counts, nil
}

// buildStop validates and assembles a stop from request fields,
// consulting the catalog for unset priority/size/description and the
// geocoder for coordinates. On updates prior carries the stored stop;
// an unchanged address reuses its resolution instead of geocoding
// again.
func (s *StopService) buildStop(ctx context.Context, req CreateStopRequest, prior *domain.DeliveryStop) (*domain.DeliveryStop, error) {
	if _, err := domain.ParseDate(req.ScheduledDate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, domain.Validationf("customer name is required")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, domain.Validationf("address is required")
	}

	kind := domain.KindDelivery
	if req.Kind != "" {
		kind = domain.StopKind(req.Kind)
		if kind != domain.KindDelivery && kind != domain.KindPickup {
			return nil, domain.Validationf("invalid stop kind %q", req.Kind)
		}
	}

	// Catalog defaults fill the gaps; explicit request values always win.
	var entry domain.CatalogEntry
	if req.Category != "" {
		var err error
		entry, err = domain.ResolveCategory(req.Category)
		if err != nil {
			return nil, err
		}
	} else {
		entry = domain.CatalogEntry{Priority: domain.PriorityStandard, Size: domain.SizeMedium}
	}

	priority := entry.Priority
	if req.Priority != nil {
		priority = domain.Priority(*req.Priority)
		if !priority.Valid() {
			return nil, domain.Validationf("priority must be between %d and %d", domain.PriorityRoutine, domain.PriorityUrgent)
		}
	}

	size := entry.Size
	if req.Size != "" {
		size = domain.ParcelSize(req.Size)
		if !size.Valid() {
			return nil, domain.Validationf("invalid parcel size %q", req.Size)
		}
	}

	product := strings.TrimSpace(req.Product)
	if product == "" {
		product = entry.Description
	}

	var coord domain.Coordinates
	if prior != nil && address == strings.TrimSpace(prior.Address) {
		coord = prior.Coord
		address = prior.Address
	} else {
		geo, err := s.Geocoder.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		coord = geo.Coord
		if geo.FormattedAddress != "" {
			address = geo.FormattedAddress
		}
	}

	return &domain.DeliveryStop{
		ScheduledDate: req.ScheduledDate,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       address,
		Coord:         coord,
		Product:       product,
		Category:      req.Category,
		Size:          size,
		Priority:      priority,
		WindowStart:   req.WindowStart,
		WindowEnd:     req.WindowEnd,
		Kind:          kind,
	}, nil
}
