package services

import (
	"context"
	"log"
	"time"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

// ApproachRadiusMeters is how close a courier position must be to an
// in-transit stop before the dashboard is told the delivery is near.
const ApproachRadiusMeters = 150

// TrackingService ingests courier position pings, fans them out to the
// route's dashboard topic, and raises approaching notifications.
type TrackingService struct {
	Tracking ports.TrackingRepository
	Routes   ports.RouteRepository
	Stops    ports.StopRepository
	Events   ports.EventSink
}

func NewTrackingService(
	tracking ports.TrackingRepository,
	routes ports.RouteRepository,
	stops ports.StopRepository,
	events ports.EventSink,
) *TrackingService {
	return &TrackingService{Tracking: tracking, Routes: routes, Stops: stops, Events: events}
}

// Record appends a position ping, broadcasts it, and emits an
// approaching event for any in-transit stop within the approach
// radius. The approaching event fires at most once per stop; repeats
// are suppressed through the stop's notification history.
func (s *TrackingService) Record(ctx context.Context, routeID, stopID string, coord domain.Coordinates) (*domain.TrackingPing, error) {
	route, err := s.Routes.Get(ctx, routeID)
	if err != nil {
		return nil, err
	}

	ping := &domain.TrackingPing{
		RouteID:    route.ID,
		StopID:     stopID,
		Coord:      coord,
		RecordedAt: time.Now().UTC(),
	}
	if err := s.Tracking.Append(ctx, ping); err != nil {
		return nil, err
	}

	s.Events.Emit(ports.RouteTopic(route.RouteDate), ports.Event{
		Type:      ports.EventPosition,
		RouteID:   route.ID,
		RouteDate: route.RouteDate,
		StopID:    stopID,
		Data:      map[string]float64{"lat": coord.Lat, "lon": coord.Lon},
	})

	s.checkProximity(ctx, route, coord)
	return ping, nil
}

func (s *TrackingService) ListByRoute(ctx context.Context, routeID string) ([]*domain.TrackingPing, error) {
	return s.Tracking.ListByRoute(ctx, routeID)
}

func (s *TrackingService) checkProximity(ctx context.Context, route *domain.Route, coord domain.Coordinates) {
	stops, err := s.Stops.ListByDate(ctx, route.RouteDate)
	if err != nil {
		log.Printf("tracking: list stops for %s: %v", route.RouteDate, err)
		return
	}

	for _, stop := range stops {
		if stop.Status != domain.StopInTransit {
			continue
		}
		if coord.DistanceMeters(stop.Coord) > ApproachRadiusMeters {
			continue
		}
		if s.alreadyNotified(ctx, stop.ID) {
			continue
		}

		if err := s.Stops.AddNotification(ctx, stop.ID, domain.NotifyApproaching, "courier approaching "+stop.CustomerName); err != nil {
			log.Printf("tracking: record approaching notification stop=%s: %v", stop.ID, err)
			continue
		}
		s.Events.Emit(ports.RouteTopic(route.RouteDate), ports.Event{
			Type:      ports.EventDeliveryApproaching,
			RouteID:   route.ID,
			RouteDate: route.RouteDate,
			StopID:    stop.ID,
		})
	}
}

func (s *TrackingService) alreadyNotified(ctx context.Context, stopID string) bool {
	notifications, err := s.Stops.NotificationsByStop(ctx, stopID)
	if err != nil {
		log.Printf("tracking: load notifications stop=%s: %v", stopID, err)
		return true
	}
	for _, n := range notifications {
		if n.Type == domain.NotifyApproaching {
			return true
		}
	}
	return false
}
