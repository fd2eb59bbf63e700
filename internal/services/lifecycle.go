package services

import (
	"context"
	"log"
	"time"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

// LifecycleService owns route status transitions and archiving.
type LifecycleService struct {
	Routes ports.RouteRepository
	Events ports.EventSink
}

func NewLifecycleService(routes ports.RouteRepository, events ports.EventSink) *LifecycleService {
	return &LifecycleService{Routes: routes, Events: events}
}

func (s *LifecycleService) GetOrCreate(ctx context.Context, date string) (*domain.Route, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	return s.Routes.GetOrCreate(ctx, date)
}

func (s *LifecycleService) Get(ctx context.Context, id string) (*domain.Route, error) {
	return s.Routes.Get(ctx, id)
}

func (s *LifecycleService) GetByDate(ctx context.Context, date string) (*domain.Route, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	return s.Routes.GetByDate(ctx, date)
}

// Start moves a planned route to active and cascades every optimized
// stop on its date to in_transit.
func (s *LifecycleService) Start(ctx context.Context, id string) (*domain.Route, error) {
	route, moved, err := s.Routes.StartCascade(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Printf("route started id=%s date=%s stops_in_transit=%d", route.ID, route.RouteDate, moved)
	s.Events.Emit(ports.TopicRoutes, ports.Event{
		Type:      ports.EventRouteStarted,
		RouteID:   route.ID,
		RouteDate: route.RouteDate,
		Data:      map[string]int{"stops_in_transit": moved},
	})
	s.Events.Emit(ports.RouteTopic(route.RouteDate), ports.Event{
		Type:      ports.EventRouteStarted,
		RouteID:   route.ID,
		RouteDate: route.RouteDate,
	})
	return route, nil
}

// Complete moves an active route to completed.
func (s *LifecycleService) Complete(ctx context.Context, id string) (*domain.Route, error) {
	return s.Routes.SetStatus(ctx, id, domain.RouteCompleted)
}

// Cancel moves a planned or active route to cancelled.
func (s *LifecycleService) Cancel(ctx context.Context, id string) (*domain.Route, error) {
	return s.Routes.SetStatus(ctx, id, domain.RouteCancelled)
}

func (s *LifecycleService) Archive(ctx context.Context, id string) (*domain.Route, error) {
	return s.Routes.SetArchived(ctx, id, true)
}

func (s *LifecycleService) Unarchive(ctx context.Context, id string) (*domain.Route, error) {
	return s.Routes.SetArchived(ctx, id, false)
}

// ArchiveSweep batch-archives every terminal route older than the
// retention window and returns the number archived.
func (s *LifecycleService) ArchiveSweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -domain.ArchiveRetentionDays)
	n, err := s.Routes.ArchiveSweep(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("archive sweep archived=%d cutoff=%s", n, cutoff.Format(domain.DateLayout))
	}
	return n, nil
}
