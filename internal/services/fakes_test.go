package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

// In-memory fakes for the persistence and collaborator ports. The
// route fake shares the stop fake so status cascades behave like the
// real transactional repository.

type fakeStopRepo struct {
	mu      sync.Mutex
	nextSeq int64
	stops   map[string]*domain.DeliveryStop
	notifs  map[string][]domain.Notification
}

func newFakeStopRepo() *fakeStopRepo {
	return &fakeStopRepo{
		stops:  make(map[string]*domain.DeliveryStop),
		notifs: make(map[string][]domain.Notification),
	}
}

func (f *fakeStopRepo) Create(_ context.Context, stop *domain.DeliveryStop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	stop.Seq = f.nextSeq
	f.stops[stop.ID] = stop
	return nil
}

func (f *fakeStopRepo) Get(_ context.Context, id string) (*domain.DeliveryStop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stop, ok := f.stops[id]
	if !ok {
		return nil, domain.NotFoundf("stop %s not found", id)
	}
	return stop, nil
}

func (f *fakeStopRepo) ListByDate(_ context.Context, date string) ([]*domain.DeliveryStop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.DeliveryStop
	for _, stop := range f.stops {
		if stop.ScheduledDate == date {
			out = append(out, stop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeStopRepo) Update(_ context.Context, stop *domain.DeliveryStop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stops[stop.ID]; !ok {
		return domain.NotFoundf("stop %s not found", stop.ID)
	}
	f.stops[stop.ID] = stop
	return nil
}

func (f *fakeStopRepo) ExternalIDExists(_ context.Context, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stop := range f.stops {
		if stop.ExternalOrderID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStopRepo) MarkDelivered(_ context.Context, id string) (*domain.DeliveryStop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stop, ok := f.stops[id]
	if !ok {
		return nil, domain.NotFoundf("stop %s not found", id)
	}
	stop.Status = domain.StopDelivered
	stop.UpdatedAt = time.Now().UTC()
	return stop, nil
}

func (f *fakeStopRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stops[id]; !ok {
		return domain.NotFoundf("stop %s not found", id)
	}
	delete(f.stops, id)
	delete(f.notifs, id)
	return nil
}

func (f *fakeStopRepo) AddNotification(_ context.Context, stopID, notifType, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifs[stopID] = append(f.notifs[stopID], domain.Notification{
		StopID:    stopID,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (f *fakeStopRepo) NotificationsByStop(_ context.Context, stopID string) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifs[stopID], nil
}

type fakeRouteRepo struct {
	mu     sync.Mutex
	stops  *fakeStopRepo
	byID   map[string]*domain.Route
	byDate map[string]*domain.Route
	nextID int
}

func newFakeRouteRepo(stops *fakeStopRepo) *fakeRouteRepo {
	return &fakeRouteRepo{
		stops:  stops,
		byID:   make(map[string]*domain.Route),
		byDate: make(map[string]*domain.Route),
	}
}

func (f *fakeRouteRepo) GetOrCreate(_ context.Context, date string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensure(date), nil
}

func (f *fakeRouteRepo) ensure(date string) *domain.Route {
	if route, ok := f.byDate[date]; ok {
		return route
	}
	f.nextID++
	route := &domain.Route{
		ID:        fmt.Sprintf("route-%d", f.nextID),
		RouteDate: date,
		Status:    domain.RoutePlanned,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.byID[route.ID] = route
	f.byDate[date] = route
	return route
}

func (f *fakeRouteRepo) Get(_ context.Context, id string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.byID[id]
	if !ok {
		return nil, domain.NotFoundf("route %s not found", id)
	}
	return route, nil
}

func (f *fakeRouteRepo) GetByDate(_ context.Context, date string) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.byDate[date]
	if !ok {
		return nil, domain.NotFoundf("no route for %s", date)
	}
	return route, nil
}

func (f *fakeRouteRepo) SaveOptimization(_ context.Context, date string, seq []domain.SequenceEntry, distanceMeters, durationSeconds int) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	included := make(map[string]bool, len(seq))
	for _, entry := range seq {
		included[entry.StopID] = true
	}

	f.stops.mu.Lock()
	for _, stop := range f.stops.stops {
		if stop.ScheduledDate != date {
			continue
		}
		switch {
		case included[stop.ID]:
			stop.Status = domain.StopOptimized
		case stop.Status == domain.StopOptimized:
			stop.Status = domain.StopPending
		}
	}
	f.stops.mu.Unlock()

	route := f.ensure(date)
	route.Sequence = seq
	route.TotalDistanceMeters = distanceMeters
	route.TotalDurationSeconds = durationSeconds
	route.UpdatedAt = time.Now().UTC()
	return route, nil
}

func (f *fakeRouteRepo) StartCascade(_ context.Context, id string) (*domain.Route, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.byID[id]
	if !ok {
		return nil, 0, domain.NotFoundf("route %s not found", id)
	}
	if route.Status != domain.RoutePlanned {
		return nil, 0, domain.Conflictf("route %s is %s, only planned routes can start", id, route.Status)
	}
	route.Status = domain.RouteActive

	moved := 0
	f.stops.mu.Lock()
	for _, stop := range f.stops.stops {
		if stop.ScheduledDate == route.RouteDate && stop.Status == domain.StopOptimized {
			stop.Status = domain.StopInTransit
			moved++
		}
	}
	f.stops.mu.Unlock()
	return route, moved, nil
}

func (f *fakeRouteRepo) SetStatus(_ context.Context, id string, status domain.RouteStatus) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.byID[id]
	if !ok {
		return nil, domain.NotFoundf("route %s not found", id)
	}
	if !route.Status.CanTransitionTo(status) {
		return nil, domain.Conflictf("route %s cannot go from %s to %s", id, route.Status, status)
	}
	route.Status = status
	return route, nil
}

func (f *fakeRouteRepo) SetArchived(_ context.Context, id string, archived bool) (*domain.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.byID[id]
	if !ok {
		return nil, domain.NotFoundf("route %s not found", id)
	}
	if archived == route.Archived {
		return nil, domain.Conflictf("route %s archive state is already %v", id, archived)
	}
	if archived && !route.Status.Terminal() {
		return nil, domain.Conflictf("route %s is %s, only terminal routes can be archived", id, route.Status)
	}
	route.Archived = archived
	if archived {
		now := time.Now().UTC()
		route.ArchivedAt = &now
	} else {
		route.ArchivedAt = nil
	}
	return route, nil
}

func (f *fakeRouteRepo) ArchiveSweep(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	limit := cutoff.Format(domain.DateLayout)
	n := 0
	for _, route := range f.byID {
		if route.Archived || !route.Status.Terminal() || route.RouteDate >= limit {
			continue
		}
		route.Archived = true
		now := time.Now().UTC()
		route.ArchivedAt = &now
		n++
	}
	return n, nil
}

func (f *fakeRouteRepo) ClearDate(_ context.Context, date string) (domain.ClearCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts domain.ClearCounts

	f.stops.mu.Lock()
	for id, stop := range f.stops.stops {
		if stop.ScheduledDate != date {
			continue
		}
		counts.Notifications += len(f.stops.notifs[id])
		delete(f.stops.notifs, id)
		delete(f.stops.stops, id)
		counts.Stops++
	}
	f.stops.mu.Unlock()

	if route, ok := f.byDate[date]; ok {
		delete(f.byID, route.ID)
		delete(f.byDate, date)
		counts.Routes = 1
	}
	return counts, nil
}

type fakeGeocoder struct {
	mu      sync.Mutex
	calls   int
	results map[string]ports.GeocodeResult
	errs    map[string]error
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		results: make(map[string]ports.GeocodeResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (ports.GeocodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[address]; ok {
		return ports.GeocodeResult{}, err
	}
	if res, ok := f.results[address]; ok {
		return res, nil
	}
	return ports.GeocodeResult{
		Coord:            domain.Coordinates{Lon: 1, Lat: 1},
		FormattedAddress: address,
	}, nil
}

type fakeOptimizer struct {
	optimizeCalls int
	fixedCalls    int

	order       []int // waypoint order returned; identity when nil
	optimizeErr error

	fixed    ports.RouteMetrics
	fixedErr error
}

func (f *fakeOptimizer) OptimizeWaypoints(_ context.Context, _, _ domain.Coordinates, waypoints []domain.Coordinates) (ports.RouteMetrics, error) {
	f.optimizeCalls++
	if f.optimizeErr != nil {
		return ports.RouteMetrics{}, f.optimizeErr
	}
	order := f.order
	if order == nil {
		order = make([]int, len(waypoints))
		for i := range order {
			order[i] = i
		}
	}
	return ports.RouteMetrics{WaypointOrder: order}, nil
}

func (f *fakeOptimizer) ComputeFixedRoute(_ context.Context, _, _ domain.Coordinates, waypoints []domain.Coordinates) (ports.RouteMetrics, error) {
	f.fixedCalls++
	if f.fixedErr != nil {
		return ports.RouteMetrics{}, f.fixedErr
	}
	metrics := f.fixed
	order := make([]int, len(waypoints))
	for i := range order {
		order[i] = i
	}
	metrics.WaypointOrder = order
	return metrics, nil
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings(values map[string]string) *fakeSettings {
	if values == nil {
		values = make(map[string]string)
	}
	return &fakeSettings{values: values}
}

func (f *fakeSettings) Get(_ context.Context, key, fallback string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return fallback, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettings) All(_ context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

type emitted struct {
	topic string
	event ports.Event
}

type fakeEvents struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEvents) Emit(topic string, event ports.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{topic: topic, event: event})
}

func (f *fakeEvents) byType(eventType string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeTrackingRepo struct {
	mu    sync.Mutex
	pings []*domain.TrackingPing
}

func (f *fakeTrackingRepo) Append(_ context.Context, ping *domain.TrackingPing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ping.ID = int64(len(f.pings) + 1)
	f.pings = append(f.pings, ping)
	return nil
}

func (f *fakeTrackingRepo) ListByRoute(_ context.Context, routeID string) ([]*domain.TrackingPing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TrackingPing
	for _, p := range f.pings {
		if p.RouteID == routeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeTrackingRepo) ListByStop(_ context.Context, stopID string) ([]*domain.TrackingPing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TrackingPing
	for _, p := range f.pings {
		if p.StopID == stopID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrderSource struct {
	orders []ports.RawOrder
	err    error
	calls  int
}

func (f *fakeOrderSource) FetchOrders(_ context.Context, _ string, _ bool) ([]ports.RawOrder, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *fakeOrderSource) Name() string { return "oms" }
