package services

import (
	"context"
	"log"
	"sort"
	"sync"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

// OptimizeRequest is one stop-ordering run for a single date.
// ManualOrder maps stop id to a desired 1-based visiting position and
// may cover none, some, or all of the date's stops.
type OptimizeRequest struct {
	Date        string
	ManualOrder map[string]int
}

// OptimizeService turns the pending stops of a date into an ordered,
// priority-aware route.
//
// Runs for the same date are serialized through a per-date lock so a
// caller never observes stops marked optimized against a stale route
// order. Runs for different dates proceed independently.
type OptimizeService struct {
	Stops     ports.StopRepository
	Routes    ports.RouteRepository
	Settings  *SettingsReader
	Geocoder  ports.Geocoder
	Optimizer ports.RouteOptimizer

	mu    sync.Mutex
	locks map[string]*dateMutex
}

// dateMutex is a per-date lock entry. refs counts the goroutines that
// requested the lock so the entry can be dropped once the last one
// releases it.
type dateMutex struct {
	mu   sync.Mutex
	refs int
}

func NewOptimizeService(
	stops ports.StopRepository,
	routes ports.RouteRepository,
	settings ports.SettingsRepository,
	geocoder ports.Geocoder,
	optimizer ports.RouteOptimizer,
) *OptimizeService {
	return &OptimizeService{
		Stops:     stops,
		Routes:    routes,
		Settings:  NewSettingsReader(settings),
		Geocoder:  geocoder,
		Optimizer: optimizer,
		locks:     make(map[string]*dateMutex),
	}
}

// lockDate serializes runs for one date and returns the release func.
// The map entry is evicted when no run holds or waits on it.
func (s *OptimizeService) lockDate(date string) func() {
	s.mu.Lock()
	l, ok := s.locks[date]
	if !ok {
		l = &dateMutex{}
		s.locks[date] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, date)
		}
		s.mu.Unlock()
	}
}

// Optimize computes and persists the visiting order for a date.
//
// A complete manual order short-circuits automatic optimization.
// Otherwise the priority baseline seeds an external waypoint
// optimization whose failure degrades to the baseline with zero
// metrics instead of failing the run.
func (s *OptimizeService) Optimize(ctx context.Context, req OptimizeRequest) (*domain.Route, error) {
	if _, err := domain.ParseDate(req.Date); err != nil {
		return nil, err
	}
	if err := validateManualOrder(req.ManualOrder); err != nil {
		return nil, err
	}

	unlock := s.lockDate(req.Date)
	defer unlock()

	all, err := s.Stops.ListByDate(ctx, req.Date)
	if err != nil {
		return nil, err
	}

	stops := make([]*domain.DeliveryStop, 0, len(all))
	for _, st := range all {
		if st.Status == domain.StopPending || st.Status == domain.StopOptimized {
			stops = append(stops, st)
		}
	}
	if len(stops) == 0 {
		return nil, domain.Validationf("no pending stops to optimize on %s", req.Date)
	}

	order, distance, duration := s.decideOrder(ctx, req, stops)

	// Service time at each stop counts toward the day's total. Fallback
	// runs keep zero metrics, so dwell is only added on top of a real
	// travel estimate.
	if duration > 0 {
		dwell, err := s.Settings.DwellSeconds(ctx)
		if err != nil {
			log.Printf("optimize: read dwell seconds: %v", err)
		} else {
			duration += dwell * len(order)
		}
	}

	seq := make([]domain.SequenceEntry, len(order))
	for i, st := range order {
		seq[i] = domain.SequenceEntry{StopID: st.ID, Kind: st.Kind, Position: i}
	}

	return s.Routes.SaveOptimization(ctx, req.Date, seq, distance, duration)
}

// decideOrder runs the ordering algorithm and returns the final order
// with aggregate metrics. Collaborator failures never propagate out of
// here; they degrade to the priority baseline and zero metrics.
func (s *OptimizeService) decideOrder(
	ctx context.Context,
	req OptimizeRequest,
	stops []*domain.DeliveryStop,
) ([]*domain.DeliveryStop, int, int) {
	// A single stop needs no collaborator at all.
	if len(stops) == 1 {
		return stops, 0, 0
	}

	depot, circular, depotErr := s.depot(ctx)
	if depotErr != nil {
		log.Printf("optimize: depot unavailable, falling back to priority order: %v", depotErr)
	}

	if manualOrderComplete(stops, req.ManualOrder) {
		order := sortByManual(stops, req.ManualOrder)
		if depotErr != nil {
			return order, 0, 0
		}
		dist, dur := s.fixedMetrics(ctx, depot, circular, order)
		return order, dist, dur
	}

	baseline := priorityBaseline(stops)
	if depotErr != nil {
		return baseline, 0, 0
	}

	order, ok := s.autoOrder(ctx, depot, circular, baseline, req.ManualOrder)
	if !ok {
		return baseline, 0, 0
	}

	dist, dur := s.fixedMetrics(ctx, depot, circular, order)
	return order, dist, dur
}

// autoOrder sends the delivery stops to the external optimizer and
// re-inserts pickup stops into the returned order. ok is false when the
// collaborator failed and the caller should fall back to the baseline.
func (s *OptimizeService) autoOrder(
	ctx context.Context,
	depot domain.Coordinates,
	circular bool,
	baseline []*domain.DeliveryStop,
	manual map[string]int,
) ([]*domain.DeliveryStop, bool) {
	deliveries := make([]*domain.DeliveryStop, 0, len(baseline))
	pickups := make([]*domain.DeliveryStop, 0)
	for _, st := range baseline {
		if st.Kind == domain.KindPickup {
			pickups = append(pickups, st)
		} else {
			deliveries = append(deliveries, st)
		}
	}

	ordered := deliveries
	if len(deliveries) >= 2 {
		destination := depot
		waypoints := deliveries
		var tail *domain.DeliveryStop
		if !circular {
			// Open route: the baseline's last delivery anchors the end.
			tail = deliveries[len(deliveries)-1]
			destination = tail.Coord
			waypoints = deliveries[:len(deliveries)-1]
		}

		coords := make([]domain.Coordinates, len(waypoints))
		for i, st := range waypoints {
			coords[i] = st.Coord
		}

		res, err := s.Optimizer.OptimizeWaypoints(ctx, depot, destination, coords)
		if err != nil || len(res.WaypointOrder) != len(waypoints) {
			log.Printf("optimize: waypoint optimization failed, falling back to priority order: %v", err)
			return nil, false
		}

		ordered = make([]*domain.DeliveryStop, 0, len(deliveries))
		for _, idx := range res.WaypointOrder {
			if idx < 0 || idx >= len(waypoints) {
				log.Printf("optimize: waypoint order index %d out of range, falling back", idx)
				return nil, false
			}
			ordered = append(ordered, waypoints[idx])
		}
		if tail != nil {
			ordered = append(ordered, tail)
		}
	}

	return insertPickups(ordered, pickups, manual), true
}

// insertPickups places pickup stops into an ordered delivery sequence:
// a pickup with a manual position lands at that 1-based position
// (clamped to the sequence end), the rest are appended preserving their
// relative order.
func insertPickups(ordered, pickups []*domain.DeliveryStop, manual map[string]int) []*domain.DeliveryStop {
	if len(pickups) == 0 {
		return ordered
	}

	pinned := make([]*domain.DeliveryStop, 0, len(pickups))
	loose := make([]*domain.DeliveryStop, 0, len(pickups))
	for _, p := range pickups {
		if _, ok := manual[p.ID]; ok {
			pinned = append(pinned, p)
		} else {
			loose = append(loose, p)
		}
	}
	sort.SliceStable(pinned, func(i, j int) bool {
		return manual[pinned[i].ID] < manual[pinned[j].ID]
	})

	out := make([]*domain.DeliveryStop, len(ordered), len(ordered)+len(pickups))
	copy(out, ordered)
	for _, p := range pinned {
		idx := manual[p.ID] - 1
		if idx > len(out) {
			idx = len(out)
		}
		out = append(out, nil)
		copy(out[idx+1:], out[idx:])
		out[idx] = p
	}
	return append(out, loose...)
}

// fixedMetrics asks the collaborator for aggregate distance/duration of
// the decided sequence. Failure is non-fatal: the order stands with
// zero metrics.
func (s *OptimizeService) fixedMetrics(ctx context.Context, depot domain.Coordinates, circular bool, order []*domain.DeliveryStop) (int, int) {
	destination := depot
	waypoints := order
	if !circular {
		destination = order[len(order)-1].Coord
		waypoints = order[:len(order)-1]
	}

	coords := make([]domain.Coordinates, len(waypoints))
	for i, st := range waypoints {
		coords[i] = st.Coord
	}

	res, err := s.Optimizer.ComputeFixedRoute(ctx, depot, destination, coords)
	if err != nil {
		log.Printf("optimize: fixed route metrics failed, storing zero metrics: %v", err)
		return 0, 0
	}
	return res.DistanceMeters, res.DurationSeconds
}

// depot resolves the configured depot address to coordinates and reads
// the circular-route flag.
func (s *OptimizeService) depot(ctx context.Context) (domain.Coordinates, bool, error) {
	addr, err := s.Settings.DepotAddress(ctx)
	if err != nil {
		return domain.Coordinates{}, false, err
	}
	if addr == "" {
		return domain.Coordinates{}, false, domain.Validationf("depot address is not configured")
	}

	circular, err := s.Settings.CircularRoute(ctx)
	if err != nil {
		return domain.Coordinates{}, false, err
	}

	geo, err := s.Geocoder.Geocode(ctx, addr)
	if err != nil {
		return domain.Coordinates{}, false, err
	}
	return geo.Coord, circular, nil
}

func validateManualOrder(manual map[string]int) error {
	seen := make(map[int]string, len(manual))
	for id, pos := range manual {
		if pos < 1 {
			return domain.Validationf("manual position for stop %s must be at least 1, got %d", id, pos)
		}
		if other, ok := seen[pos]; ok {
			return domain.Validationf("manual position %d assigned to both %s and %s", pos, other, id)
		}
		seen[pos] = id
	}
	return nil
}

func manualOrderComplete(stops []*domain.DeliveryStop, manual map[string]int) bool {
	if len(manual) < len(stops) {
		return false
	}
	for _, st := range stops {
		if _, ok := manual[st.ID]; !ok {
			return false
		}
	}
	return true
}

func sortByManual(stops []*domain.DeliveryStop, manual map[string]int) []*domain.DeliveryStop {
	out := make([]*domain.DeliveryStop, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool {
		return manual[out[i].ID] < manual[out[j].ID]
	})
	return out
}

// priorityBaseline orders stops by descending priority tier; ties keep
// creation order. Input comes from the repository already ordered by
// creation sequence, so a stable sort preserves the tie-break.
func priorityBaseline(stops []*domain.DeliveryStop) []*domain.DeliveryStop {
	out := make([]*domain.DeliveryStop, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}
