package ports

import (
	"context"

	"sameday-dispatch-service/internal/domain"
)

// RouteLeg is the travel cost of one segment of a computed route.
type RouteLeg struct {
	DistanceMeters  int
	DurationSeconds int
}

// RouteMetrics is the result of a route computation.
//
// WaypointOrder is the permutation of the input waypoints chosen by the
// optimizer (indices into the request's waypoint slice); it is the
// identity permutation for fixed-sequence computations.
type RouteMetrics struct {
	WaypointOrder   []int
	Legs            []RouteLeg
	DistanceMeters  int
	DurationSeconds int
	Polyline        string
}

// Contract for the external route-geometry collaborator.
type RouteOptimizer interface {
	// OptimizeWaypoints asks the collaborator to reorder the intermediate
	// waypoints between origin and destination for shortest travel.
	OptimizeWaypoints(ctx context.Context, origin, destination domain.Coordinates, waypoints []domain.Coordinates) (RouteMetrics, error)

	// ComputeFixedRoute returns aggregate metrics and geometry for an
	// already-ordered sequence of waypoints.
	ComputeFixedRoute(ctx context.Context, origin, destination domain.Coordinates, waypoints []domain.Coordinates) (RouteMetrics, error)
}
