package domain

import "time"

// RouteStatus is the closed set of route lifecycle states.
type RouteStatus string

const (
	RoutePlanned   RouteStatus = "planned"
	RouteActive    RouteStatus = "active"
	RouteCompleted RouteStatus = "completed"
	RouteCancelled RouteStatus = "cancelled"
)

var routeTransitions = map[RouteStatus][]RouteStatus{
	RoutePlanned:   {RouteActive, RouteCancelled},
	RouteActive:    {RouteCompleted, RouteCancelled},
	RouteCompleted: {},
	RouteCancelled: {},
}

func (s RouteStatus) Valid() bool {
	_, ok := routeTransitions[s]
	return ok
}

func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	for _, t := range routeTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status transition is possible.
// Only terminal routes may be archived.
func (s RouteStatus) Terminal() bool {
	return len(routeTransitions[s]) == 0 && s.Valid()
}

// SequenceEntry is one position in a route's persisted visiting order.
// The entry keeps the stop kind so pickup and delivery stops remain
// distinguishable after a storage round-trip.
type SequenceEntry struct {
	StopID   string   `json:"stop_id"`
	Kind     StopKind `json:"kind"`
	Position int      `json:"position"` // 0-indexed
}

// Route is the ordered collection of stops for one calendar date.
// Exactly one route row exists per date, archived or not.
type Route struct {
	ID                   string
	RouteDate            string // DateLayout
	Status               RouteStatus
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Sequence             []SequenceEntry
	Archived             bool
	ArchivedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ArchiveRetentionDays is how long a terminal route stays unarchived
// before the automatic sweep picks it up.
const ArchiveRetentionDays = 3

// ClearCounts reports what a bulk date-clear removed, per category.
type ClearCounts struct {
	Notifications int
	TrackingPings int
	Stops         int
	Routes        int
}
