package ports

// Lifecycle event types pushed to dashboard subscribers.
const (
	EventRouteStarted        = "route_started"
	EventDeliveryCompleted   = "delivery_completed"
	EventDeliveryApproaching = "delivery_approaching"
	EventPosition            = "position"
)

// TopicRoutes receives every route-level event regardless of date.
// Per-date events additionally go to RouteTopic(date).
const TopicRoutes = "routes"

// RouteTopic is the per-date fan-out topic.
func RouteTopic(date string) string { return "route:" + date }

// Event is the payload fanned out to dashboard subscribers.
type Event struct {
	Type      string `json:"type"`
	RouteID   string `json:"route_id,omitempty"`
	RouteDate string `json:"route_date,omitempty"`
	StopID    string `json:"stop_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Contract for the fan-out boundary. Emit is fire-and-forget with
// at-least-once semantics; subscribers must tolerate duplicates.
type EventSink interface {
	Emit(topic string, event Event)
}
