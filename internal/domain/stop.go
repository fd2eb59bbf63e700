package domain

import (
	"encoding/json"
	"time"
)

// StopStatus is the closed set of delivery stop lifecycle states.
type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopOptimized StopStatus = "optimized"
	StopInTransit StopStatus = "in_transit"
	StopDelivered StopStatus = "delivered"
	StopCancelled StopStatus = "cancelled"
)

// stopTransitions is the validated transition table for stop statuses.
// Any pair not listed here is rejected.
var stopTransitions = map[StopStatus][]StopStatus{
	StopPending:   {StopOptimized, StopCancelled},
	StopOptimized: {StopPending, StopInTransit, StopCancelled},
	StopInTransit: {StopDelivered},
	StopDelivered: {},
	StopCancelled: {},
}

func (s StopStatus) Valid() bool {
	_, ok := stopTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal
// stop status transition. Delivered is additionally reachable from any
// state through Complete, which is idempotent; that shortcut is handled
// by the caller, not by this table.
func (s StopStatus) CanTransitionTo(next StopStatus) bool {
	for _, t := range stopTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Priority is the urgency tier attached to a stop. Higher values are
// visited earlier when no external optimization result is available.
type Priority int

const (
	PriorityRoutine  Priority = 0
	PriorityStandard Priority = 1
	PriorityHigh     Priority = 2
	PriorityUrgent   Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityRoutine && p <= PriorityUrgent
}

// ParcelSize classifies the physical size of a stop's parcel.
type ParcelSize string

const (
	SizeSmall  ParcelSize = "small"
	SizeMedium ParcelSize = "medium"
	SizeLarge  ParcelSize = "large"
)

func (s ParcelSize) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// StopKind distinguishes ordinary delivery stops from pickup (restock)
// stops that return goods to the depot.
type StopKind string

const (
	KindDelivery StopKind = "delivery"
	KindPickup   StopKind = "pickup"
)

// DeliveryStop is a single location to visit on a daily route.
//
// Seq is a storage-assigned monotonic counter used as the stable
// tie-break when two stops share a priority tier: the earlier-created
// stop is visited first.
type DeliveryStop struct {
	ID              string
	ExternalOrderID string // "<source>_<ref>" for imported orders, empty otherwise
	Seq             int64
	ScheduledDate   string // DateLayout
	CustomerName    string
	Phone           string
	Address         string
	Coord           Coordinates
	Product         string
	Category        string
	Size            ParcelSize
	Priority        Priority
	WindowStart     string // "HH:MM", empty when no window
	WindowEnd       string
	Kind            StopKind
	Status          StopStatus
	RawPayload      json.RawMessage // source order as received, imports only
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Notification is a per-stop event record (delivered, approaching).
type Notification struct {
	ID        int64
	StopID    string
	Type      string
	Message   string
	CreatedAt time.Time
}

const (
	NotifyDelivered   = "delivered"
	NotifyApproaching = "approaching"
)

// TrackingPing is an append-only position report for an active route.
type TrackingPing struct {
	ID         int64
	RouteID    string
	StopID     string // optional, the stop the courier is heading to
	Coord      Coordinates
	RecordedAt time.Time
}
