package ports

import (
	"context"
	"encoding/json"
)

// RawOrder is one order as returned by the external order-management
// system. Payload keeps the source document verbatim for later
// inspection on the imported stop.
type RawOrder struct {
	Ref              string
	RequiresDelivery bool
	ScheduledDate    string // empty when the source carries no schedule
	Status           string
	CustomerName     string
	Phone            string
	Address          string
	Items            string
	Category         string
	Payload          json.RawMessage
}

// Contract for fetching orders from the external order source.
//
// FetchOrders must de-duplicate concurrent calls for the same date:
// callers requesting a date while a fetch is in flight share that
// fetch's result. force bypasses any cached result.
type OrderSource interface {
	FetchOrders(ctx context.Context, date string, force bool) ([]RawOrder, error)

	// Name is the stable source identifier used as the external order id
	// prefix ("<source>_<ref>").
	Name() string
}
