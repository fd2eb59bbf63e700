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

// ImportResult aggregates one reconciliation batch. PerDate counts
// imported stops by the date they actually landed on, which may differ
// from the queried date.
type ImportResult struct {
	Imported int
	Skipped  int
	Failed   int
	PerDate  map[string]int
}

// ImportService pulls orders from the external order source and
// reconciles them into delivery stops, de-duplicating by external id
// across all dates.
type ImportService struct {
	Source   ports.OrderSource
	Stops    ports.StopRepository
	Routes   ports.RouteRepository
	Geocoder ports.Geocoder

	// now is swappable for tests of the date-proximity priority rule.
	now func() time.Time
}

func NewImportService(
	source ports.OrderSource,
	stops ports.StopRepository,
	routes ports.RouteRepository,
	geocoder ports.Geocoder,
) *ImportService {
	return &ImportService{
		Source:   source,
		Stops:    stops,
		Routes:   routes,
		Geocoder: geocoder,
		now:      time.Now,
	}
}

// ImportBatch fetches the source's orders for a date and converts the
// delivery-flagged ones into stops. Each order lands on its own
// scheduled date. Per-order failures are counted, not fatal; a repeat
// call with the same source data imports nothing new.
func (s *ImportService) ImportBatch(ctx context.Context, date string, force bool) (ImportResult, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return ImportResult{}, err
	}

	orders, err := s.Source.FetchOrders(ctx, date, force)
	if err != nil {
		return ImportResult{}, domain.CollaboratorErr("fetch orders from "+s.Source.Name(), err)
	}

	result := ImportResult{PerDate: make(map[string]int)}

	for _, order := range orders {
		if !order.RequiresDelivery {
			continue
		}
		if strings.TrimSpace(order.Ref) == "" {
			log.Printf("import: skipping order with empty ref from %s", s.Source.Name())
			result.Failed++
			continue
		}

		externalID := s.Source.Name() + "_" + order.Ref

		exists, err := s.Stops.ExternalIDExists(ctx, externalID)
		if err != nil {
			result.Failed++
			log.Printf("import: dedupe check %s: %v", externalID, err)
			continue
		}
		if exists {
			// Already imported on some date; skip, never re-import.
			result.Skipped++
			log.Printf("import: skipping already-imported order %s", externalID)
			continue
		}

		scheduled := s.scheduledDate(order, date)

		stop, err := s.buildStop(ctx, order, externalID, scheduled)
		if err != nil {
			result.Failed++
			log.Printf("import: order %s: %v", externalID, err)
			continue
		}

		// A date that receives a stop gets its route row immediately,
		// whether or not optimization has run.
		if _, err := s.Routes.GetOrCreate(ctx, scheduled); err != nil {
			result.Failed++
			log.Printf("import: ensure route for %s: %v", scheduled, err)
			continue
		}

		if err := s.Stops.Create(ctx, stop); err != nil {
			result.Failed++
			log.Printf("import: insert stop %s: %v", externalID, err)
			continue
		}

		result.Imported++
		result.PerDate[scheduled]++
	}

	log.Printf("import date=%s source=%s imported=%d skipped=%d failed=%d",
		date, s.Source.Name(), result.Imported, result.Skipped, result.Failed)
	return result, nil
}

// scheduledDate prefers the order's own scheduling field over the date
// used to query the source.
func (s *ImportService) scheduledDate(order ports.RawOrder, queried string) string {
	if order.ScheduledDate == "" {
		return queried
	}
	if _, err := domain.ParseDate(order.ScheduledDate); err != nil {
		log.Printf("import: order %s has unparseable scheduled date %q, using query date", order.Ref, order.ScheduledDate)
		return queried
	}
	return order.ScheduledDate
}

func (s *ImportService) buildStop(ctx context.Context, order ports.RawOrder, externalID, scheduled string) (*domain.DeliveryStop, error) {
	address := strings.TrimSpace(order.Address)
	if address == "" {
		return nil, domain.Validationf("order has no address")
	}

	geo, err := s.Geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, domain.CollaboratorErr("geocode "+address, err)
	}
	if geo.FormattedAddress != "" {
		address = geo.FormattedAddress
	}

	entry := domain.CatalogEntry{Priority: domain.PriorityStandard, Size: domain.SizeMedium}
	if order.Category != "" {
		if resolved, err := domain.ResolveCategory(order.Category); err == nil {
			entry = resolved
		}
	}

	now := s.now().UTC()
	return &domain.DeliveryStop{
		ID:              uuid.NewString(),
		ExternalOrderID: externalID,
		ScheduledDate:   scheduled,
		CustomerName:    order.CustomerName,
		Phone:           order.Phone,
		Address:         address,
		Coord:           geo.Coord,
		Product:         firstNonEmpty(order.Items, entry.Description),
		Category:        order.Category,
		Size:            entry.Size,
		Priority:        s.derivePriority(scheduled, order.Status, entry.Priority),
		Kind:            domain.KindDelivery,
		Status:          domain.StopPending,
		RawPayload:      order.Payload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// derivePriority ranks an imported order by how soon it is due, with
// the source's pending flag as a fallback bump.
//
// Proximity is evaluated before the pending-status rule, so a far-out
// pending order can outrank a two-day-out non-pending one.
// TODO: confirm with ops whether pending status should ever beat
// schedule proximity before reordering these checks.
func (s *ImportService) derivePriority(scheduled, status string, fallback domain.Priority) domain.Priority {
	days, err := domain.DaysUntil(scheduled, s.now().UTC())
	if err == nil {
		switch {
		case days <= 1:
			return domain.PriorityUrgent
		case days <= 2:
			return domain.PriorityHigh
		}
	}
	if strings.EqualFold(status, "pending") {
		return domain.PriorityHigh
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
