package handlers

import (
	"log"
	"net/http"

	"sameday-dispatch-service/internal/api/dto"
	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/services"
)

// RouteHandler exposes route optimization and lifecycle operations.
type RouteHandler struct {
	Optimize  *services.OptimizeService
	Lifecycle *services.LifecycleService
	Settings  *services.SettingsReader
}

func routeToResponse(route *domain.Route, pricePerKmCents int) dto.RouteResponse {
	stops := make([]dto.SequenceEntryResponse, 0, len(route.Sequence))
	for _, entry := range route.Sequence {
		stops = append(stops, dto.SequenceEntryResponse{
			StopID:   entry.StopID,
			Kind:     string(entry.Kind),
			Position: entry.Position,
		})
	}

	return dto.RouteResponse{
		ID:                   route.ID,
		RouteDate:            route.RouteDate,
		Status:               string(route.Status),
		TotalDistanceMeters:  route.TotalDistanceMeters,
		TotalDurationSeconds: route.TotalDurationSeconds,
		EstimatedPriceCents:  route.TotalDistanceMeters * pricePerKmCents / 1000,
		Stops:                stops,
		Archived:             route.Archived,
		ArchivedAt:           route.ArchivedAt,
	}
}

// writeRoute renders a route with its price estimate at the current
// rate. An unreadable rate degrades to a zero estimate.
func (h *RouteHandler) writeRoute(w http.ResponseWriter, r *http.Request, route *domain.Route) {
	rate, err := h.Settings.PricePerKmCents(r.Context())
	if err != nil {
		log.Printf("routes: read price rate: %v", err)
		rate = 0
	}
	writeJSON(w, r, http.StatusOK, routeToResponse(route, rate))
}

// RunOptimize recomputes the visiting order for a date.
func (h *RouteHandler) RunOptimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	route, err := h.Optimize.Optimize(r.Context(), services.OptimizeRequest{
		Date:        req.Date,
		ManualOrder: req.ManualOrder,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "date query parameter is required")
		return
	}

	route, err := h.Lifecycle.GetByDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) Start(w http.ResponseWriter, r *http.Request) {
	route, err := h.Lifecycle.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) Complete(w http.ResponseWriter, r *http.Request) {
	route, err := h.Lifecycle.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	route, err := h.Lifecycle.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) Archive(w http.ResponseWriter, r *http.Request) {
	route, err := h.Lifecycle.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	route, err := h.Lifecycle.Unarchive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeRoute(w, r, route)
}

func (h *RouteHandler) ArchiveSweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.Lifecycle.ArchiveSweep(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ArchiveSweepResponse{Archived: n})
}
