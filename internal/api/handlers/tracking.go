package handlers

import (
	"net/http"

	"sameday-dispatch-service/internal/api/dto"
	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/services"
)

// TrackingHandler ingests courier position pings and serves the
// position history of a route.
type TrackingHandler struct {
	Tracking *services.TrackingService
}

func (h *TrackingHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.TrackingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.RouteID == "" {
		writeError(w, r, http.StatusBadRequest, "route_id is required")
		return
	}

	ping, err := h.Tracking.Record(r.Context(), req.RouteID, req.StopID, domain.Coordinates{
		Lat: req.Lat,
		Lon: req.Lon,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, pingToResponse(ping))
}

func (h *TrackingHandler) List(w http.ResponseWriter, r *http.Request) {
	routeID := r.URL.Query().Get("route_id")
	if routeID == "" {
		writeError(w, r, http.StatusBadRequest, "route_id query parameter is required")
		return
	}

	pings, err := h.Tracking.ListByRoute(r.Context(), routeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListTrackingResponse{Pings: make([]dto.TrackingPingResponse, 0, len(pings))}
	for _, p := range pings {
		res.Pings = append(res.Pings, pingToResponse(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func pingToResponse(p *domain.TrackingPing) dto.TrackingPingResponse {
	return dto.TrackingPingResponse{
		ID:         p.ID,
		RouteID:    p.RouteID,
		StopID:     p.StopID,
		Lat:        p.Coord.Lat,
		Lon:        p.Coord.Lon,
		RecordedAt: p.RecordedAt,
	}
}
