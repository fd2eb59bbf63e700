package handlers

import (
	"net/http"

	"sameday-dispatch-service/internal/api/dto"
	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/services"
)

// StopHandler exposes stop CRUD and per-stop status operations.
type StopHandler struct {
	Stops *services.StopService
}

func stopToResponse(s *domain.DeliveryStop) dto.StopResponse {
	return dto.StopResponse{
		ID:              s.ID,
		ExternalOrderID: s.ExternalOrderID,
		ScheduledDate:   s.ScheduledDate,
		CustomerName:    s.CustomerName,
		Phone:           s.Phone,
		Address:         s.Address,
		Lat:             s.Coord.Lat,
		Lon:             s.Coord.Lon,
		Product:         s.Product,
		Category:        s.Category,
		ParcelSize:      string(s.Size),
		Priority:        int(s.Priority),
		WindowStart:     s.WindowStart,
		WindowEnd:       s.WindowEnd,
		Kind:            string(s.Kind),
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func stopRequestToService(req dto.CreateStopRequest) services.CreateStopRequest {
	return services.CreateStopRequest{
		ScheduledDate: req.ScheduledDate,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Address:       req.Address,
		Product:       req.Product,
		Category:      req.Category,
		Size:          req.ParcelSize,
		Priority:      req.Priority,
		WindowStart:   req.WindowStart,
		WindowEnd:     req.WindowEnd,
		Kind:          req.Kind,
	}
}

func (h *StopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateStopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	stop, err := h.Stops.Create(r.Context(), stopRequestToService(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, stopToResponse(stop))
}

func (h *StopHandler) Get(w http.ResponseWriter, r *http.Request) {
	stop, err := h.Stops.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stopToResponse(stop))
}

func (h *StopHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "date query parameter is required")
		return
	}

	stops, err := h.Stops.ListByDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListStopsResponse{Stops: make([]dto.StopResponse, 0, len(stops))}
	for _, s := range stops {
		res.Stops = append(res.Stops, stopToResponse(s))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *StopHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateStopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	stop, err := h.Stops.Update(r.Context(), r.PathValue("id"), stopRequestToService(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stopToResponse(stop))
}

func (h *StopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Stops.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StopHandler) Complete(w http.ResponseWriter, r *http.Request) {
	stop, err := h.Stops.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stopToResponse(stop))
}

// ClearDate removes every record for the date: stops, route, tracking
// and notifications.
func (h *StopHandler) ClearDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, r, http.StatusBadRequest, "date query parameter is required")
		return
	}

	counts, err := h.Stops.ClearDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ClearDateResponse{
		Notifications: counts.Notifications,
		TrackingPings: counts.TrackingPings,
		Stops:         counts.Stops,
		Routes:        counts.Routes,
	})
}
