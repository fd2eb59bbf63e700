package handlers

import (
	"net/http"

	"sameday-dispatch-service/internal/ports"
)

// SettingsHandler exposes the key/value configuration store.
type SettingsHandler struct {
	Settings ports.SettingsRepository
}

func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.All(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if len(req) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one setting is required")
		return
	}

	for key, value := range req {
		if err := h.Settings.Set(r.Context(), key, value); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	settings, err := h.Settings.All(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}
