package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"sameday-dispatch-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeDomainError maps an error's category onto an HTTP status so
// callers can branch without parsing messages. Uncategorized errors
// stay opaque.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)

	var status int
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindCollaborator:
		status = http.StatusBadGateway
	default:
		log.Printf("request failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
			"kind":  domain.KindStorage.String(),
		})
		return
	}

	writeJSON(w, r, status, map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

// decodeJSON enforces a single, strictly shaped JSON object body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid json body")
	}
	if dec.More() {
		return domain.Validationf("body must contain only one JSON object")
	}
	return nil
}
