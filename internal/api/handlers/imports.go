package handlers

import (
	"net/http"

	"sameday-dispatch-service/internal/api/dto"
	"sameday-dispatch-service/internal/services"
)

// ImportHandler triggers order reconciliation from the external source.
type ImportHandler struct {
	Importer *services.ImportService
}

func (h *ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.Importer.ImportBatch(r.Context(), req.Date, req.Force)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ImportResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Failed:   result.Failed,
		PerDate:  result.PerDate,
	})
}
