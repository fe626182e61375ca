package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adilzhm/tably/internal/domain"
)

type ErrorResponse struct {
	Error           string `json:"error"`
	ExpectedTableID *int64 `json:"expected_table_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError maps the domain error taxonomy to HTTP statuses. Table
// mismatches carry the expected table id so the client can self-correct;
// internal faults surface as a generic failure.
func respondError(w http.ResponseWriter, err error) {
	var mismatch *domain.TableMismatchError
	if errors.As(err, &mismatch) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:           mismatch.Error(),
			ExpectedTableID: &mismatch.ExpectedTableID,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrTileNotFound),
		errors.Is(err, domain.ErrTableNotFound),
		errors.Is(err, domain.ErrStoreNotFound):
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPermissionDenied):
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrOrderTerminal),
		errors.Is(err, domain.ErrVisitNotFound),
		errors.Is(err, domain.ErrApprovalNotFound):
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidStatus):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
