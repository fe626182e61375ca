package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type LocalityHandler struct {
	service interfaces.LocalityService
	logger  logger.Logger
}

func NewLocalityHandler(service interfaces.LocalityService, lgr logger.Logger) *LocalityHandler {
	return &LocalityHandler{service: service, logger: lgr}
}

type TileResponse struct {
	State      string  `json:"state"`
	TableID    *int64  `json:"table_id,omitempty"`
	TableLabel *string `json:"table_label,omitempty"`
}

type VisitResponse struct {
	SessionToken string    `json:"session_token"`
	TableID      int64     `json:"table_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type ApproveRequest struct {
	TableID         int64  `json:"table_id"`
	ClientSessionID string `json:"client_session_id"`
	Method          string `json:"method"`
}

type ApprovalResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleTiles serves GET /tiles/{code}, POST /tiles/{code}/visit and
// POST /tiles/{code}/approve.
func (h *LocalityHandler) HandleTiles(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	code := parts[1]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.resolveTile(w, r, code)
	case len(parts) == 3 && parts[2] == "visit" && r.Method == http.MethodPost:
		h.openVisit(w, r, code)
	case len(parts) == 3 && parts[2] == "approve" && r.Method == http.MethodPost:
		h.approve(w, r, code)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *LocalityHandler) resolveTile(w http.ResponseWriter, r *http.Request, code string) {
	res, err := h.service.ResolveTile(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := TileResponse{State: string(res.State)}
	if res.State == domain.TileResolved {
		resp.TableID = &res.Table.ID
		resp.TableLabel = &res.Table.Label
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *LocalityHandler) openVisit(w http.ResponseWriter, r *http.Request, code string) {
	visit, err := h.service.OpenVisit(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, VisitResponse{
		SessionToken: visit.SessionToken,
		TableID:      visit.TableID,
		ExpiresAt:    visit.ExpiresAt,
	})
}

func (h *LocalityHandler) approve(w http.ResponseWriter, r *http.Request, code string) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	approval, err := h.service.ApproveLocality(r.Context(), code, req.TableID, req.ClientSessionID, req.Method)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ApprovalResponse{
		Token:     approval.Token,
		ExpiresAt: approval.ExpiresAt,
	})
}

// HandleVisits serves POST /visits/{token}/close (staff table reset).
func (h *LocalityHandler) HandleVisits(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "close" || r.Method != http.MethodPost {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if _, ok := ClaimsFrom(r.Context()); !ok {
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: "staff credential required"})
		return
	}

	if err := h.service.CloseVisit(r.Context(), parts[1]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTables serves POST /tables/{id}/call.
func (h *LocalityHandler) HandleTables(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "call" || r.Method != http.MethodPost {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	tableID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid table id"})
		return
	}

	if err := h.service.CallWaiter(r.Context(), tableID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
