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

type OrderHandler struct {
	service interfaces.LifecycleService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.LifecycleService, lgr logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: lgr}
}

type CreateOrderRequest struct {
	StoreID       int64              `json:"store_id"`
	TableID       int64              `json:"table_id"`
	VisitToken    string             `json:"visit_token,omitempty"`
	ApprovalToken string             `json:"approval_token,omitempty"`
	Items         []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	Title          string              `json:"title"`
	UnitPriceCents int64               `json:"unit_price_cents"`
	Quantity       int                 `json:"quantity"`
	Options        []ItemOptionRequest `json:"options,omitempty"`
}

type ItemOptionRequest struct {
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
}

type PatchStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type OrderResponse struct {
	ID            int64      `json:"id"`
	StoreID       int64      `json:"store_id"`
	TableID       int64      `json:"table_id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TotalCents    int64      `json:"total_cents"`
	TicketNumber  *int       `json:"ticket_number,omitempty"`
	CancelReason  *string    `json:"cancel_reason,omitempty"`
	PreparingAt   *time.Time `json:"preparing_at,omitempty"`
	ReadyAt       *time.Time `json:"ready_at,omitempty"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	Items         []string   `json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:            order.ID,
		StoreID:       order.StoreID,
		TableID:       order.TableID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalCents:    order.TotalCents,
		TicketNumber:  order.TicketNumber,
		CancelReason:  order.CancelReason,
		PreparingAt:   order.PreparingAt,
		ReadyAt:       order.ReadyAt,
		ServedAt:      order.ServedAt,
		PaidAt:        order.PaidAt,
		CancelledAt:   order.CancelledAt,
		Items:         order.ItemSummary(),
		CreatedAt:     order.CreatedAt,
	}
}

// HandleOrders serves POST /orders and GET /orders?store_id=N.
func (h *OrderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOpenOrders(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	items := make([]interfaces.CreateOrderItemCommand, len(req.Items))
	for i, item := range req.Items {
		options := make([]interfaces.CreateOrderOptionCommand, len(item.Options))
		for j, opt := range item.Options {
			options[j] = interfaces.CreateOrderOptionCommand{
				Title:      strings.TrimSpace(opt.Title),
				PriceCents: opt.PriceCents,
			}
		}
		items[i] = interfaces.CreateOrderItemCommand{
			Title:          strings.TrimSpace(item.Title),
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			Options:        options,
		}
	}

	order, err := h.service.CreateOrder(r.Context(), interfaces.CreateOrderCommand{
		StoreID:       req.StoreID,
		TableID:       req.TableID,
		VisitToken:    req.VisitToken,
		ApprovalToken: req.ApprovalToken,
		Items:         items,
	})
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) listOpenOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := ClaimsFrom(r.Context()); !ok {
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: "staff credential required"})
		return
	}

	storeID, err := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "store_id is required"})
		return
	}

	orders, err := h.service.ListOpenOrders(r.Context(), storeID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, order := range orders {
		resp[i] = toOrderResponse(order)
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleOrderByID serves GET /orders/{id} and PATCH /orders/{id}/status.
func (h *OrderHandler) HandleOrderByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
		return
	}

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getOrder(w, r, orderID)
	case len(parts) == 3 && parts[2] == "status" && r.Method == http.MethodPatch:
		h.patchStatus(w, r, orderID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request, orderID int64) {
	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) patchStatus(w http.ResponseWriter, r *http.Request, orderID int64) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: "staff credential required"})
		return
	}

	var req PatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := interfaces.Actor{UserID: claims.UserID, Role: claims.Role}
	order, err := h.service.Transition(r.Context(), orderID, domain.Status(req.Status), actor, req.Reason)
	if err != nil {
		h.logger.Error("transition_failed", "Status transition rejected", "", map[string]any{
			"order_id": orderID,
			"target":   req.Status,
		}, err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(order))
}
