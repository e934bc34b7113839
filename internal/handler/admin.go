package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"go.uber.org/zap"
)

// QueueService is the admin order board.
// Satisfied by *tracking.Queue; narrow interface for testability.
type QueueService interface {
	Refresh(ctx context.Context) (tracking.QueueView, error)
	Current() (tracking.QueueView, bool)
	Advance(ctx context.Context, orderID int64, status string) (tracking.QueueView, error)
}

// AdminHandler serves the order board and status actions.
type AdminHandler struct {
	queue QueueService
	log   *zap.Logger
}

func NewAdminHandler(queue QueueService, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{queue: queue, log: log}
}

// RegisterRoutes registers admin endpoints. Expected behind
// RequireSurface(admin).
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/queue", h.Queue)
	r.Post("/admin/orders/{id}/advance", h.Advance)
}

type queueResponse struct {
	Counts      map[string]int             `json:"counts"`
	TotalOrders int                        `json:"total_orders"`
	Status      string                     `json:"status,omitempty"`
	Orders      []tracking.View            `json:"orders,omitempty"`
	ByStatus    map[string][]tracking.View `json:"orders_by_status,omitempty"`
}

func toQueueResponse(qv tracking.QueueView, status string) queueResponse {
	resp := queueResponse{Counts: qv.Counts, TotalOrders: qv.TotalOrders}
	if status == "" {
		resp.ByStatus = qv.ByStatus
		return resp
	}
	resp.Status = status
	resp.Orders = qv.Orders(status)
	if resp.Orders == nil {
		resp.Orders = []tracking.View{}
	}
	return resp
}

type advanceRequest struct {
	Status string `json:"status"`
}

// Queue handles GET /admin/queue?status=. It refreshes the board; when the
// refresh was overtaken it serves the board the newer refresh applied.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !enum.IsValidOrderStatus(status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	qv, err := h.queue.Refresh(r.Context())
	if err != nil {
		cur, ok := h.queue.Current()
		if !errors.Is(err, tracking.ErrStale) || !ok {
			h.log.Warn("refresh order board", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "order service unavailable"})
			return
		}
		qv = cur
	}
	writeJSON(w, http.StatusOK, toQueueResponse(qv, status))
}

// Advance handles POST /admin/orders/{id}/advance. The body names the status
// the admin saw; without one the status on the last board is used.
func (h *AdminHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		req.Status = h.boardStatus(orderID)
	}
	if req.Status == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not on the board"})
		return
	}

	qv, err := h.queue.Advance(r.Context(), orderID, req.Status)
	if err != nil {
		var sd serverDetailer
		switch {
		case errors.Is(err, tracking.ErrNoNextAction):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, tracking.ErrActionNotAllowed):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		case errors.Is(err, tracking.ErrInvalidOrderID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		case errors.Is(err, tracking.ErrStale):
			// The action went through; only the follow-up refresh lost.
			cur, _ := h.queue.Current()
			writeJSON(w, http.StatusOK, toQueueResponse(cur, ""))
		case errors.As(err, &sd):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": sd.ServerDetail()})
		default:
			h.log.Warn("advance order", zap.Int64("order_id", orderID), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "order service unavailable"})
		}
		return
	}
	writeJSON(w, http.StatusOK, toQueueResponse(qv, ""))
}

func (h *AdminHandler) boardStatus(orderID int64) string {
	qv, ok := h.queue.Current()
	if !ok {
		return ""
	}
	for status, views := range qv.ByStatus {
		for _, v := range views {
			if v.OrderID == orderID {
				return status
			}
		}
	}
	return ""
}
