package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// OrderProjector renders the live state of one order.
// Satisfied by *tracking.Tracker; narrow interface for testability.
type OrderProjector interface {
	Project(ctx context.Context, orderID int64) (tracking.View, error)
	Current(orderID int64) (tracking.View, bool)
}

// QRGenerator encodes the tracking link of an order as a PNG.
type QRGenerator interface {
	Generate(orderID int64) ([]byte, error)
}

// DefaultQRGenerator links to the storefront tracking page.
type DefaultQRGenerator struct {
	BaseURL string
}

func (g DefaultQRGenerator) Generate(orderID int64) ([]byte, error) {
	return qrcode.Encode(trackingURL(g.BaseURL, orderID), qrcode.Medium, 256)
}

func trackingURL(base string, orderID int64) string {
	return fmt.Sprintf("%s/track?order=%d", strings.TrimRight(base, "/"), orderID)
}

// TrackingHandler serves order tracking views. Each surface has its own
// projector so that admin views carry the next action.
type TrackingHandler struct {
	projectors map[string]OrderProjector
	qr         QRGenerator
	log        *zap.Logger
}

func NewTrackingHandler(customer, admin OrderProjector, qr QRGenerator, log *zap.Logger) *TrackingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrackingHandler{
		projectors: map[string]OrderProjector{
			enum.SurfaceCustomer: customer,
			enum.SurfaceAdmin:    admin,
		},
		qr:  qr,
		log: log,
	}
}

// RegisterRoutes registers tracking endpoints. Expected behind Authenticate.
func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/{id}/tracking", h.Get)
	r.Get("/orders/{id}/qrcode", h.QRCode)
}

// Get handles GET /orders/{id}/tracking.
func (h *TrackingHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	orderID, ok := orderIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	p, ok := h.projectors[claims.Surface]
	if !ok || p == nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "unknown surface"})
		return
	}

	view, err := p.Project(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, tracking.ErrStale):
			// A newer request for this order won; answer with what it applied.
			if cur, ok := p.Current(orderID); ok {
				writeJSON(w, http.StatusOK, cur)
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "superseded by a newer request, retry"})
		case errors.Is(err, tracking.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, tracking.ErrInvalidOrderID):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		default:
			h.log.Warn("track order", zap.Int64("order_id", orderID), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "order service unavailable"})
		}
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// QRCode handles GET /orders/{id}/qrcode.
func (h *TrackingHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	png, err := h.qr.Generate(orderID)
	if err != nil {
		h.log.Error("generate qr code", zap.Int64("order_id", orderID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
