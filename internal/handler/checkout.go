package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/order"
	"go.uber.org/zap"
)

// CheckoutHandler submits the session's cart.
type CheckoutHandler struct {
	publicURL string
	log       *zap.Logger
}

func NewCheckoutHandler(publicURL string, log *zap.Logger) *CheckoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{publicURL: publicURL, log: log}
}

// RegisterRoutes registers the checkout endpoint. Expected behind
// RequireSession.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

type checkoutRequest struct {
	CustomerName string `json:"customer_name"`
	StreetNumber string `json:"street_number"`
	Street       string `json:"street"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
}

type checkoutResponse struct {
	OrderID         int64  `json:"order_id"`
	Total           string `json:"total"`
	CustomerAddress string `json:"customer_address"`
	TrackingURL     string `json:"tracking_url"`
}

// Checkout handles POST /checkout. On success the cart is emptied; on any
// error it is kept so the customer can correct the form and retry.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	receipt, err := sess.Checkout(r.Context(), req.CustomerName, order.Address{
		StreetNumber: req.StreetNumber,
		Street:       req.Street,
		City:         req.City,
		PostalCode:   req.PostalCode,
	})
	if err != nil {
		var vErr *order.ValidationError
		var sErr *order.SubmissionError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Error(), "field": vErr.Field})
		case errors.As(err, &sErr) && sErr.Rejected:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": sErr.Message})
		case errors.As(err, &sErr):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": sErr.Message})
		default:
			h.log.Error("checkout", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:         receipt.OrderID,
		Total:           receipt.Total.StringFixed(2),
		CustomerAddress: string(receipt.Address),
		TrackingURL:     trackingURL(h.publicURL, receipt.OrderID),
	})
}
