package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/cart"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/session"
)

// CartHandler handles topping selections and the cart.
type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// RegisterRoutes registers selection and cart endpoints. Expected behind
// RequireSession.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/selections/{index}", h.GetSelection)
	r.Put("/selections/{index}", h.SetSelection)

	r.Get("/cart", h.Get)
	r.Post("/cart/lines", h.AddLine)
	r.Delete("/cart/lines/{pos}", h.RemoveLine)
}

type selectionRequest struct {
	Toppings []string `json:"toppings"`
}

type selectionResponse struct {
	MenuIndex int      `json:"menu_index"`
	Toppings  []string `json:"toppings"`
}

type addLineRequest struct {
	MenuIndex *int   `json:"menu_index"`
	Size      string `json:"size"`
}

type addLineResponse struct {
	Line cart.Line           `json:"line"`
	Cart session.CartSummary `json:"cart"`
}

// GetSelection handles GET /selections/{index}.
func (h *CartHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	idx, ok := intParam(r, "index")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu index"})
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{MenuIndex: idx, Toppings: sess.ExtraToppings(idx)})
}

// SetSelection handles PUT /selections/{index}. The body replaces the whole
// set of extras for that pizza.
func (h *CartHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	idx, ok := intParam(r, "index")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu index"})
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := sess.SetExtraToppings(idx, req.Toppings); err != nil {
		if errors.Is(err, session.ErrUnknownMenuItem) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{MenuIndex: idx, Toppings: sess.ExtraToppings(idx)})
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Cart())
}

// AddLine handles POST /cart/lines.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.MenuIndex == nil || *req.MenuIndex < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menu_index is required"})
		return
	}
	if !enum.IsValidSize(req.Size) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be small, medium or large"})
		return
	}

	line, err := sess.AddToCart(*req.MenuIndex, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownMenuItem):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		case errors.Is(err, session.ErrCatalogEmpty):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "catalog not loaded, reload the menu"})
		case errors.Is(err, cart.ErrInvalidSize):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, addLineResponse{Line: line, Cart: sess.Cart()})
}

// RemoveLine handles DELETE /cart/lines/{pos}.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	pos, ok := intParam(r, "pos")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cart position"})
		return
	}

	if err := sess.RemoveFromCart(pos); err != nil {
		if errors.Is(err, cart.ErrOutOfRange) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart line not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Cart())
}
