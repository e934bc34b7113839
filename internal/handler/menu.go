package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/middleware"
	"go.uber.org/zap"
)

// MenuHandler serves the session's catalog.
type MenuHandler struct {
	log *zap.Logger
}

func NewMenuHandler(log *zap.Logger) *MenuHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MenuHandler{log: log}
}

// RegisterRoutes registers menu endpoints. Expected behind RequireSession.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Get)
	r.Post("/menu/reload", h.Reload)
}

type menuEntryResponse struct {
	Index int `json:"index"`
	catalog.MenuItem
}

type menuResponse struct {
	Pizzas   []menuEntryResponse `json:"pizzas"`
	Toppings []catalog.Topping   `json:"toppings"`
}

func toMenuResponse(menu []catalog.MenuItem, toppings []catalog.Topping) menuResponse {
	entries := make([]menuEntryResponse, len(menu))
	for i, item := range menu {
		entries[i] = menuEntryResponse{Index: i, MenuItem: item}
	}
	if toppings == nil {
		toppings = []catalog.Topping{}
	}
	return menuResponse{Pizzas: entries, Toppings: toppings}
}

// Get handles GET /menu.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuResponse(sess.Menu(), sess.Toppings()))
}

// Reload handles POST /menu/reload. Pending topping selections are dropped.
func (h *MenuHandler) Reload(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	if err := sess.ReloadCatalog(r.Context()); err != nil {
		var loadErr *catalog.LoadError
		if errors.As(err, &loadErr) {
			h.log.Warn("catalog reload failed", zap.String("resource", loadErr.Resource), zap.Error(loadErr.Err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": loadErr.Error()})
			return
		}
		h.log.Error("catalog reload", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuResponse(sess.Menu(), sess.Toppings()))
}
