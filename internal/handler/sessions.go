package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pizzeria-pos/storefront/internal/auth"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/session"
	"go.uber.org/zap"
)

// SessionOpener opens a session and loads its catalog.
// Satisfied by *session.Store; narrow interface for testability.
type SessionOpener interface {
	Create(ctx context.Context, surface string) (*session.Session, error)
}

// SessionHandler opens storefront sessions.
type SessionHandler struct {
	store  SessionOpener
	secret string
	log    *zap.Logger
}

func NewSessionHandler(store SessionOpener, secret string, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{store: store, secret: secret, log: log}
}

// RegisterRoutes registers session endpoints on the given Chi router.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.Open)
}

type openSessionRequest struct {
	Surface string `json:"surface"`
}

type sessionResponse struct {
	SessionID    string `json:"session_id"`
	Token        string `json:"token"`
	Surface      string `json:"surface"`
	CatalogError string `json:"catalog_error,omitempty"`
}

// Open handles POST /sessions. The body is optional; the default surface is
// customer. A catalog load failure still opens the session and is reported
// in catalog_error.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Surface == "" {
		req.Surface = enum.SurfaceCustomer
	}
	if !enum.IsValidSurface(req.Surface) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "surface must be customer or admin"})
		return
	}

	sess, err := h.store.Create(r.Context(), req.Surface)
	resp := sessionResponse{}
	if err != nil {
		var loadErr *catalog.LoadError
		if sess == nil || !errors.As(err, &loadErr) {
			h.log.Error("open session", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		h.log.Warn("session opened without catalog", zap.Error(err))
		resp.CatalogError = loadErr.Error()
	}

	token, err := auth.GenerateToken(h.secret, sess.ID, sess.Surface)
	if err != nil {
		h.log.Error("sign session token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp.SessionID = sess.ID.String()
	resp.Token = token
	resp.Surface = sess.Surface
	writeJSON(w, http.StatusCreated, resp)
}
