package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pizzeria-pos/storefront/internal/config"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/handler"
	mw "github.com/pizzeria-pos/storefront/internal/middleware"
	"github.com/pizzeria-pos/storefront/internal/session"
	"github.com/pizzeria-pos/storefront/internal/ws"
	"go.uber.org/zap"
)

// Deps are the long-lived services the routes are wired to.
type Deps struct {
	Sessions *session.Store
	Hub      *ws.Hub
	Customer handler.OrderProjector
	Admin    handler.OrderProjector
	Queue    handler.QueueService
	QR       handler.QRGenerator
	Log      *zap.Logger
}

// New creates a Chi router with all storefront routes wired up.
// Session routes require a token and a live session; admin routes also
// require the admin surface.
func New(cfg *config.Config, d Deps) chi.Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler.NewSessionHandler(d.Sessions, cfg.SessionSecret, log).RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/tracking", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.SessionSecret, d.Sessions, w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.SessionSecret))
		r.Use(mw.RequireSession(d.Sessions))

		handler.NewMenuHandler(log).RegisterRoutes(r)
		handler.NewCartHandler().RegisterRoutes(r)
		handler.NewCheckoutHandler(cfg.PublicURL, log).RegisterRoutes(r)
		handler.NewTrackingHandler(d.Customer, d.Admin, d.QR, log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSurface(enum.SurfaceAdmin))
			handler.NewAdminHandler(d.Queue, log).RegisterRoutes(r)
		})
	})

	log.Info("router initialized")
	return r
}
