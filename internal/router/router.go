package router

import (
	"net/http"

	"wot-clan-dashboard/internal/handler"
	"wot-clan-dashboard/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	SyncHandler    *handler.SyncHandler
	GarageHandler  *handler.GarageHandler
	AuthHandler    *handler.AuthHandler
	AdminHandler   *handler.AdminHandler
	SessionAuth    func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Session-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}
	if cfg.AuthHandler != nil {
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)
	}

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		if cfg.SessionAuth != nil {
			r.Use(cfg.SessionAuth)
		}

		if cfg.AuthHandler != nil {
			r.Post("/auth/logout", cfg.AuthHandler.Logout)
		}

		if cfg.SyncHandler != nil {
			r.Get("/sync/check", cfg.SyncHandler.Check)
			r.Get("/sync/status", cfg.SyncHandler.Status)
		}

		if cfg.GarageHandler != nil {
			r.Route("/api/v1/garage", func(r chi.Router) {
				r.Get("/", cfg.GarageHandler.List)
				r.Get("/filters", cfg.GarageHandler.Filters)
			})
		}

		// COMMANDER routes
		if cfg.AdminHandler != nil {
			r.Route("/api/v1/admin", func(r chi.Router) {
				r.Use(middleware.RequireCommander)
				r.Get("/pending", cfg.AdminHandler.Pending)
				r.Post("/promote/{user_id}", cfg.AdminHandler.Promote)
				r.Post("/rehydrate", cfg.AdminHandler.Rehydrate)
			})
		}
	})

	return r
}
