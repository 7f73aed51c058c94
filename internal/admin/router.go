package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the admin router. The /api routes are only mounted once an
// admin token hash is set.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	if h.tokenHash == "" {
		return r
	}

	// Admin API (token auth)
	r.Route("/api", func(r chi.Router) {
		r.Use(h.TokenAuthMiddleware)

		// Log level management
		r.Post("/loglevel", h.HandleSetLogLevel)

		// Field rules
		r.Get("/rules", h.HandleListRules)
		r.Post("/rules", h.HandleCreateRule)
		r.Get("/rules/active", h.HandleActiveRules)
		r.Post("/rules/reload", h.HandleReloadRules)
		r.Get("/rules/{id}", h.HandleGetRule)
		r.Put("/rules/{id}", h.HandleUpdateRule)
		r.Delete("/rules/{id}", h.HandleDeleteRule)

		// Mask a posted document with the live rules
		r.Post("/preview", h.HandlePreview)
	})

	return r
}
