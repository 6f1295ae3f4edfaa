package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Get("/settings", h.GetGroupSettings)
			r.Put("/settings", h.PutGroupSettings)
			r.Post("/scan", h.TriggerScanGroup)
		})

		r.Get("/blocklist", h.ListBlockEntries)
		r.Get("/blocklist/stats", h.GetBlocklistStats)

		r.Post("/scan", h.TriggerScanAll)
		r.Post("/sync", h.TriggerSync)

		r.Get("/queue/stats", h.GetQueueStats)
		r.Post("/queue/drain", h.TriggerDrain)

		r.Post("/applications", h.SubmitApplication)
		r.Post("/applications/cancel", h.CancelApplication)
	})

	return r
}
