/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/requests/*    Submission, decisions, cancellation, pending queue
  /api/history       Event log queries
  /api/day-status/*  Roster overrides and previews
  /api/admin/*       Accrual, adjustments, archive
  /api/profiles/*    Roster
  /api/scenarios/*   Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. Identity arrives in trusted
  headers from the gateway in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor", "X-Actor-Role", "X-Actor-Squad"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Request workflow routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.SubmitRequest)
			r.Post("/decide", h.DecideRequest)
			r.Post("/cancel", h.CancelRequest)
			r.Get("/pending", h.ListPendingRequests)
		})

		// History routes
		r.Get("/history", h.History)

		// Day status routes
		r.Route("/day-status", func(r chi.Router) {
			r.Post("/", h.SetDayStatus)
			r.Post("/preview", h.PreviewDayStatus)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/accrual", h.RunAccrual)
			r.Post("/adjustments", h.CreateAdjustment)
			r.Post("/archive/{id}", h.ArchiveProfile)
			r.Post("/unarchive/{id}", h.UnarchiveProfile)
		})

		// Roster routes
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Get("/{id}", h.GetProfile)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
