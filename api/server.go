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
  /api/users/*      Users, time tracking, per-user policy, GDPR
  /api/records/*    Interval edits and breaks
  /api/breaks/*     Break removal
  /api/settings/*   System break policy

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Delete("/{id}", h.EraseUser)
			r.Get("/{id}/export", h.ExportUser)

			r.Post("/{id}/checkin", h.CheckIn)
			r.Post("/{id}/checkout", h.CheckOut)
			r.Get("/{id}/records", h.ListRecords)
			r.Get("/{id}/report", h.Report)

			r.Get("/{id}/policy", h.GetUserPolicy)
			r.Put("/{id}/policy", h.PutUserPolicy)
			r.Delete("/{id}/policy", h.DeleteUserPolicy)
			r.Get("/{id}/policy/resolved", h.GetResolvedPolicy)
		})

		// Interval routes
		r.Route("/records", func(r chi.Router) {
			r.Put("/{id}", h.EditRecord)
			r.Get("/{id}/breaks", h.ListBreaks)
			r.Post("/{id}/breaks", h.AddBreak)
		})

		// Break routes
		r.Route("/breaks", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteBreak)
		})

		// Settings routes
		r.Route("/settings", func(r chi.Router) {
			r.Get("/policy", h.GetSystemPolicy)
			r.Put("/policy", h.PutSystemPolicy)
		})
	})

	return r
}
