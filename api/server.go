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
  /api/resources/*    Resource management
  /api/projects/*     Projects, budget items, summaries, snapshots, phasing
  /api/allocations/*  Allocation lifecycle
  /api/import/*       Bulk import
  /health             Liveness check

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		// Resource routes
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Post("/", h.CreateResource)
			r.Get("/{id}", h.GetResource)
			r.Put("/{id}", h.UpdateResource)
			r.Delete("/{id}", h.DeleteResource)
			r.Get("/{id}/allocations", h.ListResourceAllocations)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/allocations", h.ListProjectAllocations)

			r.Get("/{id}/summary", h.GetSummary)
			r.Post("/{id}/recalculate", h.Recalculate)

			r.Get("/{id}/budget-items", h.ListBudgetItems)
			r.Post("/{id}/budget-items", h.AddBudgetItem)
			r.Delete("/{id}/budget-items/{itemId}", h.RemoveBudgetItem)

			r.Get("/{id}/snapshots", h.ListSnapshots)
			r.Post("/{id}/snapshots", h.TakeSnapshot)

			r.Get("/{id}/phasing", h.ListPhasing)
			r.Post("/{id}/phasing", h.UpsertPhasing)
		})

		// Allocation routes
		r.Route("/allocations", func(r chi.Router) {
			r.Get("/", h.ListAllocations)
			r.Post("/", h.CreateAllocation)
			r.Get("/{id}", h.GetAllocation)
			r.Put("/{id}", h.UpdateAllocation)
			r.Delete("/{id}", h.DeleteAllocation)
		})

		// Bulk import routes
		r.Route("/import", func(r chi.Router) {
			r.Post("/resources", h.ImportResources)
			r.Post("/projects", h.ImportProjects)
			r.Post("/allocations", h.ImportAllocations)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
