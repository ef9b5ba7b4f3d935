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
 1. RequestID:  Unique ID per request for tracing
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. zerolog:    Structured request logging
 4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:

	/api/trainers/*       Trainer management, rate tables, weekly views
	/api/clients/*        Client management, packages, sessions, fees
	/api/scenarios/*      Demo scenarios
	/api/health           Liveness check

SECURITY NOTE:

	No authentication middleware currently. All endpoints are public.
	This server is meant to run inside the studio's private network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Trainer routes
		r.Route("/trainers", func(r chi.Router) {
			r.Get("/", h.ListTrainers)
			r.Post("/", h.CreateTrainer)
			r.Get("/{id}", h.GetTrainer)
			r.Put("/{id}/rates", h.ReplaceRates)
			r.Get("/{id}/weeks/{monday}/summary", h.GetWeeklySummary)
			r.Get("/{id}/weeks/{monday}/breakdown", h.GetWeeklyBreakdown)
			r.Get("/{id}/weeks/{monday}/clients", h.GetWeeklyClients)
		})

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
			r.Post("/{id}/packages", h.CreatePackage)
			r.Post("/{id}/sessions", h.CreateSession)
			r.Post("/{id}/latefees", h.CreateLateFee)
			r.Put("/{id}/pricing", h.UpdatePricing)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// Health reports liveness. Kept trivial on purpose: it must not touch the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger emits one structured log line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
