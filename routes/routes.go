package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/aeonforge/generation-engine/app"
	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(propagateRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.With(chimiddleware.Timeout(30 * time.Second)).
			Get("/models", deps.ModelsHandler.HandleListModels)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			// One-shot generation is bounded; streaming must outlive any
			// fixed request timeout, so no Timeout middleware there.
			r.With(chimiddleware.Timeout(120 * time.Second)).
				Post("/chat", deps.ChatHandler.HandleChat)
			r.Post("/chat/stream", deps.StreamHandler.HandleStream)
			r.With(chimiddleware.Timeout(30 * time.Second)).
				Get("/usage", deps.UsageHandler.HandleUsage)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// propagateRequestID copies the router-assigned request id into the
// application context key the handlers and middleware log from
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = middleware.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
