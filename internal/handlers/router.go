package handlers

import (
	"net/http"
	"time"

	_ "github.com/cardcycle/backend/docs"
	mW "github.com/cardcycle/backend/internal/middleware"
	"github.com/cardcycle/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter mounts the API routes.
func NewRouter(cycles *CycleHandler, webhooks *WebhookHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		services.SendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/users/{userID}/cycles", cycles.ListUserCycles)
		r.Post("/accounts/{accountID}/resync", cycles.Resync)
		r.Post("/accounts/{accountID}/regenerate", cycles.Regenerate)
		r.Get("/accounts/{accountID}/repair-report", cycles.GetRepairReport)
		r.Post("/webhooks/aggregator", webhooks.HandleAggregatorWebhook)
	})

	return r
}
