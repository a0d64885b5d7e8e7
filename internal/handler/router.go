package handler

import (
	"net/http"
	"time"

	"rally-api/internal/container"
	"rally-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every route onto a chi router
func NewRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	authService := c.GetAuthService()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	if c.Metrics != nil {
		r.Use(middleware.Metrics(c.Metrics))
	}
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	healthHandler := NewHealthHandler(c)
	captureHandler := NewCaptureHandler(c.Services.Captures, log)
	rallyHandler := NewRallyHandler(c.Services.Rallies, log)
	reportHandler := NewReportHandler(c.Services.Reports, c.Services.Crowns, log)

	r.Get("/health", healthHandler.Check)
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints, personalised when a token is sent
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(authService, log))

			r.Get("/events/{eventId}/feed", rallyHandler.GetFeed)
			r.Get("/captures/{captureId}", captureHandler.GetCapture)
			r.Get("/leaderboard/season", reportHandler.SeasonLeaderboard)
		})

		// Fan endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService, log))

			r.Post("/events/{eventId}/captures", captureHandler.PostCapture)
			r.Post("/captures/{captureId}/rally", rallyHandler.CastRally)
			r.Post("/captures/{captureId}/report", captureHandler.ReportCapture)
			r.Get("/me/points", reportHandler.PointsSummary)
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(authService, log))
			r.Use(middleware.RequireAdmin(log))

			r.Post("/events/{eventId}/crown", reportHandler.CrownMomentOfGame)
			r.Get("/attribution", reportHandler.Attribution)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"type": "not_found", "message": "Endpoint not found"},
		})
	})

	log.Info("Router configured successfully")
	return r
}
