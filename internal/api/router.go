package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Archetype/internal/broker"
	"github.com/MikeSquared-Agency/Archetype/internal/config"
	"github.com/MikeSquared-Agency/Archetype/internal/hermes"
	"github.com/MikeSquared-Agency/Archetype/internal/metrics"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

func NewRouter(s store.Store, h hermes.Client, b *broker.Broker, sc *scoring.Scorer, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger, m))

	results := NewResultsHandler(s, h, sc, m, cfg.Server.AdminToken, logger)
	cat := NewCatalogHandler(s, b, cfg.Calibration.Workers, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Server.RateLimit > 0 {
				r.Use(RateLimitMiddleware(cfg.Server.RateLimit))
			}
			r.Post("/result", results.Create)
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/catalog", cat.Get)
			r.Put("/catalog", cat.Put)
			r.Post("/catalog/calibrate", cat.Calibrate)
			r.Get("/catalog/balance", cat.Balance)
			r.Get("/catalog/calibrations", cat.Calibrations)
		})
	})

	return r
}

// NewMetricsRouter serves /health and /metrics for the given gatherer.
func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
