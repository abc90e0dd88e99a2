// Package http exposes the signature and interaction use cases over HTTP.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/prometheus"
	"github.com/protwis/signprot/internal/interfaces/http/handlers"
	"github.com/protwis/signprot/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SignatureHandler   *handlers.SignatureHandler
	InteractionHandler *handlers.InteractionHandler
	HealthHandler      *handlers.HealthHandler

	Session config.SessionConfig
	Logging middleware.LoggingConfig

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging(logger.Named("http"), cfg.Logging, cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Session(cfg.Session))
		registerSignatureRoutes(api, cfg.SignatureHandler)
		registerInteractionRoutes(api, cfg.InteractionHandler)
	})
	return r
}

func registerSignatureRoutes(r chi.Router, h *handlers.SignatureHandler) {
	if h == nil {
		return
	}
	r.Route("/signature", func(sr chi.Router) {
		sr.Post("/", h.Compute)
		sr.Post("/match", h.Match)
		sr.Get("/match", h.LastMatch)
	})
}

func registerInteractionRoutes(r chi.Router, h *handlers.InteractionHandler) {
	if h == nil {
		return
	}
	r.Route("/interactions", func(ir chi.Router) {
		ir.Post("/", h.Interactions)
		ir.Get("/matrix", h.Matrix)
	})
}
