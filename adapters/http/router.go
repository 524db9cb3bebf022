// Package http provides the gateway's HTTP surface: router, route
// handlers, middleware and error rendering.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/adapters/idgen"
	"github.com/tb8/tb8/adapters/metrics"
	"github.com/tb8/tb8/domain/apperr"
	"github.com/tb8/tb8/ports"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // exporter mounted at MetricsPath when set
	MetricsPath    string
	IDGen          ports.IDGenerator // request IDs; UUIDv7 when nil
	RequestTimeout time.Duration     // 0 disables the per-request deadline
	Version        BuildInfo
}

// NewRouter creates the main HTTP router.
func NewRouter(transit *TransitHandler, health *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(transit, health, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(transit *TransitHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.IDGen == nil {
		cfg.IDGen = idgen.UUID{}
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(NewRequestIDMiddleware(cfg.IDGen))
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(NewCORSMiddleware())
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	// Health and system endpoints
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", NewVersionHandler(cfg.Version))
	if cfg.Metrics != nil && cfg.MetricsHandler != nil {
		r.Handle(cfg.MetricsPath, cfg.MetricsHandler)
	}

	// Transit API
	r.Get("/", transit.Root)
	r.Get("/lines", transit.Lines)
	r.Get("/lines/{id}", transit.LineByID)
	r.Get("/lines-by-mode/{mode}", transit.LinesByMode)
	r.Get("/arrivals-by-lines", transit.ArrivalsByLines)
	r.Get("/arrivals-by-station", transit.ArrivalsByStation)
	r.Get("/disruption-by-modes", transit.DisruptionsByModes)
	r.Get("/disruption-by-lines", transit.DisruptionsByLines)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, logger, apperr.NotFound("Not found: %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed: "+req.Method)
	})

	return r
}
