// Package api provides the HTTP ops and admin API for the dispatcher.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/api/handler"
	"github.com/alertgrid/alertgrid/internal/api/middleware"
	"github.com/alertgrid/alertgrid/internal/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Tokens      *auth.Service
	Dispatch    handler.DispatchStatus
	Settings    handler.SettingsInvalidator
	// Ready reports whether downstream dependencies are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter creates a new chi router with all ops and admin routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "alertgrid-dispatcher"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Dispatch, cfg.Ready)
	adminHandler := handler.NewAdminHandler(cfg.Dispatch, cfg.Settings, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints - health and readiness are public for probes
		r.Route("/ops", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status exposes dispatch counters; operators only
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Admin endpoints (authenticated operators) - internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireOperator)
			r.Use(middleware.RateLimitByOperator(middleware.AdminRateLimit))

			r.Route("/duplicate-detection", func(r chi.Router) {
				r.Get("/", adminHandler.GetDuplicateDetection)
				r.Put("/", adminHandler.SetDuplicateDetection)
			})
			r.Post("/settings/invalidate", adminHandler.InvalidateSettings)
		})
	})

	return r
}
