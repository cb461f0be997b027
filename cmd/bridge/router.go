package main

import (
	"net/http"

	"github.com/Kocoro-lab/Shannon/go/bridge/cmd/bridge/internal/handlers"
	"github.com/Kocoro-lab/Shannon/go/bridge/cmd/bridge/internal/middleware"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/auth"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/config"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/health"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// newRouter wires the HTTP surface. Only the fix endpoint and the detailed
// health report require the API key.
func newRouter(cfg config.Config, remediator handlers.Remediator, healthManager *health.Manager, logger *zap.Logger) http.Handler {
	healthHandler := handlers.NewHealthHandler(healthManager, cfg.ServiceName, logger)
	fixHandler := handlers.NewFixHandler(remediator, cfg.HTTP.MaxBodyBytes, logger)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewAPIKeyValidator(cfg.APIKey), logger).Middleware
	tracingMiddleware := middleware.NewTracingMiddleware(logger).Middleware

	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("GET /health/detailed",
		tracingMiddleware(
			authMiddleware(
				http.HandlerFunc(healthHandler.Detailed),
			),
		),
	)

	mux.Handle("POST /fix-workflow",
		tracingMiddleware(
			authMiddleware(
				http.HandlerFunc(fixHandler.FixWorkflow),
			),
		),
	)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	return otelhttp.NewHandler(mux, cfg.ServiceName)
}
