package handlers

import (
	"net/http"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/health"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/remediation"
	"go.uber.org/zap"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	manager *health.Manager
	service string
	logger  *zap.Logger
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *health.Manager, service string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		manager: manager,
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// ReadinessResponse summarizes the readiness checks.
type ReadinessResponse struct {
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health. It is unauthenticated and never runs checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: remediation.FormatTimestamp(h.now()),
		Service:   h.service,
	})
}

// Readiness handles GET /health/ready
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	report := h.manager.Check(r.Context())

	resp := ReadinessResponse{
		Status:    "ready",
		Ready:     report.Ready,
		Message:   report.Message,
		Timestamp: remediation.FormatTimestamp(h.now()),
	}
	code := http.StatusOK
	if !report.Ready {
		resp.Status = "not ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// Detailed handles GET /health/detailed
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	report := h.manager.Check(r.Context())

	code := http.StatusOK
	if !report.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}
