package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedChecker struct {
	name   string
	status health.CheckStatus
}

func (c fixedChecker) Name() string           { return c.name }
func (c fixedChecker) IsCritical() bool       { return true }
func (c fixedChecker) Timeout() time.Duration { return time.Second }
func (c fixedChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: c.status}
}

func newHealthHandler(t *testing.T, checkers ...health.Checker) *HealthHandler {
	logger := zaptest.NewLogger(t)
	m := health.NewManager(logger)
	for _, c := range checkers {
		require.NoError(t, m.RegisterChecker(c))
	}
	h := NewHealthHandler(m, "claude-n8n-bridge", logger)
	h.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 5000000, time.UTC) }
	return h
}

func TestHealth_Liveness(t *testing.T) {
	// Liveness stays ok even when readiness would fail.
	h := newHealthHandler(t, fixedChecker{name: "agent_binary", status: health.StatusUnhealthy})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2026-10-16T09:00:00.005Z","service":"claude-n8n-bridge"}`, rec.Body.String())
}

func TestHealth_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		status health.CheckStatus
		code   int
		body   string
	}{
		{"ready", health.StatusHealthy, http.StatusOK, "ready"},
		{"not ready", health.StatusUnhealthy, http.StatusServiceUnavailable, "not ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthHandler(t, fixedChecker{name: "agent_binary", status: tt.status})

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.body, decodeBody(t, rec)["status"])
		})
	}
}

func TestHealth_Detailed(t *testing.T) {
	h := newHealthHandler(t,
		fixedChecker{name: "agent_binary", status: health.StatusHealthy},
		fixedChecker{name: "scratch_dir", status: health.StatusUnhealthy},
	)

	rec := httptest.NewRecorder()
	h.Detailed(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	components, ok := body["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, components, "agent_binary")
	assert.Contains(t, components, "scratch_dir")
}
