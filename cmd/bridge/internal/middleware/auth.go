package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/auth"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/metrics"
	"go.uber.org/zap"
)

// AuthMiddleware rejects requests that do not present the shared secret.
type AuthMiddleware struct {
	validator *auth.APIKeyValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator *auth.APIKeyValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// Middleware returns the HTTP middleware function. The body is never read
// for rejected requests.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := m.validator.Validate(r.Header)
		if !decision.Accepted {
			metrics.AuthRejections.WithLabelValues(decision.Reason).Inc()
			m.logger.Warn("Unauthorized request",
				zap.String("reason", decision.Reason),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("trace_id", TraceIDFromContext(r.Context())),
			)
			m.sendUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendUnauthorized sends an unauthorized response
func (m *AuthMiddleware) sendUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="bridge"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Invalid API key",
	})
}
