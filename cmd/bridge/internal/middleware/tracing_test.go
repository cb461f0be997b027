package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestTracing_PropagatesIncomingID(t *testing.T) {
	cases := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"traceparent", "traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", "4bf92f3577b34da6a3ce929d0e0e4736"},
		{"x-trace-id", "X-Trace-ID", "trace-123", "trace-123"},
		{"x-request-id", "X-Request-ID", "req-456", "req-456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := NewTracingMiddleware(zaptest.NewLogger(t)).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = TraceIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set(tc.header, tc.value)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen != tc.want {
				t.Fatalf("context trace id = %q, want %q", seen, tc.want)
			}
			if got := rec.Header().Get("X-Trace-ID"); got != tc.want {
				t.Fatalf("X-Trace-ID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTracing_GeneratesID(t *testing.T) {
	h := NewTracingMiddleware(zaptest.NewLogger(t)).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Trace-ID"); len(got) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status not passed through: %d", rec.Code)
	}
}
