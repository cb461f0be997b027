package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/remediation"
	"go.uber.org/zap"
)

// Remediator runs one remediation for a decoded failure notification.
type Remediator interface {
	Fix(ctx context.Context, p remediation.Payload) (remediation.Result, error)
}

// FixHandler handles workflow failure notifications
type FixHandler struct {
	remediator   Remediator
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewFixHandler creates a new fix handler
func NewFixHandler(remediator Remediator, maxBodyBytes int64, logger *zap.Logger) *FixHandler {
	return &FixHandler{
		remediator:   remediator,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// FixWorkflow handles POST /fix-workflow. Agent failures are still answered
// with 200 and success=false in the body.
func (h *FixHandler) FixWorkflow(w http.ResponseWriter, r *http.Request) {
	var payload remediation.Payload
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Debug("Rejected malformed body", zap.Error(err))
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.remediator.Fix(r.Context(), payload)
	if err != nil {
		if errors.Is(err, remediation.ErrMissingWorkflowData) {
			sendError(w, "Missing workflow data", http.StatusBadRequest)
			return
		}
		h.logger.Error("Remediation failed", zap.Error(err))
		sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
