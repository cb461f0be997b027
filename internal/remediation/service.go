package remediation

import (
	"context"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/agent"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/util"
	"go.uber.org/zap"
)

// logPreviewRunes bounds free-form text copied into log records.
const logPreviewRunes = 300

// AgentRunner executes one agent run to a terminal outcome.
type AgentRunner interface {
	Run(ctx context.Context, task string) agent.Outcome
}

// Service composes extraction, prompt building, the agent run and result
// mapping for a single failure notification.
type Service struct {
	runner AgentRunner
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service backed by runner.
func NewService(runner AgentRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, logger: logger, now: time.Now}
}

// Fix runs one remediation for p. The only error is ErrMissingWorkflowData;
// agent failures are reported in the Result.
func (s *Service) Fix(ctx context.Context, p Payload) (Result, error) {
	fc, err := Extract(p)
	if err != nil {
		metrics.RemediationRequests.WithLabelValues("invalid_request").Inc()
		return Result{}, err
	}

	s.logger.Info("Workflow failure received",
		zap.String("workflow_id", fc.WorkflowID),
		zap.String("workflow_name", fc.WorkflowName),
		zap.String("execution_id", fc.ExecutionID),
		zap.String("failed_node", fc.FailedNode),
		zap.String("error", util.Preview(fc.ErrorMessage, logPreviewRunes)),
	)

	task := BuildTask(fc)
	out := s.runner.Run(ctx, task.String())
	res := NewResult(fc, out, s.now())

	metrics.RemediationRequests.WithLabelValues(out.State.String()).Inc()
	if res.Success {
		s.logger.Info("Agent finished remediation",
			zap.String("workflow_id", fc.WorkflowID),
			zap.Duration("duration", out.Duration),
			zap.String("output_preview", util.Preview(out.Output, logPreviewRunes)),
		)
	} else {
		s.logger.Error("Agent remediation failed",
			zap.String("workflow_id", fc.WorkflowID),
			zap.String("state", out.State.String()),
			zap.String("fix_error", *res.FixError),
			zap.Duration("duration", out.Duration),
		)
	}
	return res, nil
}
