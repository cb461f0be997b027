package remediation

import (
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/agent"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Result is the structured outcome returned to the caller. Exactly one of
// FixApplied and FixError is set.
type Result struct {
	Success       bool    `json:"success"`
	WorkflowID    string  `json:"workflowId"`
	WorkflowName  string  `json:"workflowName"`
	ExecutionID   string  `json:"executionId"`
	FailedNode    string  `json:"failedNode"`
	OriginalError string  `json:"originalError"`
	FixApplied    *string `json:"fixApplied,omitempty"`
	FixError      *string `json:"fixError,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// NewResult maps a terminal agent outcome for fc into a Result.
func NewResult(fc FailureContext, out agent.Outcome, now time.Time) Result {
	res := Result{
		Success:       out.Succeeded(),
		WorkflowID:    fc.WorkflowID,
		WorkflowName:  fc.WorkflowName,
		ExecutionID:   fc.ExecutionID,
		FailedNode:    fc.FailedNode,
		OriginalError: fc.ErrorMessage,
		Timestamp:     FormatTimestamp(now),
	}
	if res.Success {
		output := out.Output
		res.FixApplied = &output
	} else {
		msg := out.FailureMessage()
		res.FixError = &msg
	}
	return res
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
