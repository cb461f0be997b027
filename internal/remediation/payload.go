package remediation

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrMissingWorkflowData is returned when a payload has no workflow section.
var ErrMissingWorkflowData = errors.New("missing workflow data")

const (
	DefaultExecutionID  = "N/A"
	DefaultFailedNode   = "Unknown"
	DefaultErrorMessage = "Unknown error"
)

// FlexString accepts a JSON string or number. n8n sends ids as either.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// Payload is the failure notification posted by the workflow platform.
type Payload struct {
	Workflow  *Workflow  `json:"workflow"`
	Execution *Execution `json:"execution,omitempty"`
	Trigger   *Trigger   `json:"trigger,omitempty"`
}

type Workflow struct {
	ID   FlexString `json:"id"`
	Name FlexString `json:"name"`
}

// Only the fields the bridge reads are declared; n8n sends many more in
// shapes that vary by version, and encoding/json skips undeclared keys.
type Execution struct {
	ID               FlexString `json:"id"`
	Error            *ErrorInfo `json:"error,omitempty"`
	LastNodeExecuted string     `json:"lastNodeExecuted,omitempty"`
}

type Trigger struct {
	Error *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
}

// FailureContext is the normalized description of a failed execution.
type FailureContext struct {
	WorkflowID   string
	WorkflowName string
	ExecutionID  string
	FailedNode   string
	ErrorMessage string
}

// Extract normalizes p into a FailureContext, applying fallbacks for every
// optional field. Empty values count as absent.
func Extract(p Payload) (FailureContext, error) {
	if p.Workflow == nil {
		return FailureContext{}, ErrMissingWorkflowData
	}

	fc := FailureContext{
		WorkflowID:   p.Workflow.ID.String(),
		WorkflowName: p.Workflow.Name.String(),
		ExecutionID:  DefaultExecutionID,
		FailedNode:   DefaultFailedNode,
	}

	var execMsg, triggerMsg string
	if ex := p.Execution; ex != nil {
		if ex.Error != nil {
			execMsg = ex.Error.Message
		}
		fc.FailedNode = firstNonEmpty(ex.LastNodeExecuted, DefaultFailedNode)
		fc.ExecutionID = firstNonEmpty(ex.ID.String(), DefaultExecutionID)
	}
	if p.Trigger != nil && p.Trigger.Error != nil {
		triggerMsg = p.Trigger.Error.Message
	}
	fc.ErrorMessage = firstNonEmpty(execMsg, triggerMsg, DefaultErrorMessage)
	return fc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
