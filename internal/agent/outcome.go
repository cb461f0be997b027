package agent

import (
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle state of a single agent run.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateSucceeded
	StateTimedOut
	StateExitedNonZero
	StateLaunchFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed_out"
	case StateExitedNonZero:
		return "exited_non_zero"
	case StateLaunchFailed:
		return "launch_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

// ErrTimeout is reported when a run exceeds its wall-clock bound.
var ErrTimeout = errors.New("agent timed out")

// ExitError is reported when the agent ran but exited with a non-zero status.
type ExitError struct {
	Code   int
	Signal string
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("agent exited with code %d (%s)", e.Code, e.Signal)
	}
	return fmt.Sprintf("agent exited with code %d", e.Code)
}

// LaunchError is reported when the agent process could not be started.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch agent: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Outcome is the terminal result of one agent run.
type Outcome struct {
	State    State
	Output   string
	ExitCode int
	Err      error
	Timeout  time.Duration
	Duration time.Duration
}

// Succeeded reports whether the run finished with exit status zero.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// FailureMessage renders a human-readable description of a failed run.
func (o Outcome) FailureMessage() string {
	switch o.State {
	case StateSucceeded:
		return ""
	case StateTimedOut:
		if o.Timeout > 0 {
			return fmt.Sprintf("%s after %s", ErrTimeout.Error(), o.Timeout)
		}
		return ErrTimeout.Error()
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return fmt.Sprintf("agent run ended in state %s", o.State)
}
