package agent

import "go.uber.org/zap"

// run tracks one agent lifecycle: Created, Running once the process has
// started, then exactly one terminal state.
type run struct {
	state  State
	logger *zap.Logger
}

func newRun(logger *zap.Logger) *run {
	return &run{state: StateCreated, logger: logger}
}

// transition moves the run to next. A terminal state is final; attempts to
// leave it are logged and ignored.
func (r *run) transition(next State) bool {
	if r.state.Terminal() {
		r.logger.Error("Ignored transition out of terminal state",
			zap.Stringer("from", r.state),
			zap.Stringer("to", next),
		)
		return false
	}
	r.logger.Debug("Agent run state changed",
		zap.Stringer("from", r.state),
		zap.Stringer("to", next),
	)
	r.state = next
	return true
}

// finish moves the run to terminal and stamps the resulting state on out.
func (r *run) finish(out Outcome, terminal State) Outcome {
	r.transition(terminal)
	out.State = r.state
	return out
}

func (r *run) launchFailed(err error) Outcome {
	return r.finish(Outcome{ExitCode: -1, Err: &LaunchError{Err: err}}, StateLaunchFailed)
}
