package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/bridge/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	DefaultBinary  = "claude"
	DefaultTimeout = 10 * time.Minute

	// drainDelay bounds how long output is still read after the agent
	// exits. It only matters for a descendant that left the process group
	// while holding stdout open.
	drainDelay = 5 * time.Second
)

// DefaultArgs lets the agent act without interactive permission prompts.
var DefaultArgs = []string{"--dangerously-skip-permissions"}

// Config defines how to launch the external agent.
type Config struct {
	Binary     string
	Args       []string
	WorkDir    string
	ScratchDir string
	Timeout    time.Duration

	// Stdout, when set, receives a live copy of the agent's stdout.
	Stdout io.Writer
	// Stderr receives the agent's stderr. Defaults to os.Stderr.
	Stderr io.Writer

	// CleanupFailureThreshold is the number of consecutive scratch removal
	// failures after which they are logged as errors.
	CleanupFailureThreshold int
}

// Runner launches one agent subprocess per Run call.
type Runner struct {
	cfg     Config
	logger  *zap.Logger
	cleanup *cleanupMonitor
}

// NewRunner creates a Runner, filling unset fields with defaults.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	// Nil args mean "unset" for any binary; an empty non-nil slice passes none.
	if cfg.Args == nil {
		cfg.Args = DefaultArgs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		cleanup: newCleanupMonitor(logger, cfg.CleanupFailureThreshold),
	}
}

// Run executes the agent once with task on its stdin and blocks until the
// run reaches a terminal state. The scratch file carrying task is removed
// before Run returns. Cancellation of ctx does not abort the run; only the
// configured timeout does.
func (r *Runner) Run(ctx context.Context, task string) Outcome {
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracing.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.binary", r.cfg.Binary),
		attribute.String("agent.timeout", r.cfg.Timeout.String()),
	)

	metrics.AgentRunsInFlight.Inc()
	defer metrics.AgentRunsInFlight.Dec()

	start := time.Now()
	out := r.execute(ctx, task)
	out.Duration = time.Since(start)
	out.Timeout = r.cfg.Timeout

	metrics.RecordAgentRun(out.State.String(), out.Duration.Seconds(), len(out.Output))
	span.SetAttributes(
		attribute.String("agent.state", out.State.String()),
		attribute.Int("agent.exit_code", out.ExitCode),
	)
	if !out.Succeeded() {
		span.SetStatus(codes.Error, out.FailureMessage())
	}
	return out
}

func (r *Runner) execute(ctx context.Context, task string) Outcome {
	rn := newRun(r.logger)

	path, err := writeScratch(r.cfg.ScratchDir, task)
	if err != nil {
		r.logger.Error("Failed to prepare agent input", zap.Error(err))
		return rn.launchFailed(err)
	}
	// Deferred calls run LIFO: stdin is closed before the file is removed.
	defer r.cleanup.remove(path)

	stdin, err := os.Open(path)
	if err != nil {
		return rn.launchFailed(fmt.Errorf("open scratch file: %w", err))
	}
	defer stdin.Close()

	var stdout outputBuffer
	stderrTail := newTailBuffer(defaultStderrTail)

	var stdoutDst io.Writer = &stdout
	if r.cfg.Stdout != nil {
		stdoutDst = io.MultiWriter(&stdout, r.cfg.Stdout)
	}
	outPipe, err := newCapture(stdoutDst)
	if err != nil {
		return rn.launchFailed(fmt.Errorf("stdout pipe: %w", err))
	}
	errPipe, err := newCapture(io.MultiWriter(r.cfg.Stderr, stderrTail))
	if err != nil {
		outPipe.abort()
		return rn.launchFailed(fmt.Errorf("stderr pipe: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.cfg.Binary, r.cfg.Args...)
	cmd.Dir = r.cfg.WorkDir
	cmd.Env = agentEnv()
	cmd.Stdin = stdin
	cmd.Stdout = outPipe.w
	cmd.Stderr = errPipe.w
	setProcessGroup(cmd)

	r.logger.Info("Spawning agent",
		zap.String("binary", r.cfg.Binary),
		zap.Strings("args", r.cfg.Args),
		zap.String("scratch_file", path),
		zap.Duration("timeout", r.cfg.Timeout),
	)
	if err := cmd.Start(); err != nil {
		outPipe.abort()
		errPipe.abort()
		r.logger.Error("Failed to launch agent", zap.String("binary", r.cfg.Binary), zap.Error(err))
		return rn.launchFailed(err)
	}
	rn.transition(StateRunning)
	outPipe.closeWriter()
	errPipe.closeWriter()

	waitErr := cmd.Wait()
	// Anything the agent left behind in its group dies with it.
	killProcessGroup(cmd)
	drained := outPipe.wait(drainDelay)
	drained = errPipe.wait(drainDelay) && drained
	if !drained {
		r.logger.Warn("Agent output pipes stayed open after exit",
			zap.Duration("drain_delay", drainDelay),
		)
	}

	out := Outcome{Output: stdout.String()}

	switch {
	case waitErr == nil:
		r.logger.Info("Agent completed successfully", zap.Int("output_bytes", len(out.Output)))
		return rn.finish(out, StateSucceeded)

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.ExitCode = -1
		out.Err = ErrTimeout
		r.logger.Warn("Agent timed out and was killed",
			zap.Duration("timeout", r.cfg.Timeout),
			zap.String("stderr_tail", stderrTail.String()),
		)
		return rn.finish(out, StateTimedOut)
	}

	exitErr := &ExitError{Code: -1}
	var execErr *exec.ExitError
	if errors.As(waitErr, &execErr) {
		exitErr.Code = execErr.ExitCode()
		if exitErr.Code < 0 {
			exitErr.Signal = execErr.Error()
		}
	} else if cmd.ProcessState != nil {
		exitErr.Code = cmd.ProcessState.ExitCode()
	}
	out.ExitCode = exitErr.Code
	out.Err = exitErr
	r.logger.Warn("Agent exited with failure",
		zap.Int("exit_code", exitErr.Code),
		zap.NamedError("wait_error", waitErr),
		zap.String("stderr_tail", stderrTail.String()),
	)
	return rn.finish(out, StateExitedNonZero)
}

// agentEnv passes the service environment through so the agent finds its
// own credentials and config.
func agentEnv() []string {
	env := os.Environ()
	if os.Getenv("HOME") == "" {
		env = append(env, "HOME=/root")
	}
	return env
}
