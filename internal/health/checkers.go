package health

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// AgentBinaryChecker verifies the agent executable can be resolved.
type AgentBinaryChecker struct {
	binary string
}

func NewAgentBinaryChecker(binary string) *AgentBinaryChecker {
	return &AgentBinaryChecker{binary: binary}
}

func (c *AgentBinaryChecker) Name() string           { return "agent_binary" }
func (c *AgentBinaryChecker) IsCritical() bool       { return true }
func (c *AgentBinaryChecker) Timeout() time.Duration { return time.Second }

func (c *AgentBinaryChecker) Check(ctx context.Context) CheckResult {
	return withContext(ctx, c.check)
}

func (c *AgentBinaryChecker) check() CheckResult {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "agent binary not found",
			Error:   err.Error(),
			Details: map[string]interface{}{"binary": c.binary},
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "agent binary available",
		Details: map[string]interface{}{"path": path},
	}
}

// ScratchDirChecker verifies scratch files can be created in dir.
type ScratchDirChecker struct {
	dir string
}

func NewScratchDirChecker(dir string) *ScratchDirChecker {
	return &ScratchDirChecker{dir: dir}
}

func (c *ScratchDirChecker) Name() string           { return "scratch_dir" }
func (c *ScratchDirChecker) IsCritical() bool       { return true }
func (c *ScratchDirChecker) Timeout() time.Duration { return 2 * time.Second }

func (c *ScratchDirChecker) Check(ctx context.Context) CheckResult {
	return withContext(ctx, c.check)
}

func (c *ScratchDirChecker) check() CheckResult {
	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, ".bridge-health-*")
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "scratch dir not writable",
			Error:   err.Error(),
			Details: map[string]interface{}{"dir": dir},
		}
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		// Writable but files linger: runs still work, cleanup will not.
		return CheckResult{
			Status:  StatusDegraded,
			Message: "scratch files cannot be removed",
			Error:   err.Error(),
			Details: map[string]interface{}{"dir": dir},
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "scratch dir writable",
		Details: map[string]interface{}{"dir": dir},
	}
}

// withContext runs a blocking filesystem probe and gives up when ctx ends.
// A probe stuck on a hung mount keeps its goroutine until the call returns.
func withContext(ctx context.Context, probe func() CheckResult) CheckResult {
	done := make(chan CheckResult, 1)
	go func() { done <- probe() }()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "check did not finish in time",
			Error:   ctx.Err().Error(),
		}
	}
}
