package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"github.com/Kocoro-lab/Shannon/go/bridge/internal/metrics"
	"go.uber.org/zap"
)

const scratchPrefix = "fix-prompt-"

// writeScratch stores task in a new file under dir and returns its path.
// The name combines a nanosecond timestamp with a random suffix so
// concurrent runs never share a file.
func writeScratch(dir, task string) (string, error) {
	pattern := fmt.Sprintf("%s%d-*.txt", scratchPrefix, time.Now().UnixNano())
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	if _, err := f.WriteString(task); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return path, nil
}

// cleanupMonitor removes scratch files and keeps track of consecutive
// removal failures. A single failure is a warning; a streak of them is
// logged as an error since it usually means the scratch dir is filling up.
type cleanupMonitor struct {
	logger      *zap.Logger
	threshold   int64
	consecutive atomic.Int64
}

func newCleanupMonitor(logger *zap.Logger, threshold int) *cleanupMonitor {
	if threshold <= 0 {
		threshold = 3
	}
	return &cleanupMonitor{logger: logger, threshold: int64(threshold)}
}

// remove deletes path. Errors are recorded and swallowed.
func (c *cleanupMonitor) remove(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		c.consecutive.Store(0)
		return
	}

	metrics.ScratchCleanupFailures.Inc()
	n := c.consecutive.Add(1)
	if n >= c.threshold {
		c.logger.Error("Scratch file cleanup keeps failing",
			zap.String("path", path),
			zap.Int64("consecutive_failures", n),
			zap.Error(err),
		)
		return
	}
	c.logger.Warn("Failed to remove scratch file",
		zap.String("path", path),
		zap.Error(err),
	)
}

func (c *cleanupMonitor) failures() int64 {
	return c.consecutive.Load()
}
