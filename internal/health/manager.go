package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager runs registered checkers on demand.
type Manager struct {
	checkers map[string]Checker
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates a new health manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		checkers: make(map[string]Checker),
		logger:   logger,
	}
}

// RegisterChecker registers a health check
func (m *Manager) RegisterChecker(checker Checker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := checker.Name()
	if name == "" {
		return fmt.Errorf("checker name cannot be empty")
	}
	if _, exists := m.checkers[name]; exists {
		return fmt.Errorf("checker %s already registered", name)
	}
	m.checkers[name] = checker

	m.logger.Info("Health checker registered",
		zap.String("checker", name),
		zap.Bool("critical", checker.IsCritical()),
		zap.Duration("timeout", checker.Timeout()),
	)
	return nil
}

// Check runs all checkers concurrently, each under its own timeout.
func (m *Manager) Check(ctx context.Context) Report {
	m.mu.RLock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	start := time.Now()
	results := make([]CheckResult, len(checkers))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = runCheck(gctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Components: make(map[string]CheckResult, len(results)),
		Timestamp:  start,
	}
	for _, r := range results {
		report.Components[r.Component] = r
	}
	report.Status, report.Ready, report.Message = summarize(results)
	report.Duration = time.Since(start)

	if !report.Ready {
		m.logger.Warn("Readiness check failed", zap.String("message", report.Message))
	}
	return report
}

func runCheck(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	start := time.Now()
	result := c.Check(checkCtx)
	result.Component = c.Name()
	result.Critical = c.IsCritical()
	result.Duration = time.Since(start)
	result.Timestamp = start
	return result
}

func summarize(results []CheckResult) (CheckStatus, bool, string) {
	if len(results) == 0 {
		return StatusHealthy, true, "no checks registered"
	}

	criticalFailures, otherFailures, degraded := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy, StatusUnknown:
			if r.Critical {
				criticalFailures++
			} else {
				otherFailures++
			}
		case StatusDegraded:
			degraded++
		}
	}

	switch {
	case criticalFailures > 0:
		return StatusUnhealthy, false, fmt.Sprintf("%d critical component(s) failing", criticalFailures)
	case otherFailures > 0 || degraded > 0:
		return StatusDegraded, true, fmt.Sprintf("%d component(s) degraded", otherFailures+degraded)
	default:
		return StatusHealthy, true, "all components healthy"
	}
}
