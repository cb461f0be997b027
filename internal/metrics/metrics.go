package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RemediationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_remediation_requests_total",
			Help: "Total number of remediation requests by outcome",
		},
		[]string{"outcome"},
	)

	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_auth_rejections_total",
			Help: "Total number of requests rejected by the credential check",
		},
		[]string{"reason"},
	)

	// Agent run metrics
	AgentRunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_agent_runs_in_flight",
			Help: "Number of agent subprocesses currently running",
		},
	)

	AgentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_agent_run_duration_seconds",
			Help:    "Agent run wall-clock duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"state"},
	)

	AgentOutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_agent_output_bytes",
			Help:    "Size of captured agent stdout per run",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	// Scratch file metrics
	ScratchCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_scratch_cleanup_failures_total",
			Help: "Total number of scratch files that could not be removed",
		},
	)
)

// RecordAgentRun records the terminal state and duration of an agent run.
func RecordAgentRun(state string, seconds float64, outputBytes int) {
	AgentRunDuration.WithLabelValues(state).Observe(seconds)
	AgentOutputBytes.Observe(float64(outputBytes))
}
