// Package metrics exposes Prometheus instrumentation for the
// conversation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	TurnsProcessed        *prometheus.CounterVec
	TurnFailures          prometheus.Counter
	TurnDuration          prometheus.Histogram
	EscalationsTriggered  *prometheus.CounterVec
	QueuedHandoffs        *prometheus.GaugeVec
	NotificationsSent     *prometheus.CounterVec
	ApprovalsRequested    prometheus.Counter
	ApprovalDecisions     *prometheus.CounterVec
	OracleCallDuration    *prometheus.HistogramVec
	OracleRetries         *prometheus.CounterVec
	OracleFailures        *prometheus.CounterVec
}

// New registers and returns the service metrics. Must be called once per
// process; promauto panics on duplicate registration.
func New() *Metrics {
	return &Metrics{
		TurnsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_turns_processed_total",
			Help: "Total conversation turns processed, by detected intent",
		}, []string{"intent"}),
		TurnFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helpline_turn_failures_total",
			Help: "Total turns that failed and returned the fallback apology",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpline_turn_duration_seconds",
			Help:    "Time taken to process one conversation turn",
			Buckets: prometheus.DefBuckets,
		}),
		EscalationsTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_escalations_total",
			Help: "Total escalations to a human agent, by priority",
		}, []string{"priority"}),
		QueuedHandoffs: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "helpline_queued_handoffs",
			Help: "Handoff requests currently waiting for an agent, by priority",
		}, []string{"priority"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_notifications_sent_total",
			Help: "Total agent notifications sent, by channel",
		}, []string{"channel"}),
		ApprovalsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "helpline_approvals_requested_total",
			Help: "Total responses suspended for human approval",
		}),
		ApprovalDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_approval_decisions_total",
			Help: "Total approval decisions, by outcome",
		}, []string{"outcome"}),
		OracleCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpline_oracle_call_duration_seconds",
			Help:    "Time taken for model calls, by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		OracleRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_oracle_retries_total",
			Help: "Total model call retries, by operation",
		}, []string{"op"}),
		OracleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "helpline_oracle_failures_total",
			Help: "Total model calls that failed after retry, by operation",
		}, []string{"op"}),
	}
}
