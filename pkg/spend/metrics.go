package spend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the spend service.
type Metrics struct {
	// Policy evaluations
	policyEvaluations *prometheus.CounterVec

	// Purchase gate decisions
	purchaseChecks *prometheus.CounterVec

	// Budget usage per limit
	budgetUsage *prometheus.GaugeVec

	// Threshold crossings
	thresholdCrossings *prometheus.CounterVec

	// Workflow terminal outcomes
	workflowOutcomes *prometheus.CounterVec

	// Request latency
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered on the
// given registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		policyEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_policy_evaluations_total",
				Help: "Total number of policy rule-set evaluations",
			},
			[]string{"outcome"},
		),

		purchaseChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_purchase_checks_total",
				Help: "Total number of purchase gate decisions",
			},
			[]string{"limit_id", "result"},
		),

		budgetUsage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quaestor_budget_usage_percentage",
				Help: "Current budget usage as a percentage of the effective limit",
			},
			[]string{"limit_id"},
		),

		thresholdCrossings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_budget_threshold_crossings_total",
				Help: "Total number of budget threshold level changes",
			},
			[]string{"limit_id", "threshold"},
		),

		workflowOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_workflow_outcomes_total",
				Help: "Total number of approval workflows reaching a terminal status",
			},
			[]string{"status"},
		),

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quaestor_request_duration_seconds",
				Help:    "Duration of purchase request processing in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation records a policy evaluation outcome.
func (m *Metrics) RecordEvaluation(outcome Outcome) {
	m.policyEvaluations.WithLabelValues(string(outcome)).Inc()
}

// RecordPurchaseCheck records a purchase gate decision.
func (m *Metrics) RecordPurchaseCheck(limitID string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.purchaseChecks.WithLabelValues(limitID, result).Inc()
}

// UpdateBudgetUsage updates the usage gauge for a limit.
func (m *Metrics) UpdateBudgetUsage(limitID string, percentage float64) {
	m.budgetUsage.WithLabelValues(limitID).Set(percentage)
}

// RecordThresholdCrossing records a threshold level change.
func (m *Metrics) RecordThresholdCrossing(limitID, threshold string) {
	m.thresholdCrossings.WithLabelValues(limitID, threshold).Inc()
}

// RecordWorkflowOutcome records a workflow reaching a terminal status.
func (m *Metrics) RecordWorkflowOutcome(status string) {
	m.workflowOutcomes.WithLabelValues(status).Inc()
}

// RecordRequestDuration records the duration of an operation in seconds.
func (m *Metrics) RecordRequestDuration(operation string, seconds float64) {
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}
