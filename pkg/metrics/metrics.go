package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciliation metrics
	ReconcileCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loft_reconcile_cycles_total",
			Help: "Total number of reconciliation cycles by update type",
		},
		[]string{"update_type"},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loft_reconcile_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkspacesReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loft_workspaces_reconciled_total",
			Help: "Total number of workspace state updates by reported actual state",
		},
		[]string{"actual_state"},
	)

	WorkspacesReturned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loft_workspaces_returned_total",
			Help: "Total number of workspace infos returned to agents",
		},
	)

	ConfigsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loft_desired_configs_generated_total",
			Help: "Total number of desired configs generated for agents",
		},
	)

	OrphanedWorkspaces = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loft_orphaned_workspaces_total",
			Help: "Total number of workspaces found in storage but not reported by their agent",
		},
	)

	AgentErrorsReported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loft_agent_errors_reported_total",
			Help: "Total number of error details reported by agents, by error type",
		},
		[]string{"error_type"},
	)

	// API metrics
	ValidationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loft_validation_failures_total",
			Help: "Total number of reconcile requests rejected by payload validation",
		},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loft_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReconcileCyclesTotal)
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(WorkspacesReconciled)
	prometheus.MustRegister(WorkspacesReturned)
	prometheus.MustRegister(ConfigsGenerated)
	prometheus.MustRegister(OrphanedWorkspaces)
	prometheus.MustRegister(AgentErrorsReported)
	prometheus.MustRegister(ValidationFailures)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
