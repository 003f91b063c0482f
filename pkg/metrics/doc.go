/*
Package metrics exports Prometheus metrics for the Loft control plane.

All collectors are registered at init time and exposed through Handler(),
which serves the standard /metrics endpoint.

Reconciliation metrics:

	loft_reconcile_cycles_total{update_type}   - cycles by full/partial
	loft_reconcile_duration_seconds            - cycle latency histogram
	loft_workspaces_reconciled_total{actual_state}
	loft_workspaces_returned_total
	loft_desired_configs_generated_total
	loft_orphaned_workspaces_total
	loft_agent_errors_reported_total{error_type}

API metrics:

	loft_validation_failures_total
	loft_api_requests_total{route,status}

Use Timer to record durations:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconcileDuration)
*/
package metrics
