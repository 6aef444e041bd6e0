/*
Package metrics provides Prometheus metrics for the console.

Collectors are package-level variables registered with the default registry
in init, and Handler exposes them over HTTP for `lcmc session serve`.

# Metric Families

Model:
  - lcmc_resources_total{kind,state}: resources by kind and new/created/removed
  - lcmc_placeholders_total: constraint placeholders known to the session

Reconciler:
  - lcmc_placeholder_reversals_total{kind,reason}: connection data reversals,
    reason is "pending" or "subset"
  - lcmc_rsc_set_submissions_total{test_only}: forced resource set submissions
  - lcmc_reconciliation_duration_seconds, lcmc_reconciliation_cycles_total

Apply:
  - lcmc_apply_duration_seconds{operation}
  - lcmc_validation_failures_total

CRM commands and actions:
  - lcmc_crm_commands_total{command,result}
  - lcmc_actions_total{result}, lcmc_action_queue_depth

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ApplyDuration, "apply_whole")

# Collector

Collector samples a StateSource every 15 seconds and refreshes the model
gauges. Sampling errors leave the gauges untouched.
*/
package metrics
