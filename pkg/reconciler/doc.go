/*
Package reconciler keeps the session consistent with the cluster status.

A cycle runs whenever a new status snapshot is swapped in and on a fixed
interval (DefaultInterval, 10 seconds):

	┌──────────────────────────────────────────────┐
	│        status.Holder swap  /  ticker         │
	└──────────────────────┬───────────────────────┘
	                       │ LockClStatus
	          ┌────────────┴─────────────┐
	          ▼                          ▼
	┌───────────────────┐      ┌───────────────────┐
	│ Placeholders      │      │ Removed resources │
	└─────────┬─────────┘      └─────────┬─────────┘
	          ▼                          ▼
	  SetRscSetConnectionData     purge when the
	  ResetRscSetConnectionData   status no longer
	  save, placeholder.reversed  reports them

Every resource-set connection in the snapshot is given to the placeholder
whose colocation or order id matches, including ids that were submitted but
not reported yet. Connections no placeholder owns are ignored. A placeholder
whose constraint is missing from the snapshot, and not pending, loses that
connection data. placeholder.reversed is published when data becomes
reversed.

A cycle holds the cluster status lock, so it never interleaves with a
queued commit or a dry run.

# Usage

	rec := reconciler.NewReconciler(mgr, 0)
	rec.Start()
	defer rec.Stop()

Each cycle publishes a status.refreshed event and records
lcmc_reconciliation_duration_seconds and lcmc_reconciliation_cycles_total.
*/
package reconciler
