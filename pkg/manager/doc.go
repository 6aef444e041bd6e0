/*
Package manager implements a console session: the resources and constraint
placeholders being edited, the cluster status they are reconciled against,
and the journal of CRM commands sent from the session.

# Architecture

	┌──────────────────────── SESSION ─────────────────────────┐
	│                                                            │
	│  ┌──────────────────────────────────────────────┐         │
	│  │                 Manager                       │         │
	│  │  - resources and placeholders in memory      │         │
	│  │  - queues user actions                        │         │
	│  └──────┬───────────────────┬───────────────────┘         │
	│         │                   │                              │
	│  ┌──────▼───────┐   ┌───────▼────────┐   ┌─────────────┐  │
	│  │ actions.Queue│   │ status.Holder  │◄──│ reconciler  │  │
	│  │ one worker   │   │ snapshot+locks │   └─────────────┘  │
	│  └──────┬───────┘   └────────────────┘                    │
	│         │                                                  │
	│  ┌──────▼──────────────────┐   ┌───────────────────────┐  │
	│  │ placeholder / composite │──►│ crm.Client (cibadmin) │  │
	│  └─────────────────────────┘   └───────────┬───────────┘  │
	│                                            │ OnBatch       │
	│  ┌─────────────────────────────────────────▼───────────┐  │
	│  │ SessionFSM (raft) ──► storage.BoltStore (lcmc.db)   │  │
	│  └─────────────────────────────────────────────────────┘  │
	└────────────────────────────────────────────────────────────┘

# Persistence

Every change to a resource, a placeholder or the journal is a Command
applied to SessionFSM. Before Bootstrap commands are applied to the FSM
directly. After Bootstrap they go through a single-node Raft log backed by
raft-boltdb, so the session can be snapshotted and replayed:

	mgr, err := manager.NewManager(&manager.Config{
	    NodeID:  "console-1",
	    DataDir: "/var/lib/lcmc",
	    DCHost:  "node-a",
	}, &crm.ShellExecutor{Prefix: []string{"ssh", "-o", "BatchMode=yes"}})
	if err != nil {
	    return err
	}
	defer mgr.Shutdown()
	if err := mgr.Bootstrap(); err != nil {
	    return err
	}

An empty BindAddr uses an in-memory Raft transport.

# Actions

AddToPlaceholder, ApplyGroup and RemoveGroup are queued on an actions.Queue
and run one at a time. Commits hold the cluster status lock. Dry runs take
the ptest lock and then the cluster status lock, so a dry run never reads
placeholder state a status refresh is writing. Each returns an *actions.Action to wait on or cancel:

	a, err := mgr.ApplyGroup(ctx, "grp_1", []string{"ip", "fs", "db"}, false)
	if err != nil {
	    return err
	}
	if err := a.Wait(); err != nil {
	    return err
	}

A failed action publishes an action.failed event. Every CRM batch, failed
or not, is appended to the journal.

# Removal

Removing a committed group deletes its constraints and the group element,
and marks the resources removed. They are purged by the reconciler once the
cluster status stops reporting them. A group that was never committed is
purged at once.
*/
package manager
