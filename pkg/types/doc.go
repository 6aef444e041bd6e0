/*
Package types defines the resource model shared by the constraint reconciler,
the parameter tracker and the group/clone apply coordinator.

# Core Types

Resources:
  - Resource: a cluster-managed service unit, tagged by ResourceKind
  - ResourceKind: primitive, group, clone or placeholder
  - Preference: AND/OR semantics of a constraint placeholder

Constraints:
  - ResourceSet: ordered resource ids sharing one colocation or order
    constraint, with sequential and require-all flags
  - ConnectionData: the two resource sets of one constraint
  - ConstraintKind: colocation or order

Persistence:
  - PlaceholderState: connection data and reversal flags of a placeholder
  - JournalRecord: one committed batch of CRM commands

# Resource Kinds

Behaviour that differs per kind is dispatched with a switch on
Resource.Kind rather than through method overrides:

	switch r.Kind {
	case types.ResourceKindGroup:
	    // ordered children, order is the execution order in the CRM group
	case types.ResourceKindClone:
	    // wraps exactly one Contained resource or group
	case types.ResourceKindPlaceholder:
	    // AND/OR junction, never started by the CRM
	}

# Resource Sets

ResourceSet values obtained from a cluster status snapshot are owned by the
snapshot. Code that needs a modified set calls WithMember or Copy and works
on the copy:

	extended := live.WithMember("r3", true) // live is untouched

Sets compare structurally with Equals: the same members in any order and the
same attributes. IsSubsetOf ignores member order as well.

# Connection Data

ConnectionData pairs set1 and set2 of a constraint. Reverse swaps them and is
its own inverse. Connection data whose sets are both absent or empty
(IsEmpty) is discarded by its owner instead of being persisted.
*/
package types
