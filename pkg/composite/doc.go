// Package composite applies groups and clones as a whole.
//
// ApplyWhole renders a group with all of its children, and the clone
// wrapping it, into a single replace-group command. Element ids the
// cluster already knows are reused so that the CIB does not churn. Removal
// cascades from the child constraints to the group; removed resources are
// purged once the cluster stops reporting them.
package composite
