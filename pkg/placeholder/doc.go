/*
Package placeholder reconciles constraint placeholders with the resource-set
constraints the CRM reports.

A placeholder is an AND/OR junction. Every resource connected to it becomes a
member of one of the two resource sets of a colocation constraint (c<N>) and
an order constraint (o<N>), where N is derived from the placeholder id. The
resources the connection starts from land in set1, everything else in set2.

# Computing Sets

AddConstraintWithPlaceholder merges the requested resources into the sets
already known for the placeholder:

	out, err := ph.AddConstraintWithPlaceholder(ctx,
	    all, from, true, true, dcHost, true, false)

Live sets are looked up in the current cluster status and copied before
being extended. Colocation members are inserted at the front, order members
are appended. With force the sets are submitted through a crm.CommandSink.

# Reversal

The CRM reports a constraint with a single set as set1, even when that set
was submitted as set2. SetRscSetConnectionData corrects this in two cases:

  - a reversal is pending because the last submission had no "from"
    resources
  - the stored data already has a set2 and the reported set1 is a subset or
    a superset of it

Reversed reports whether the stored data was reversed.
*/
package placeholder
