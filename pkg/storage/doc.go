/*
Package storage persists the console session in BoltDB.

BoltStore keeps three buckets, each entry JSON encoded:

	resources     (resource id)   resources with children and committed params
	placeholders  (placeholder id) connection data and reversal flags
	journal       (sequence)      applied CRM command batches

Save operations are upserts. Get operations return an error wrapping
ErrNotFound for unknown ids:

	rsc, err := store.GetResource("grp_1")
	if errors.Is(err, storage.ErrNotFound) {
	    // not persisted yet
	}

Journal keys are the big-endian bucket sequence, so ListJournal returns
records in the order they were appended.
*/
package storage
