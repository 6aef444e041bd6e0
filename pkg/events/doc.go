/*
Package events provides an in-memory broker for console session events.

Publishers never block on slow subscribers: each subscriber has a buffer of
50 events and events that do not fit are dropped for that subscriber.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	broker.Publish(events.New(events.EventGroupApplied, "group grp_1 applied",
	    map[string]string{"group_id": "grp_1"}))
	ev := <-sub

Event types:
  - placeholder.reversed: stored connection data of a placeholder was reversed
  - rscset.submitted: placeholder resource sets were sent to the CRM
  - group.applied, group.removed: composite apply results
  - resource.purged: a removed resource disappeared from the cluster status
  - status.refreshed: a new cluster status snapshot was reconciled
  - action.failed: a queued action returned an error
*/
package events
