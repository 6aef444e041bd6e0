package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rasto/lcmc-sub002/pkg/crm"
	"github.com/rasto/lcmc-sub002/pkg/events"
	"github.com/rasto/lcmc-sub002/pkg/manager"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	m, err := manager.NewManager(&manager.Config{
		NodeID:  "console-1",
		DataDir: t.TempDir(),
		DCHost:  "node-a",
	}, &crm.RecordingExecutor{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown() })
	return m
}

func primitive(id string) *types.Resource {
	return &types.Resource{ID: id, Kind: types.ResourceKindPrimitive, Class: "ocf", Provider: "heartbeat", Type: "Dummy", IsNew: true}
}

func waitFor(t *testing.T, sub events.Subscriber, typ events.EventType) *events.Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
			return nil
		}
	}
}

// eventsUntil collects events up to and including the first one of typ
func eventsUntil(t *testing.T, sub events.Subscriber, typ events.EventType) []*events.Event {
	t.Helper()
	var out []*events.Event
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-sub:
			out = append(out, ev)
			if ev.Type == typ {
				return out
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
			return nil
		}
	}
}

func eventTypes(evs []*events.Event) []events.EventType {
	out := make([]events.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestReconcileWithoutStatus(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddPlaceholder("ph_1", types.PreferenceAnd)
	require.NoError(t, err)

	r := NewReconciler(m, 0)
	assert.Equal(t, DefaultInterval, r.interval)
	assert.NoError(t, r.Reconcile())

	ph, _ := m.Placeholder("ph_1")
	assert.True(t, ph.IsNew())
}

func TestReconcileReversesPendingConnection(t *testing.T) {
	m := newTestManager(t)
	sub := m.GetEventBroker().Subscribe()

	require.NoError(t, m.AddResource(primitive("r1")))
	_, err := m.AddPlaceholder("ph_5", types.PreferenceAnd)
	require.NoError(t, err)
	m.UpdateStatus(&status.Snapshot{})

	// nothing upstream: r1 goes to set2
	a, err := m.AddToPlaceholder(context.Background(), "ph_5", []string{"r1"}, nil, true, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Wait())

	ph, _ := m.Placeholder("ph_5")
	require.True(t, ph.PendingReverse(types.ConstraintColocation))

	// the cluster reports the single set as set1
	m.UpdateStatus(&status.Snapshot{
		Connections: []*types.ConnectionData{{
			Set1:         &types.ResourceSet{ID: "c5-0", RscIDs: []string{"r1"}, RequireAll: true},
			ConstraintID: "c5",
			Colocation:   true,
		}},
	})

	r := NewReconciler(m, time.Minute)
	require.NoError(t, r.Reconcile())

	col := ph.ColocationData()
	require.NotNil(t, col)
	assert.Nil(t, col.Set1)
	assert.Equal(t, []string{"r1"}, col.Set2.RscIDs)
	assert.True(t, ph.Reversed(types.ConstraintColocation))
	assert.False(t, ph.PendingReverse(types.ConstraintColocation))

	ev := waitFor(t, sub, events.EventPlaceholderReversed)
	assert.Equal(t, "ph_5", ev.Metadata["placeholder_id"])
	assert.Equal(t, "c5", ev.Metadata["constraint_id"])
	waitFor(t, sub, events.EventStatusRefreshed)

	states, err := m.ListPlaceholders()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.True(t, states[0].ReversedCol)
	assert.False(t, states[0].ReverseCol)

	// a repeated refresh keeps the reversed orientation without announcing
	// it again
	require.NoError(t, r.Reconcile())
	col = ph.ColocationData()
	assert.Nil(t, col.Set1)
	assert.Equal(t, []string{"r1"}, col.Set2.RscIDs)
	assert.True(t, ph.Reversed(types.ConstraintColocation))
	assert.NotContains(t, eventTypes(eventsUntil(t, sub, events.EventStatusRefreshed)),
		events.EventPlaceholderReversed)
}

func TestReconcileDropsVanishedConstraints(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddResource(primitive("r1")))
	require.NoError(t, m.AddResource(primitive("r2")))
	_, err := m.AddPlaceholder("ph_5", types.PreferenceAnd)
	require.NoError(t, err)
	m.UpdateStatus(&status.Snapshot{})

	a, err := m.AddToPlaceholder(context.Background(), "ph_5", []string{"r1", "r2"}, []string{"r1"}, true, true, false)
	require.NoError(t, err)
	require.NoError(t, a.Wait())

	m.UpdateStatus(&status.Snapshot{
		Connections: []*types.ConnectionData{
			{
				Set1:         &types.ResourceSet{ID: "c5-0", RscIDs: []string{"r1"}, RequireAll: true},
				Set2:         &types.ResourceSet{ID: "c5-1", RscIDs: []string{"r2"}, RequireAll: true},
				ConstraintID: "c5",
				Colocation:   true,
			},
			{
				Set1:         &types.ResourceSet{ID: "o5-0", RscIDs: []string{"r1"}, RequireAll: true},
				Set2:         &types.ResourceSet{ID: "o5-1", RscIDs: []string{"r2"}, RequireAll: true},
				ConstraintID: "o5",
			},
		},
	})
	r := NewReconciler(m, time.Minute)
	require.NoError(t, r.Reconcile())

	ph, _ := m.Placeholder("ph_5")
	require.False(t, ph.IsEmpty())
	require.Error(t, m.RemovePlaceholder("ph_5"))

	// the constraints were deleted on the cluster
	m.UpdateStatus(&status.Snapshot{})
	require.NoError(t, r.Reconcile())

	assert.True(t, ph.IsEmpty())
	assert.Nil(t, ph.ColocationData())
	assert.Nil(t, ph.OrderData())

	states, err := m.ListPlaceholders()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Nil(t, states[0].ColData)
	assert.Nil(t, states[0].OrdData)

	require.NoError(t, m.RemovePlaceholder("ph_5"))
	_, ok := m.Placeholder("ph_5")
	assert.False(t, ok)
}

func TestReconcileExcludesDryRuns(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddResource(primitive("r1")))
	require.NoError(t, m.AddResource(primitive("r2")))
	_, err := m.AddPlaceholder("ph_5", types.PreferenceAnd)
	require.NoError(t, err)
	m.UpdateStatus(&status.Snapshot{
		Connections: []*types.ConnectionData{{
			Set1:         &types.ResourceSet{ID: "c5-0", RscIDs: []string{"r1"}, RequireAll: true},
			ConstraintID: "c5",
			Colocation:   true,
		}},
	})
	a, err := m.AddToPlaceholder(context.Background(), "ph_5", []string{"r1"}, []string{"r1"}, true, false, false)
	require.NoError(t, err)
	require.NoError(t, a.Wait())

	r := NewReconciler(m, time.Minute)
	const rounds = 50
	errs := make(chan error, 2*rounds)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			errs <- r.Reconcile()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := m.PreviewPlaceholder(context.Background(), "ph_5", []string{"r2"}, nil, true, true)
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	ph, _ := m.Placeholder("ph_5")
	assert.Equal(t, []string{"r1"}, ph.ColocationData().Set1.RscIDs)
}

func TestReconcileIgnoresForeignConnections(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddPlaceholder("ph_1", types.PreferenceAnd)
	require.NoError(t, err)

	m.UpdateStatus(&status.Snapshot{
		Connections: []*types.ConnectionData{{
			Set1:         &types.ResourceSet{ID: "x-0", RscIDs: []string{"r9"}},
			ConstraintID: "col-other",
			Colocation:   true,
		}},
	})

	r := NewReconciler(m, time.Minute)
	require.NoError(t, r.Reconcile())

	ph, _ := m.Placeholder("ph_1")
	assert.True(t, ph.IsEmpty())
	assert.True(t, ph.IsNew())
}

func TestReconcilePurgesConfirmedRemovals(t *testing.T) {
	m := newTestManager(t)
	sub := m.GetEventBroker().Subscribe()

	grp := &types.Resource{ID: "grp_1", Kind: types.ResourceKindGroup, IsNew: true,
		Children: []*types.Resource{primitive("d1"), primitive("d2")}}
	require.NoError(t, m.AddResource(grp))

	a, err := m.ApplyGroup(context.Background(), "grp_1", nil, false)
	require.NoError(t, err)
	require.NoError(t, a.Wait())

	m.UpdateStatus(&status.Snapshot{Groups: map[string][]string{"grp_1": {"d1", "d2"}}})
	a, err = m.RemoveGroup(context.Background(), "grp_1", false)
	require.NoError(t, err)
	require.NoError(t, a.Wait())
	require.True(t, grp.IsRemoved)

	r := NewReconciler(m, time.Minute)

	// still reported: kept
	require.NoError(t, r.Reconcile())
	_, ok := m.Resource("grp_1")
	assert.True(t, ok)

	// only a child still reported: kept
	m.UpdateStatus(&status.Snapshot{Resources: map[string]*status.ResourceStatus{"d2": {}}})
	require.NoError(t, r.Reconcile())
	_, ok = m.Resource("grp_1")
	assert.True(t, ok)

	m.UpdateStatus(&status.Snapshot{})
	require.NoError(t, r.Reconcile())
	_, ok = m.Resource("d1")
	assert.False(t, ok)

	ev := waitFor(t, sub, events.EventResourcePurged)
	assert.Equal(t, "grp_1", ev.Metadata["resource_id"])
}

func TestStartReconcilesOnStatusSwap(t *testing.T) {
	m := newTestManager(t)
	sub := m.GetEventBroker().Subscribe()

	r := NewReconciler(m, time.Hour)
	r.Start()
	defer r.Stop()

	m.UpdateStatus(&status.Snapshot{DCHost: "node-b"})
	ev := waitFor(t, sub, events.EventStatusRefreshed)
	assert.Equal(t, "1", ev.Metadata["generation"])

	r.Stop()
	r.Stop()
}
