package reconciler

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rasto/lcmc-sub002/pkg/events"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/manager"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/placeholder"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultInterval is the period of reconciliation when no status refresh
// triggers it earlier
const DefaultInterval = 10 * time.Second

// Reconciler brings the session in line with the latest cluster status
type Reconciler struct {
	manager  *manager.Manager
	interval time.Duration
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewReconciler creates a new reconciler. A zero interval selects
// DefaultInterval.
func NewReconciler(mgr *manager.Manager, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		manager:  mgr,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("reconciler"),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run(r.manager.Status().Subscribe())
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// run reconciles on every snapshot swap and on every tick
func (r *Reconciler) run(updates <-chan *status.Snapshot) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-updates:
		case <-ticker.C:
		case <-r.stopCh:
			return
		}
		if err := r.Reconcile(); err != nil {
			r.logger.Error().Err(err).Msg("Reconciliation failed")
		}
	}
}

// Reconcile performs one reconciliation cycle against the current
// snapshot. Without a snapshot there is nothing to do.
func (r *Reconciler) Reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	holder := r.manager.Status()
	holder.LockClStatus()
	defer holder.UnlockClStatus()

	snap := holder.Current()
	if snap == nil {
		return nil
	}

	var errs []error
	if err := r.reconcilePlaceholders(snap); err != nil {
		errs = append(errs, err)
	}
	if err := r.reconcileRemoved(snap); err != nil {
		errs = append(errs, err)
	}

	r.manager.PublishEvent(events.New(events.EventStatusRefreshed, "cluster status reconciled",
		map[string]string{"generation": strconv.FormatUint(holder.Generation(), 10)}))
	return errors.Join(errs...)
}

// reconcilePlaceholders hands every reported resource-set connection to the
// placeholder owning its constraint id, and drops connection data of
// constraints the cluster stopped reporting
func (r *Reconciler) reconcilePlaceholders(snap *status.Snapshot) error {
	phs := r.manager.Placeholders()
	touched := make(map[string]*placeholder.Placeholder)
	reportedIDs := make(map[string]bool)

	for _, d := range snap.ConnectionData() {
		reportedIDs[d.ConstraintID] = true
		owner := owning(phs, d)
		if owner == nil {
			r.logger.Debug().
				Str("constraint_id", d.ConstraintID).
				Msg("No placeholder owns resource set constraint")
			continue
		}
		wasReversed := owner.Reversed(d.Kind())
		owner.SetRscSetConnectionData(d)
		touched[owner.ID()] = owner

		if !wasReversed && owner.Reversed(d.Kind()) {
			r.manager.PublishEvent(events.New(events.EventPlaceholderReversed,
				fmt.Sprintf("%s %s reversed", d.Kind(), d.ConstraintID),
				map[string]string{
					"placeholder_id": owner.ID(),
					"constraint_id":  d.ConstraintID,
					"kind":           string(d.Kind()),
				}))
		}
	}

	var errs []error
	for _, ph := range phs {
		if ph.DropVanishedConnectionData(reportedIDs) {
			r.logger.Info().
				Str("placeholder_id", ph.ID()).
				Msg("Placeholder constraint no longer reported, connection data dropped")
			touched[ph.ID()] = ph
		}
		ph.ResetRscSetConnectionData()
		if _, ok := touched[ph.ID()]; !ok {
			continue
		}
		if err := r.manager.SavePlaceholder(ph); err != nil {
			errs = append(errs, fmt.Errorf("failed to save placeholder %s: %w", ph.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func owning(phs []*placeholder.Placeholder, d *types.ConnectionData) *placeholder.Placeholder {
	for _, ph := range phs {
		if ph.SameConstraintID(d) {
			return ph
		}
	}
	return nil
}

// reconcileRemoved purges resources marked removed once the cluster no
// longer reports them or anything they contain
func (r *Reconciler) reconcileRemoved(snap *status.Snapshot) error {
	resources, err := r.manager.ListResources()
	if err != nil {
		return fmt.Errorf("failed to list resources: %w", err)
	}

	var errs []error
	for _, rsc := range resources {
		if !rsc.IsRemoved || reported(snap, rsc) {
			continue
		}
		r.logger.Info().Str("resource_id", rsc.ID).Msg("Purging removed resource")
		if err := r.manager.PurgeResource(rsc.ID); err != nil {
			errs = append(errs, fmt.Errorf("failed to purge %s: %w", rsc.ID, err))
		}
	}
	return errors.Join(errs...)
}

func reported(snap *status.Snapshot, rsc *types.Resource) bool {
	if snap.HasResource(rsc.ID) {
		return true
	}
	for _, m := range rsc.Members() {
		if reported(snap, m) {
			return true
		}
	}
	return false
}
