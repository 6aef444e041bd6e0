package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/rasto/lcmc-sub002/pkg/actions"
	"github.com/rasto/lcmc-sub002/pkg/composite"
	"github.com/rasto/lcmc-sub002/pkg/crm"
	"github.com/rasto/lcmc-sub002/pkg/events"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/placeholder"
	"github.com/rasto/lcmc-sub002/pkg/status"
	"github.com/rasto/lcmc-sub002/pkg/storage"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownResource is returned for resource ids the session does not know
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownPlaceholder is returned for unknown placeholder ids
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	// ErrDuplicateID is returned when an id is already in use
	ErrDuplicateID = errors.New("id already in use")
)

// Manager is one console session: the edited resources and placeholders,
// the cluster status they are reconciled against and the journal of CRM
// commands applied from here.
type Manager struct {
	nodeID   string
	bindAddr string
	dataDir  string
	dcHost   string

	raft        *raft.Raft
	fsm         *SessionFSM
	store       storage.Store
	status      *status.Holder
	crm         *crm.Client
	coordinator *composite.Coordinator
	queue       *actions.Queue
	eventBroker *events.Broker

	mu           sync.RWMutex
	resources    map[string]*types.Resource // top level only
	placeholders map[string]*placeholder.Placeholder

	logger zerolog.Logger
}

// Config holds configuration for creating a Manager
type Config struct {
	NodeID string
	// BindAddr is the raft transport address. Empty selects an in-memory
	// transport.
	BindAddr string
	DataDir  string
	// DCHost receives CRM commands until a cluster status names the DC
	DCHost string

	Composite composite.Config
	Queue     actions.Config
}

// NewManager creates a session. Persisted resources and placeholders are
// loaded from the data directory.
func NewManager(cfg *Config, exec crm.Executor) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Create BoltDB store
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	holder := status.NewHolder()
	client := crm.NewClient(exec)

	eventBroker := events.NewBroker()
	eventBroker.Start()

	queue := actions.NewQueue(cfg.Queue)

	m := &Manager{
		nodeID:       cfg.NodeID,
		bindAddr:     cfg.BindAddr,
		dataDir:      cfg.DataDir,
		dcHost:       cfg.DCHost,
		fsm:          NewSessionFSM(store),
		store:        store,
		status:       holder,
		crm:          client,
		coordinator:  composite.NewCoordinator(cfg.Composite, holder, client),
		queue:        queue,
		eventBroker:  eventBroker,
		resources:    make(map[string]*types.Resource),
		placeholders: make(map[string]*placeholder.Placeholder),
		logger:       log.WithComponent("manager"),
	}

	client.OnBatch(func(b *crm.Batch) {
		if err := m.Record(b); err != nil {
			m.logger.Error().Err(err).Str("operation", b.Operation).Msg("Failed to record CRM batch")
		}
	})
	queue.OnFailure(func(a *actions.Action, err error) {
		m.PublishEvent(events.New(events.EventActionFailed, err.Error(),
			map[string]string{"action_id": a.ID, "action": a.Name}))
	})

	if err := m.load(); err != nil {
		eventBroker.Stop()
		store.Close()
		return nil, err
	}
	queue.Start()

	return m, nil
}

func (m *Manager) load() error {
	resources, err := m.store.ListResources()
	if err != nil {
		return fmt.Errorf("failed to load resources: %w", err)
	}
	for _, rsc := range resources {
		m.resources[rsc.ID] = rsc
	}

	states, err := m.store.ListPlaceholders()
	if err != nil {
		return fmt.Errorf("failed to load placeholders: %w", err)
	}
	for _, st := range states {
		m.placeholders[st.ID] = placeholder.FromState(st, m.status, m.crm)
	}
	return nil
}

// Bootstrap initializes a single-node Raft cluster that journals the
// session. Until Bootstrap is called commands are applied to the FSM
// directly.
func (m *Manager) Bootstrap() error {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(m.nodeID)
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	config.LogOutput = log.WithComponent("raft")

	transport, err := m.transport()
	if err != nil {
		return err
	}

	// Create snapshot store
	snapshotStore, err := raft.NewFileSnapshotStore(m.dataDir, 2, config.LogOutput)
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}

	// Create log store and stable store using BoltDB
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-log.db"))
	if err != nil {
		return fmt.Errorf("failed to create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(m.dataDir, "raft-stable.db"))
	if err != nil {
		return fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(config, m.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return fmt.Errorf("failed to create raft: %w", err)
	}

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{
				ID:      config.LocalID,
				Address: transport.LocalAddr(),
			},
		},
	}

	future := r.BootstrapCluster(configuration)
	if err := future.Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
		r.Shutdown()
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}

	if err := waitForLeader(r, 5*time.Second); err != nil {
		r.Shutdown()
		return err
	}
	m.raft = r
	m.logger.Info().Str("node_id", m.nodeID).Msg("Session journal bootstrapped")
	return nil
}

func (m *Manager) transport() (raft.Transport, error) {
	if m.bindAddr == "" {
		_, transport := raft.NewInmemTransport("")
		return transport, nil
	}

	addr, err := net.ResolveTCPAddr("tcp", m.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(m.bindAddr, addr, 3, 10*time.Second, log.WithComponent("raft"))
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return transport, nil
}

func waitForLeader(r *raft.Raft, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if r.State() == raft.Leader {
			return nil
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("no raft leader after %s", timeout)
		}
	}
}

// IsLeader reports whether the session journal runs on raft and this node
// leads it
func (m *Manager) IsLeader() bool {
	return m.raft != nil && m.raft.State() == raft.Leader
}

// Apply commits cmd through raft, or straight to the FSM before Bootstrap
func (m *Manager) Apply(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	var resp interface{}
	if m.raft == nil {
		resp = m.fsm.Apply(&raft.Log{Data: data})
	} else {
		future := m.raft.Apply(data, 5*time.Second)
		if err := future.Error(); err != nil {
			return fmt.Errorf("failed to apply command: %w", err)
		}
		resp = future.Response()
	}

	if err, ok := resp.(error); ok && err != nil {
		return err
	}
	return nil
}

func (m *Manager) apply(op string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.Apply(Command{Op: op, Data: data})
}

// GetEventBroker returns the session event broker
func (m *Manager) GetEventBroker() *events.Broker {
	return m.eventBroker
}

// PublishEvent publishes an event to all subscribers
func (m *Manager) PublishEvent(event *events.Event) {
	if m.eventBroker != nil {
		m.eventBroker.Publish(event)
	}
}

// Status returns the cluster status holder
func (m *Manager) Status() *status.Holder {
	return m.status
}

// Coordinator returns the group and clone apply coordinator
func (m *Manager) Coordinator() *composite.Coordinator {
	return m.coordinator
}

// DCHost returns the host CRM commands are sent to
func (m *Manager) DCHost() string {
	if s := m.status.Current(); s != nil && s.DCHost != "" {
		return s.DCHost
	}
	return m.dcHost
}

// UpdateStatus installs a new cluster status snapshot
func (m *Manager) UpdateStatus(snap *status.Snapshot) {
	m.status.Swap(snap)
}

// Record journals one executed CRM batch
func (m *Manager) Record(b *crm.Batch) error {
	rec := &types.JournalRecord{
		ID:        uuid.New().String(),
		Host:      b.Host,
		Operation: b.Operation,
		TestOnly:  b.TestOnly,
		Commands:  b.Commands,
		Succeeded: b.Err == nil,
		CreatedAt: time.Now(),
	}
	if b.Err != nil {
		rec.Error = b.Err.Error()
	}
	return m.apply(OpAppendJournal, rec)
}

// Journal returns the recorded CRM batches in commit order
func (m *Manager) Journal() ([]*types.JournalRecord, error) {
	return m.store.ListJournal()
}

// Resource operations

// AddResource adds a top-level resource to the session
func (m *Manager) AddResource(rsc *types.Resource) error {
	if rsc == nil || rsc.ID == "" {
		return fmt.Errorf("resource without id: %w", ErrUnknownResource)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findLocked(rsc.ID) != nil {
		return fmt.Errorf("resource %s: %w", rsc.ID, ErrDuplicateID)
	}
	now := time.Now()
	if rsc.CreatedAt.IsZero() {
		rsc.CreatedAt = now
	}
	rsc.UpdatedAt = now
	if err := m.apply(OpSaveResource, rsc); err != nil {
		return err
	}
	m.resources[rsc.ID] = rsc
	return nil
}

// Resource returns the resource with id, searching group children and
// clone contents as well
func (m *Manager) Resource(id string) (*types.Resource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.findLocked(id)
	return r, r != nil
}

func (m *Manager) findLocked(id string) *types.Resource {
	var find func(rs []*types.Resource) *types.Resource
	find = func(rs []*types.Resource) *types.Resource {
		for _, r := range rs {
			if r.ID == id {
				return r
			}
			if found := find(r.Members()); found != nil {
				return found
			}
		}
		return nil
	}
	for _, r := range m.resources {
		if r.ID == id {
			return r
		}
		if found := find(r.Members()); found != nil {
			return found
		}
	}
	return nil
}

// ListResources returns the top-level resources sorted by id
func (m *Manager) ListResources() ([]*types.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveResource persists the current state of a top-level resource
func (m *Manager) SaveResource(rsc *types.Resource) error {
	rsc.UpdatedAt = time.Now()
	return m.apply(OpSaveResource, rsc)
}

// PurgeResource drops a top-level resource from the session
func (m *Manager) PurgeResource(id string) error {
	if err := m.apply(OpDeleteResource, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.resources, id)
	m.mu.Unlock()
	m.PublishEvent(events.New(events.EventResourcePurged, "resource "+id+" purged",
		map[string]string{"resource_id": id}))
	return nil
}

// Placeholder operations

// AddPlaceholder creates a placeholder. An empty id allocates the next
// free ph_<N>.
func (m *Manager) AddPlaceholder(id string, pref types.Preference) (*placeholder.Placeholder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.nextPlaceholderIDLocked()
	} else if _, ok := m.placeholders[id]; ok {
		return nil, fmt.Errorf("placeholder %s: %w", id, ErrDuplicateID)
	}

	ph := placeholder.New(id, pref, m.status, m.crm)
	if err := m.apply(OpSavePlaceholder, ph.State()); err != nil {
		return nil, err
	}
	m.placeholders[id] = ph
	return ph, nil
}

func (m *Manager) nextPlaceholderIDLocked() string {
	for n := 1; ; n++ {
		id := "ph_" + strconv.Itoa(n)
		if _, ok := m.placeholders[id]; !ok {
			return id
		}
	}
}

// Placeholder returns the placeholder with id
func (m *Manager) Placeholder(id string) (*placeholder.Placeholder, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ph, ok := m.placeholders[id]
	return ph, ok
}

// Placeholders returns all placeholders sorted by id
func (m *Manager) Placeholders() []*placeholder.Placeholder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*placeholder.Placeholder, 0, len(m.placeholders))
	for _, ph := range m.placeholders {
		out = append(out, ph)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ListPlaceholders returns the last persisted state of all placeholders
func (m *Manager) ListPlaceholders() ([]*types.PlaceholderState, error) {
	return m.store.ListPlaceholders()
}

// SavePlaceholder persists the state of ph. The caller holds the cluster
// status lock.
func (m *Manager) SavePlaceholder(ph *placeholder.Placeholder) error {
	return m.apply(OpSavePlaceholder, ph.State())
}

// RemovePlaceholder drops an empty placeholder
func (m *Manager) RemovePlaceholder(id string) error {
	ph, ok := m.Placeholder(id)
	if !ok {
		return fmt.Errorf("placeholder %s: %w", id, ErrUnknownPlaceholder)
	}
	m.status.LockClStatus()
	empty := ph.IsEmpty()
	m.status.UnlockClStatus()
	if !empty {
		return fmt.Errorf("placeholder %s still has constraints", id)
	}
	if err := m.apply(OpDeletePlaceholder, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.placeholders, id)
	m.mu.Unlock()
	return nil
}

func (m *Manager) lookup(ids []string) ([]*types.Resource, error) {
	out := make([]*types.Resource, 0, len(ids))
	for _, id := range ids {
		r, ok := m.Resource(id)
		if !ok {
			return nil, fmt.Errorf("resource %s: %w", id, ErrUnknownResource)
		}
		out = append(out, r)
	}
	return out, nil
}

// PreviewPlaceholder computes the resource sets that connecting all to
// the placeholder would produce, without submitting them
func (m *Manager) PreviewPlaceholder(ctx context.Context, phID string, all, from []string, doCol, doOrd bool) (*placeholder.Sets, error) {
	ph, ok := m.Placeholder(phID)
	if !ok {
		return nil, fmt.Errorf("placeholder %s: %w", phID, ErrUnknownPlaceholder)
	}
	servicesAll, err := m.lookup(all)
	if err != nil {
		return nil, err
	}
	servicesFrom, err := m.lookup(from)
	if err != nil {
		return nil, err
	}

	m.lockFor(true)
	defer m.unlockFor(true)
	return ph.AddConstraintWithPlaceholder(ctx, servicesAll, servicesFrom, doCol, doOrd, m.DCHost(), false, true)
}

// AddToPlaceholder queues connecting all to the placeholder and
// submitting the resulting sets. Resources in from are the upstream side.
func (m *Manager) AddToPlaceholder(ctx context.Context, phID string, all, from []string, doCol, doOrd, testOnly bool) (*actions.Action, error) {
	ph, ok := m.Placeholder(phID)
	if !ok {
		return nil, fmt.Errorf("placeholder %s: %w", phID, ErrUnknownPlaceholder)
	}
	servicesAll, err := m.lookup(all)
	if err != nil {
		return nil, err
	}
	servicesFrom, err := m.lookup(from)
	if err != nil {
		return nil, err
	}

	return m.queue.Submit(ctx, "add_to_placeholder", func(ctx context.Context) error {
		m.lockFor(testOnly)
		out, err := ph.AddConstraintWithPlaceholder(ctx, servicesAll, servicesFrom, doCol, doOrd, m.DCHost(), true, testOnly)
		st := ph.State()
		m.unlockFor(testOnly)
		if err != nil {
			return err
		}
		if out == nil {
			return fmt.Errorf("placeholder %s: no cluster status", phID)
		}
		if testOnly {
			return nil
		}
		if err := m.apply(OpSavePlaceholder, st); err != nil {
			return err
		}
		m.PublishEvent(events.New(events.EventRscSetSubmitted, "placeholder "+phID+" submitted",
			map[string]string{"placeholder_id": phID, "colocation": out.ColID, "order": out.OrdID}))
		return nil
	})
}

// lockFor takes the locks serializing dry runs or commits against the
// shared cluster status. Dry runs hold the dry-run lock and then the
// cluster status lock; nothing takes them in the other order.
func (m *Manager) lockFor(testOnly bool) {
	if testOnly {
		m.status.LockPtest()
	}
	m.status.LockClStatus()
}

func (m *Manager) unlockFor(testOnly bool) {
	m.status.UnlockClStatus()
	if testOnly {
		m.status.UnlockPtest()
	}
}

// group resolves a group and its optional wrapping clone
func (m *Manager) group(groupID string) (group, clone *types.Resource, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.resources {
		switch {
		case r.ID == groupID && r.Kind == types.ResourceKindGroup:
			return r, nil, nil
		case r.Kind == types.ResourceKindClone && r.Contained != nil && r.Contained.ID == groupID:
			return r.Contained, r, nil
		}
	}
	return nil, nil, fmt.Errorf("group %s: %w", groupID, ErrUnknownResource)
}

// top returns the persisted top-level resource of a group
func top(group, clone *types.Resource) *types.Resource {
	if clone != nil {
		return clone
	}
	return group
}

// ApplyGroup queues applying a group, and the clone wrapping it, as a
// whole. An empty newOrder keeps the current child order.
func (m *Manager) ApplyGroup(ctx context.Context, groupID string, newOrder []string, testOnly bool) (*actions.Action, error) {
	group, clone, err := m.group(groupID)
	if err != nil {
		return nil, err
	}

	return m.queue.Submit(ctx, "apply_group", func(ctx context.Context) error {
		order := newOrder
		if len(order) == 0 {
			for _, c := range group.Children {
				order = append(order, c.ID)
			}
		}

		m.lockFor(testOnly)
		err := m.coordinator.ApplyWhole(ctx, m.DCHost(), group, clone, group.IsNew, order, testOnly)
		m.unlockFor(testOnly)
		if err != nil {
			return err
		}
		if testOnly {
			return nil
		}
		if err := m.SaveResource(top(group, clone)); err != nil {
			return err
		}
		m.PublishEvent(events.New(events.EventGroupApplied, "group "+groupID+" applied",
			map[string]string{"group_id": groupID, "order": strings.Join(order, ",")}))
		return nil
	})
}

// RemoveGroup queues removing a group with its constraints. A group
// wrapped in a clone is removed together with the clone.
func (m *Manager) RemoveGroup(ctx context.Context, groupID string, testOnly bool) (*actions.Action, error) {
	group, clone, err := m.group(groupID)
	if err != nil {
		return nil, err
	}

	return m.queue.Submit(ctx, "remove_group", func(ctx context.Context) error {
		m.lockFor(testOnly)
		err := m.coordinator.RemoveGroup(ctx, m.DCHost(), group, testOnly)
		if err == nil && clone != nil {
			err = m.coordinator.RemoveClone(ctx, m.DCHost(), clone, testOnly)
		}
		m.unlockFor(testOnly)
		if err != nil {
			return err
		}
		if testOnly {
			return nil
		}

		t := top(group, clone)
		if t.IsNew {
			// never committed, nothing to wait for
			return m.PurgeResource(t.ID)
		}
		if err := m.SaveResource(t); err != nil {
			return err
		}
		m.PublishEvent(events.New(events.EventGroupRemoved, "group "+groupID+" removed",
			map[string]string{"group_id": groupID}))
		return nil
	})
}

// Connect queues creating the default colocation and order that place
// rscID with, and start it after, withID
func (m *Manager) Connect(ctx context.Context, rscID, withID string, testOnly bool) (*actions.Action, error) {
	rsc, ok := m.Resource(rscID)
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", rscID, ErrUnknownResource)
	}
	with, ok := m.Resource(withID)
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", withID, ErrUnknownResource)
	}

	return m.queue.Submit(ctx, "connect", func(ctx context.Context) error {
		m.lockFor(testOnly)
		defer m.unlockFor(testOnly)
		return m.coordinator.Connect(ctx, m.DCHost(), rsc, with, testOnly)
	})
}

// SetMaster changes the master/slave flag of a clone that was not
// committed yet
func (m *Manager) SetMaster(cloneID string, master bool) error {
	m.mu.RLock()
	clone, ok := m.resources[cloneID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("clone %s: %w", cloneID, ErrUnknownResource)
	}
	if err := composite.SetMaster(clone, master); err != nil {
		return fmt.Errorf("clone %s: %w", cloneID, err)
	}
	return m.SaveResource(clone)
}

// Shutdown stops the session
func (m *Manager) Shutdown() error {
	if m.queue != nil {
		m.queue.Stop()
	}

	// Stop event broker
	if m.eventBroker != nil {
		m.eventBroker.Stop()
	}

	if m.raft != nil {
		future := m.raft.Shutdown()
		if err := future.Error(); err != nil {
			return fmt.Errorf("failed to shutdown raft: %w", err)
		}
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}
