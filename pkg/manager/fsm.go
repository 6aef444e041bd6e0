package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
	"github.com/rasto/lcmc-sub002/pkg/storage"
	"github.com/rasto/lcmc-sub002/pkg/types"
)

// Command operations
const (
	OpSaveResource      = "save_resource"
	OpDeleteResource    = "delete_resource"
	OpSavePlaceholder   = "save_placeholder"
	OpDeletePlaceholder = "delete_placeholder"
	OpAppendJournal     = "append_journal"
)

// SessionFSM implements the Raft Finite State Machine for the console
// session. It applies committed log entries to the store.
type SessionFSM struct {
	mu    sync.RWMutex
	store storage.Store
}

// NewSessionFSM creates a new FSM instance
func NewSessionFSM(store storage.Store) *SessionFSM {
	return &SessionFSM{
		store: store,
	}
}

// Command represents a state change operation in the Raft log
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Apply applies a Raft log entry to the FSM
func (f *SessionFSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpSaveResource:
		return decodeAndApply(cmd.Data, f.store.SaveResource)
	case OpDeleteResource:
		return decodeAndApply(cmd.Data, func(id *string) error {
			return f.store.DeleteResource(*id)
		})
	case OpSavePlaceholder:
		return decodeAndApply(cmd.Data, f.store.SavePlaceholder)
	case OpDeletePlaceholder:
		return decodeAndApply(cmd.Data, func(id *string) error {
			return f.store.DeletePlaceholder(*id)
		})
	case OpAppendJournal:
		return decodeAndApply(cmd.Data, f.store.AppendJournal)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Op)
	}
}

// decodeAndApply unmarshals a command payload into a fresh T and hands it
// to fn.
func decodeAndApply[T any](data json.RawMessage, fn func(*T) error) error {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return fn(v)
}

// Snapshot returns a snapshot of the FSM state
func (f *SessionFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	resources, err := f.store.ListResources()
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	placeholders, err := f.store.ListPlaceholders()
	if err != nil {
		return nil, fmt.Errorf("failed to list placeholders: %w", err)
	}

	journal, err := f.store.ListJournal()
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}

	return &SessionSnapshot{
		Resources:    resources,
		Placeholders: placeholders,
		Journal:      journal,
	}, nil
}

// Restore restores the FSM from a snapshot. The journal is append-only, so
// only records missing from the store are appended.
func (f *SessionFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snapshot SessionSnapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rsc := range snapshot.Resources {
		if err := f.store.SaveResource(rsc); err != nil {
			return fmt.Errorf("failed to restore resource: %w", err)
		}
	}

	for _, ph := range snapshot.Placeholders {
		if err := f.store.SavePlaceholder(ph); err != nil {
			return fmt.Errorf("failed to restore placeholder: %w", err)
		}
	}

	existing, err := f.store.ListJournal()
	if err != nil {
		return fmt.Errorf("failed to list journal: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, rec := range existing {
		known[rec.ID] = true
	}
	for _, rec := range snapshot.Journal {
		if known[rec.ID] {
			continue
		}
		if err := f.store.AppendJournal(rec); err != nil {
			return fmt.Errorf("failed to restore journal: %w", err)
		}
	}

	return nil
}

// SessionSnapshot represents a point-in-time snapshot of the session
type SessionSnapshot struct {
	Resources    []*types.Resource
	Placeholders []*types.PlaceholderState
	Journal      []*types.JournalRecord
}

// Persist writes the snapshot to the given SnapshotSink
func (s *SessionSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}

	return nil
}

// Release is called when we are finished with the snapshot
func (s *SessionSnapshot) Release() {}
