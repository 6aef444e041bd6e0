package status

import (
	"sync"

	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rs/zerolog"
)

// Holder owns the current cluster status snapshot. Snapshots are replaced
// wholesale; readers keep using the snapshot they fetched.
//
// The coarse locks serialise computing dry-run data against committing
// real changes, since both work on the same snapshot. The constraint
// reconciler holds no lock of its own and relies on its caller holding one
// of these.
type Holder struct {
	mu          sync.RWMutex
	current     *Snapshot
	generation  uint64
	subscribers []chan *Snapshot

	clStatusLock   sync.Mutex
	ptestLock      sync.Mutex
	drbdStatusLock sync.Mutex

	logger zerolog.Logger
}

var _ Source = (*Holder)(nil)

// NewHolder creates a holder with no snapshot
func NewHolder() *Holder {
	return &Holder{logger: log.WithComponent("status")}
}

// Current returns the current snapshot, nil before the first refresh
func (h *Holder) Current() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// View returns the current snapshot as a View, or nil before the first
// refresh.
func (h *Holder) View() View {
	if s := h.Current(); s != nil {
		return s
	}
	return nil
}

// Generation returns how many snapshots were swapped in so far
func (h *Holder) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}

// Swap installs s as the current snapshot, notifies subscribers and
// returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	h.mu.Lock()
	old := h.current
	h.current = s
	h.generation++
	subs := append([]chan *Snapshot(nil), h.subscribers...)
	gen := h.generation
	h.mu.Unlock()

	h.logger.Debug().Uint64("generation", gen).Msg("cluster status swapped")

	for _, ch := range subs {
		// Only the newest snapshot matters to a slow subscriber.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
	return old
}

// Subscribe returns a channel receiving every swapped-in snapshot. A slow
// subscriber only sees the latest one.
func (h *Holder) Subscribe() <-chan *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan *Snapshot, 1)
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// LockClStatus acquires the cluster status lock
func (h *Holder) LockClStatus() {
	h.clStatusLock.Lock()
}

// UnlockClStatus releases the cluster status lock
func (h *Holder) UnlockClStatus() {
	h.clStatusLock.Unlock()
}

// LockPtest acquires the dry-run lock
func (h *Holder) LockPtest() {
	h.ptestLock.Lock()
}

// UnlockPtest releases the dry-run lock
func (h *Holder) UnlockPtest() {
	h.ptestLock.Unlock()
}

// LockDrbdStatus acquires the DRBD status lock
func (h *Holder) LockDrbdStatus() {
	h.drbdStatusLock.Lock()
}

// UnlockDrbdStatus releases the DRBD status lock
func (h *Holder) UnlockDrbdStatus() {
	h.drbdStatusLock.Unlock()
}
