package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderSwap(t *testing.T) {
	h := NewHolder()
	assert.Nil(t, h.Current())
	assert.Nil(t, h.View())

	first := &Snapshot{DCHost: "node-a"}
	assert.Nil(t, h.Swap(first))
	assert.Same(t, first, h.Current())
	assert.NotNil(t, h.View())

	second := &Snapshot{DCHost: "node-b"}
	assert.Same(t, first, h.Swap(second))
	assert.Equal(t, uint64(2), h.Generation())
}

func TestHolderSubscribeKeepsLatest(t *testing.T) {
	h := NewHolder()
	ch := h.Subscribe()

	h.Swap(&Snapshot{DCHost: "node-a"})
	h.Swap(&Snapshot{DCHost: "node-b"})

	select {
	case s := <-ch:
		require.NotNil(t, s)
		assert.Equal(t, "node-b", s.DCHost)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	select {
	case s := <-ch:
		t.Fatalf("unexpected extra snapshot %v", s.DCHost)
	default:
	}
}

func TestHolderLocks(t *testing.T) {
	h := NewHolder()

	h.LockPtest()
	done := make(chan struct{})
	go func() {
		h.LockPtest()
		h.UnlockPtest()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("ptest lock acquired twice")
	case <-time.After(20 * time.Millisecond):
	}
	h.UnlockPtest()
	<-done

	h.LockClStatus()
	h.UnlockClStatus()
	h.LockDrbdStatus()
	h.UnlockDrbdStatus()
}
