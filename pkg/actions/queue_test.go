package actions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue(Config{})
	q.Start()
	t.Cleanup(q.Stop)
	return q
}

func TestQueueRunsInOrder(t *testing.T) {
	q := newStartedQueue(t)

	var mu sync.Mutex
	var order []int
	var last *Action
	for i := 0; i < 5; i++ {
		i := i
		a, err := q.Submit(context.Background(), "step", func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
		last = a
	}

	require.NoError(t, last.Wait())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestActionIDsAreUnique(t *testing.T) {
	q := newStartedQueue(t)
	noop := func(ctx context.Context) error { return nil }

	a, err := q.Submit(context.Background(), "a", noop)
	require.NoError(t, err)
	b, err := q.Submit(context.Background(), "b", noop)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestActionError(t *testing.T) {
	q := newStartedQueue(t)
	boom := errors.New("boom")

	var failed *Action
	failures := make(chan struct{}, 1)
	q.OnFailure(func(a *Action, err error) {
		failed = a
		failures <- struct{}{}
	})

	a, err := q.Submit(context.Background(), "apply", func(ctx context.Context) error { return boom })
	require.NoError(t, err)
	assert.ErrorIs(t, a.Wait(), boom)

	<-failures
	assert.Same(t, a, failed)
}

func TestCancelBeforeStart(t *testing.T) {
	q := newStartedQueue(t)

	release := make(chan struct{})
	blocker, err := q.Submit(context.Background(), "blocker", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ran := false
	a, err := q.Submit(context.Background(), "cancelled", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	a.Cancel()
	close(release)

	require.NoError(t, blocker.Wait())
	assert.ErrorIs(t, a.Wait(), context.Canceled)
	assert.False(t, ran)
}

func TestCancelRunning(t *testing.T) {
	q := newStartedQueue(t)

	started := make(chan struct{})
	a, err := q.Submit(context.Background(), "long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	<-started
	a.Cancel()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("running action not cancelled")
	}
	assert.ErrorIs(t, a.Wait(), context.Canceled)
}

func TestSubmitAfterStop(t *testing.T) {
	q := NewQueue(Config{Capacity: 1})
	q.Start()
	q.Stop()

	_, err := q.Submit(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestStopFailsWaitingActions(t *testing.T) {
	q := NewQueue(Config{})
	a, err := q.Submit(context.Background(), "never", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	q.Stop()
	assert.ErrorIs(t, a.Wait(), ErrQueueClosed)
}
