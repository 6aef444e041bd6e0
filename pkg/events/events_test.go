package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventGroupApplied, Message: "applied"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventGroupApplied, ev.Type)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNewEvent(t *testing.T) {
	a := New(EventResourcePurged, "purged", map[string]string{"resource_id": "ip_1"})
	b := New(EventResourcePurged, "purged", nil)

	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "ip_1", a.Metadata["resource_id"])
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)
}

func TestPublishAfterStop(t *testing.T) {
	b := NewBroker()
	b.Stop()
	b.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(&Event{Type: EventStatusRefreshed})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked after stop")
	}
}

func TestSubscribeFiltersTypes(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	failures := b.Subscribe(EventActionFailed)
	all := b.Subscribe()

	b.Publish(New(EventStatusRefreshed, "refreshed", nil))
	b.Publish(New(EventActionFailed, "failed", nil))

	select {
	case ev := <-failures:
		assert.Equal(t, EventActionFailed, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	for _, want := range []EventType{EventStatusRefreshed, EventActionFailed} {
		select {
		case ev := <-all:
			assert.Equal(t, want, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	select {
	case ev := <-failures:
		t.Fatalf("unexpected %s", ev.Type)
	default:
	}
}
