package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of event
type EventType string

const (
	EventPlaceholderReversed EventType = "placeholder.reversed"
	EventRscSetSubmitted     EventType = "rscset.submitted"
	EventGroupApplied        EventType = "group.applied"
	EventGroupRemoved        EventType = "group.removed"
	EventResourcePurged      EventType = "resource.purged"
	EventStatusRefreshed     EventType = "status.refreshed"
	EventActionFailed        EventType = "action.failed"
)

const (
	queueSize      = 100
	subscriberSize = 50
)

// Event represents a session event
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// New creates an event with a fresh id
func New(t EventType, message string, metadata map[string]string) *Event {
	return &Event{
		ID:       uuid.New().String(),
		Type:     t,
		Message:  message,
		Metadata: metadata,
	}
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// filter is the set of event types a subscriber wants; nil wants all
type filter map[EventType]bool

func (f filter) wants(t EventType) bool {
	return f == nil || f[t]
}

// Broker fans session events out to subscribers. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]filter

	queue    chan *Event
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		queue:       make(chan *Event, queueSize),
		stopCh:      make(chan struct{}),
		logger:      log.WithComponent("events"),
	}
}

// Start begins delivering published events
func (b *Broker) Start() {
	go func() {
		for {
			select {
			case ev := <-b.queue:
				b.deliver(ev)
			case <-b.stopCh:
				return
			}
		}
	}()
}

// Stop stops the broker. Events published afterwards are dropped.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	var f filter
	if len(types) > 0 {
		f = make(filter, len(types))
		for _, t := range types {
			f[t] = true
		}
	}

	sub := make(Subscriber, subscriberSize)
	b.mu.Lock()
	b.subscribers[sub] = f
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish queues an event, filling in a missing id and timestamp
func (b *Broker) Publish(ev *Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	select {
	case b.queue <- ev:
	case <-b.stopCh:
	}
}

func (b *Broker) deliver(ev *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, f := range b.subscribers {
		if !f.wants(ev.Type) {
			continue
		}
		select {
		case sub <- ev:
		default:
			b.logger.Debug().Str("event", string(ev.Type)).Msg("Subscriber full, event dropped")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
