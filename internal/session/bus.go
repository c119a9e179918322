package session

import (
	"sync"

	"sentio/internal/anomaly"
	"sentio/internal/pipeline"
)

// Event is one processed frame published by the session runner.
type Event struct {
	SessionID string
	Result    *pipeline.FrameResult
	Anomalies []anomaly.Record
	// AnnotatedFrame is the overlay-rendered JPEG for display/encoding.
	AnnotatedFrame []byte
}

// EventHandler receives session events.
type EventHandler interface {
	OnSessionEvent(event *Event)
}

// Bus provides pub/sub for session events. The runner publishes, live
// consumers (websocket hub, frame writer) subscribe.
type Bus struct {
	subscribers map[*busSubscription]bool
	mu          sync.RWMutex
}

type busSubscription struct {
	channel chan *Event
	handler EventHandler
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[*busSubscription]bool)}
}

// Subscribe registers a handler for all session events.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(handler EventHandler) func() {
	sub := &busSubscription{handler: handler}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// SubscribeChannel returns a buffered channel of events and an
// unsubscribe function. Slow consumers drop events rather than stall
// the analysis loop.
func (b *Bus) SubscribeChannel(bufferSize int) (<-chan *Event, func()) {
	if bufferSize <= 0 {
		bufferSize = 10
	}

	ch := make(chan *Event, bufferSize)
	sub := &busSubscription{channel: ch}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish delivers an event to all subscribers.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.handler != nil {
			sub.handler.OnSessionEvent(event)
			continue
		}
		select {
		case sub.channel <- event:
		default:
		}
	}
}
