// Package bus is the process-wide publish/subscribe channel through
// which the notification engine talks to the rest of the application.
// The UI subscribes here to route deep links; the core never calls into
// UI code directly.
package bus

import "sync"

// EventKind names the events the engine publishes.
type EventKind string

const (
	// EventDelivered fires once when a notification is delivered.
	EventDelivered EventKind = "delivered"

	// EventDeliveryFailed fires once when delivery retries are exhausted.
	EventDeliveryFailed EventKind = "delivery_failed"

	// EventTapped fires when the user interacts with a notification.
	EventTapped EventKind = "tapped"
)

// Event identifies a notification and, for taps, where to navigate.
type Event struct {
	Kind           EventKind
	NotificationID string

	// DeepLink is set on tapped events when the notification carries a
	// deep-link payload.
	DeepLink string
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered channel receiving all future events.
// Slow subscribers lose events rather than blocking the engine.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if the subscriber is full to avoid blocking the engine
		}
	}
}
