// Package notify fans events out to connected listeners. Delivery is
// best-effort: a listener that falls behind misses events.
package notify

import (
	"sync"
	"time"
)

// Event names published by the services.
const (
	EventUserVerified     = "user.verified"
	EventUserRejected     = "user.rejected"
	EventSessionStarted   = "session.started"
	EventSessionEnded     = "session.ended"
	EventSessionCancelled = "session.cancelled"
	EventAnnouncement     = "announcement"
)

// Event is one published notification.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher accepts events for fan-out. Publish never blocks.
type Publisher interface {
	Publish(event string, payload any)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(event string, payload any)

func (f PublisherFunc) Publish(event string, payload any) { f(event, payload) }

// Nop discards every event.
var Nop Publisher = PublisherFunc(func(string, any) {})

// Hub is an in-process Publisher with per-subscriber buffers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	closed bool
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]chan Event{}, now: time.Now}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers the event to every subscriber with buffer room.
func (h *Hub) Publish(event string, payload any) {
	h.publish(Event{Name: event, Payload: payload, At: h.now()})
}

// publish returns the number of subscribers that received e.
func (h *Hub) publish(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers reports the number of registered listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unregisters and closes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
