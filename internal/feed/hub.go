package feed

import (
	"sync"

	"github.com/uistaff/invento-backend/pkg/metrics"
)

// Subscriber is one connected realtime client. Events arrive on a
// buffered channel; a subscriber that cannot keep up drops events
// rather than stalling the broadcast loop.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Hub fans change events out to every connected subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	buffer      int
	metrics     *metrics.FeedMetrics
}

// NewHub creates a hub whose subscriber channels hold up to buffer
// events.
func NewHub(buffer int, feedMetrics *metrics.FeedMetrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		buffer:      buffer,
		metrics:     feedMetrics,
	}
}

// Subscribe registers a client and returns its event channel.
func (h *Hub) Subscribe(id string) *Subscriber {
	sub := &Subscriber{
		ID:     id,
		Events: make(chan Event, h.buffer),
	}
	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()
	h.metrics.SubscriberConnected()
	return sub
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		close(sub.Events)
		h.metrics.SubscriberDisconnected()
	}
}

// Broadcast delivers the event to every subscriber that has room.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub.Events <- event:
		default:
			// Slow consumer; skip rather than block the feed.
		}
	}
}

// Len reports the connected subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
