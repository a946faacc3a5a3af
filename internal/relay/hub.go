package relay

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is how many undelivered events a slow subscriber may lag behind
const subscriberBuffer = 32

// Hub fans pushed payloads out to every connected subscriber
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan []byte]struct{}
	logger *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[chan []byte]struct{}),
		logger: slog.Default().With("component", "relay"),
	}
}

// Subscribe registers a subscriber; call the returned func to unsubscribe
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Broadcast delivers payload to every subscriber and returns how many got it.
// A subscriber whose buffer is full misses the event rather than blocking the push.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs {
		select {
		case ch <- payload:
			delivered++
		default:
			h.logger.Warn("relay.subscriber.lagging", "dropped_bytes", len(payload))
		}
	}
	return delivered
}

// Len returns the number of connected subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
