// Package stream implements the in-process live subscriber registry.
// It fans freshly stored events out to every open streaming connection
// in this process; there is no replay, no buffering for late joiners,
// and no cross-process delivery.
package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/merakimiles/alerts/internal/metrics"
)

// subscriberBuffer is the per-connection frame buffer. A subscriber
// that falls this far behind starts dropping frames instead of
// blocking the broadcaster.
const subscriberBuffer = 16

// Hub maintains the set of open streaming connections and broadcasts
// serialized events to all of them, best effort.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
}

// NewHub creates an empty subscriber registry.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

// Register adds a new subscriber and returns its id together with the
// channel on which serialized events arrive.
func (h *Hub) Register() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan []byte, subscriberBuffer)
	h.subs[id] = ch
	metrics.StreamSubscribers.Set(float64(len(h.subs)))
	slog.Info("Stream subscriber registered", "subscriber_id", id, "subscribers", len(h.subs))
	return id, ch
}

// Unregister removes a subscriber. Safe to call more than once.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		metrics.StreamSubscribers.Set(float64(len(h.subs)))
		slog.Info("Stream subscriber unregistered", "subscriber_id", id, "subscribers", len(h.subs))
	}
}

// Broadcast serializes the event once and delivers it to every
// currently registered subscriber. Delivery is non-blocking: a
// subscriber whose buffer is full misses this frame, which is within
// the registry's best-effort contract.
func (h *Hub) Broadcast(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event for broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- data:
		default:
			slog.Warn("Dropping frame for slow stream subscriber", "subscriber_id", id)
		}
	}
	metrics.BroadcastsTotal.Inc()
}

// Len returns the number of currently registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
