package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks which connections watch which channels and fans events out to
// them. It is broadcast-only: it never originates business decisions, and a
// slow or dead connection is dropped rather than retried.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[*Client]struct{}),
		log:      log.With(zap.String("component", "realtime_hub")),
	}
}

func (h *Hub) Subscribe(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.channels[channel]
	if !ok {
		clients = make(map[*Client]struct{})
		h.channels[channel] = clients
	}
	clients[c] = struct{}{}

	h.log.Debug("Client subscribed",
		zap.String("channel", channel),
		zap.Int("subscribers", len(clients)),
	)
}

func (h *Hub) Unsubscribe(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(channel, c)
}

// Detach removes the client from every channel it joined. Called when the
// connection closes.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channel := range h.channels {
		h.removeLocked(channel, c)
	}
}

func (h *Hub) removeLocked(channel string, c *Client) {
	clients, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.channels, channel)
	}
}

// Deliver pushes the event to every connection subscribed to the channel.
// A connection whose send buffer is full is dropped; it will reconcile by
// re-fetching state when it reconnects.
func (h *Hub) Deliver(channel string, event Event) {
	h.mu.RLock()
	var stale []*Client
	for c := range h.channels[channel] {
		select {
		case c.send <- event:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	// Detach before closing the send channel so no concurrent Deliver can
	// still reach the client.
	for _, c := range stale {
		h.log.Warn("Dropping slow realtime client", zap.String("channel", channel))
		h.Detach(c)
		c.close()
	}
}

// SubscriberCount reports how many connections watch a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
