package events

import (
	"encoding/json"
	"log"
	"sync"

	"sameday-dispatch-service/internal/ports"
)

// Hub fans lifecycle events out to websocket dashboard subscribers.
// Clients subscribe to a topic (a route date topic or the global
// routes topic); every event emitted on that topic reaches every
// subscriber. Delivery is at-least-once and best-effort: a subscriber
// with a full send buffer is dropped rather than blocking the hub.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		topics:     make(map[string]map[*Client]struct{}),
	}
}

// Run starts the hub's registration loop. Call once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			subs, ok := h.topics[client.topic]
			if !ok {
				subs = make(map[*Client]struct{})
				h.topics[client.topic] = subs
			}
			subs[client] = struct{}{}
			h.mu.Unlock()
			log.Printf("ws subscribed topic=%s clients=%d", client.topic, len(subs))

		case client := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.topics[client.topic]; ok {
				if _, ok := subs[client]; ok {
					delete(subs, client)
					close(client.send)
					if len(subs) == 0 {
						delete(h.topics, client.topic)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Emit implements ports.EventSink. Marshal failures and slow clients
// are logged and skipped; emission never blocks the caller.
func (h *Hub) Emit(topic string, event ports.Event) {
	payload, err := json.Marshal(struct {
		Topic string `json:"topic"`
		ports.Event
	}{Topic: topic, Event: event})
	if err != nil {
		log.Printf("ws emit marshal topic=%s: %v", topic, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.topics[topic] {
		select {
		case client.send <- payload:
		default:
			// Buffer full or client dead; the read pump will clean up.
			log.Printf("ws dropping event for slow client topic=%s", topic)
		}
	}
}
