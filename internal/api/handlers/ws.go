package handlers

import (
	"net/http"

	"sameday-dispatch-service/internal/adapters/events"
	"sameday-dispatch-service/internal/ports"
)

// WSHandler upgrades dashboard connections onto the event hub.
type WSHandler struct {
	Hub *events.Hub
}

// Subscribe attaches the caller to a topic: the global routes feed by
// default, or one date's feed via ?date=.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	topic := ports.TopicRoutes
	if date := r.URL.Query().Get("date"); date != "" {
		topic = ports.RouteTopic(date)
	}
	h.Hub.ServeWS(w, r, topic)
}
