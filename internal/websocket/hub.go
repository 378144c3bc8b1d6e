// Package websocket pushes live updates to connected dashboards. The server
// broadcasts a notification whenever the event snapshot, the chore board, or
// the reset state changes; clients re-fetch over HTTP.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Push message types.
const (
	TypeEventsUpdated  = "events_updated"
	TypeChoresUpdated  = "chores_updated"
	TypeResetCompleted = "reset_completed"
)

// Message is a push notification broadcast to all clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// EventsUpdated signals a fresh calendar snapshot for the given window mode.
func EventsUpdated(mode string) Message {
	return Message{Type: TypeEventsUpdated, Payload: map[string]any{"mode": mode}}
}

// ChoresUpdated signals a change on the chore board.
func ChoresUpdated() Message {
	return Message{Type: TypeChoresUpdated}
}

// ResetCompleted signals that the daily chore sweep ran for the given day.
func ResetCompleted(day string) Message {
	return Message{Type: TypeResetCompleted, Payload: map[string]any{"day": day}}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the broadcaster.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
