// Package realtime fans live events out to the open connections of a user.
// Delivery is best-effort, per-process and in-memory: events for users with
// no live connection are dropped, nothing is queued or replayed.
package realtime

import (
	"log/slog"
	"sync"
)

type EventType string

const (
	EventMatch   EventType = "match"
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
)

// Event is a single logical push to a user.
type Event struct {
	Type    EventType
	Payload any
}

// TypingPayload is the payload shape of typing events.
type TypingPayload struct {
	FromUserID string `json:"fromUserId"`
	IsTyping   bool   `json:"isTyping"`
}

// Client is one live connection. A user may hold several at once
// (e.g. multiple open tabs).
type Client interface {
	Send(evt Event) error
}

// Hub tracks live connections per user id. All map mutations and reads are
// guarded by the mutex; request handlers call into the hub concurrently.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[Client]struct{}),
		logger:  logger,
	}
}

// Register adds a connection to the user's set, creating the set if absent,
// then sends a harmless "typing: false" probe so connection-level write
// errors surface immediately rather than on the first real event.
func (h *Hub) Register(userID string, c Client) {
	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	total := len(set)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("realtime client registered", "user_id", userID, "connections", total)
	}

	probe := Event{Type: EventTyping, Payload: TypingPayload{FromUserID: "", IsTyping: false}}
	if err := c.Send(probe); err != nil {
		h.Remove(userID, c)
	}
}

// Remove detaches a connection and prunes the user's entry once its set is
// empty. Safe to call when the user or connection is already gone.
func (h *Hub) Remove(userID string, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[userID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// EmitToUser pushes an event to every live connection of a user. With zero
// connections the event is silently dropped. Connections that fail to write
// are detached; the next transport teardown would remove them anyway.
func (h *Hub) EmitToUser(userID string, evt Event) {
	h.mu.RLock()
	set, ok := h.clients[userID]
	if !ok || len(set) == 0 {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]Client, 0, len(set))
	for c := range set {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.Send(evt); err != nil {
			if h.logger != nil {
				h.logger.Debug("realtime send failed, dropping client", "user_id", userID, "err", err)
			}
			h.Remove(userID, c)
		}
	}
}

// ClientCount returns how many live connections a user currently holds.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
