package realtime

import (
	"log"
	"sync"
)

// Event types pushed to connected clients.
const (
	EventNewEmail      = "email:new"
	EventSnoozeExpired = "email:snooze_expired"
	EventEmailMoved    = "email:moved"
)

// Event is one message fanned out to a user's live connections.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Conn is one live client connection. Implementations must be safe for
// concurrent Send calls and should fail fast once the peer is gone.
type Conn interface {
	Send(event Event) error
	Close() error
}

// Hub is the connection registry: it owns the userID -> connections map and
// all synchronization around it. One user may hold several connections
// (multiple tabs, devices); events for a user go to all of them and never to
// anyone else's. Entries are process-local and non-durable: clients reconcile
// through the read API on reconnect.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[Conn]struct{})}
}

// Register adds a connection for the user.
func (h *Hub) Register(userID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
	log.Printf("[Hub] User %s connected (%d active)", userID, len(set))
}

// Unregister removes a connection; the user's entry disappears with its last
// connection.
func (h *Hub) Unregister(userID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// Deliver sends the event to every live connection of the user. With no
// connections registered the event is dropped. Connections that fail to
// accept the event are evicted.
func (h *Hub) Deliver(userID string, event Event) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(event); err != nil {
			log.Printf("[Hub] Dropping connection for user %s: %v", userID, err)
			h.Unregister(userID, c)
			_ = c.Close()
		}
	}
}

// ConnectionCount reports live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
