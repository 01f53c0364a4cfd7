// Package session is the websocket gateway: one goroutine
// pair (read/write pump) per authenticated connection, dispatching JSON
// event envelopes into the matchmaking queue and room engine. It follows a
// standard gorilla/websocket upgrade pattern (permissive CheckOrigin, one
// handler struct wiring a usecase) generalized from a single streaming
// endpoint into a long-lived, multi-event connection.
package session

import (
	"sync"

	"go.uber.org/zap"
)

// Hub is the process-wide registry of connected clients, keyed by user ID.
// A user has at most one live connection; a new connection from the same
// user replaces (and closes) the old one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub constructs an empty client registry.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Register adds c to the registry, closing and replacing any prior
// connection for the same user.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	old, exists := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()

	if exists {
		h.logger.Info("session: replacing existing connection", zap.String("user_id", c.userID))
		old.Close()
	}
}

// Unregister removes c from the registry, but only if it is still the
// client on record for that user (a stale unregister from a connection
// that was already replaced is a no-op).
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[c.userID]; ok && current == c {
		delete(h.clients, c.userID)
	}
}

// Get returns the live client for userID, if connected.
func (h *Hub) Get(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// Count reports the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
