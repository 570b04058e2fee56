// Package ws fans change notifications out to connected clients so other
// devices learn about writes without polling.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

const writeTimeout = 5 * time.Second

type client struct {
	conn     *websocket.Conn
	userID   int64
	clientID string
}

// Hub tracks open push connections per user. Broadcast skips the
// connection that originated the change, identified by its client ID,
// so writers do not get their own edits echoed back.
type Hub struct {
	log logging.Logger

	mu      sync.Mutex
	nextKey int
	clients map[int]*client
}

func NewHub(log logging.Logger) *Hub {
	return &Hub{log: log, clients: make(map[int]*client)}
}

// Add registers a connection and returns a remove function for the
// handler's defer.
func (h *Hub) Add(conn *websocket.Conn, userID int64, clientID string) (remove func()) {
	h.mu.Lock()
	key := h.nextKey
	h.nextKey++
	h.clients[key] = &client{conn: conn, userID: userID, clientID: clientID}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.clients, key)
		h.mu.Unlock()
	}
}

// Broadcast sends the event to every connection of userID except the
// one matching excludeClientID. Write failures only drop that
// connection's event; the read loop notices the dead socket.
func (h *Hub) Broadcast(ctx context.Context, userID int64, excludeClientID string, ev wire.Event) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.userID == userID && c.clientID != excludeClientID {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := wsjson.Write(writeCtx, c.conn, ev); err != nil {
			h.log.Debug(ctx, "dropping push write", "user_id", userID, "error", err)
		}
		cancel()
	}
}

// Count reports the number of open connections, for status endpoints
// and tests.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
