// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/fittrack/internal/timeutil"
)

const wsWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network dashboard
	},
}

// clientBuffer is how many messages may queue for a slow client before it
// is dropped.
const clientBuffer = 8

type wsClient struct {
	conn *websocket.Conn
	send chan Message
}

// Hub pushes activity messages to websocket clients and remembers the last
// one for new clients and the HTTP API. Each client has its own writer
// goroutine, so a stalled client never blocks Broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*wsClient
	last    Message
	haveAny bool

	clock  timeutil.Clock
	logger *slog.Logger
}

// NewHub returns a hub with no clients.
func NewHub(clock timeutil.Clock, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*wsClient),
		clock:   clock,
		logger:  logger,
	}
}

// WriteValue implements activity.Notifier.
func (h *Hub) WriteValue(_ context.Context, value int) error {
	h.Broadcast(NewMessage(value, h.clock.Now()))
	return nil
}

// Broadcast stores msg as the last message and queues it for every client.
// A client whose queue is full is dropped.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	h.haveAny = true
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("ws: dropping slow client", "id", id)
			h.removeLocked(id)
		}
	}
}

// Last returns the most recent message, if any was written.
func (h *Hub) Last() (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.haveAny
}

// Clients is the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade error", "err", err)
		return
	}
	id := uuid.NewString()
	c := &wsClient{conn: conn, send: make(chan Message, clientBuffer)}

	h.mu.Lock()
	if h.haveAny {
		c.send <- h.last
	}
	h.clients[id] = c
	h.mu.Unlock()
	h.logger.Debug("ws: client connected", "id", id)

	go c.writePump()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(id)
	h.mu.Unlock()
	h.logger.Debug("ws: client disconnected", "id", id)
}

// removeLocked unregisters id and ends its writer. h.mu must be held.
func (h *Hub) removeLocked(id string) {
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

// writePump owns all writes to the connection and closes it when the send
// queue is closed or a write fails.
func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
