// Package notify pushes transient messages to the browser tabs of a
// portal session over a websocket.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	LevelInfo  = "info"
	LevelError = "error"
)

const writeWait = 10 * time.Second

type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub holds the open connections, one per session. A newer connection for
// the same session replaces the older one. A nil *Hub drops everything.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	if h == nil {
		_ = conn.Close()
		return
	}
	h.mu.Lock()
	old, ok := h.clients[sessionID]
	h.clients[sessionID] = &client{conn: conn}
	h.mu.Unlock()

	if ok {
		_ = old.conn.Close()
	}
	slog.Info("websocket client registered", "session", sessionID)
}

// Unregister removes conn if it is still the session's current connection.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID]; ok && c.conn == conn {
		delete(h.clients, sessionID)
		slog.Info("websocket client unregistered", "session", sessionID)
	}
}

// Disconnect closes the session's connection, if any.
func (h *Hub) Disconnect(sessionID string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	c, ok := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

// Notify sends n to the session. Nobody listening is not an error; the
// message is simply dropped.
func (h *Hub) Notify(sessionID string, n Notification) {
	if h == nil {
		return
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		slog.Debug("no websocket client, notification dropped", "session", sessionID)
		return
	}

	msg, err := json.Marshal(n)
	if err != nil {
		slog.Error("encode notification", "error", err)
		return
	}
	if err := c.write(msg); err != nil {
		slog.Warn("websocket write failed", "session", sessionID, "error", err)
	}
}

func (h *Hub) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
