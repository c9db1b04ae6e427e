package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 32
)

// Event is what connected clients receive.
type Event struct {
	Type  string `json:"type"`
	Table string `json:"table,omitempty"`
	Op    string `json:"op,omitempty"`
	ID    string `json:"id,omitempty"`
}

const EventRefresh = "refresh"

// connection is one websocket client. userID and tokenID are empty for
// anonymous viewers.
type connection struct {
	userID  string
	tokenID string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub fans events out to every connected client.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
	closed      bool
	log         *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		connections: make(map[*connection]struct{}),
		log:         log,
	}
}

func (h *Hub) register(c *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.connections[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// Count reports the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast sends ev to all clients. Clients with a full buffer are
// skipped; they already have a refresh queued.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		select {
		case c.send <- data:
		default:
		}
	}
}

// DisconnectToken closes every connection opened with the given token.
func (h *Hub) DisconnectToken(tokenID string) {
	if tokenID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.connections {
		if c.tokenID == tokenID {
			delete(h.connections, c)
			close(c.send)
		}
	}
}

// Close disconnects everyone and refuses new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.connections {
		delete(h.connections, c)
		close(c.send)
	}
}

// ServeWS registers the connection and blocks until it goes away.
func (h *Hub) ServeWS(conn *websocket.Conn, userID, tokenID string) {
	c := &connection{
		userID:  userID,
		tokenID: tokenID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.log.Debug("websocket connected", zap.String("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
}

// readPump only keeps the connection alive; clients have nothing to say.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.log.Debug("websocket disconnected", zap.String("user_id", c.userID))
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
