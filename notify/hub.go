// Package notify pushes committed report changes to connected websocket
// clients and sends admin email.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Hub fans report events out to every connected client. Clients that fall
// behind are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*client]struct{}
	mutex    sync.Mutex
}

// NewHub returns a Hub that accepts upgrades from the given origins. An
// empty list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish implements the lifecycle publisher
func (h *Hub) Publish(ev models.ReportEvent) {
	msg, err := json.Marshal(map[string]interface{}{
		"event": ev.Type,
		"data":  ev,
	})
	if err != nil {
		zap.S().Errorw("failed to marshal report event", "error", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			zap.S().Warnw("dropping slow websocket client", "userId", c.userID)
			h.remove(c)
		}
	}
}

// Connected returns the number of connected clients
func (h *Hub) Connected() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams events until the client goes away
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Debugw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
	zap.S().Debugw("websocket client connected", "userId", userID)

	go h.writePump(c)
	h.readPump(c)
}

// remove must be called with the mutex held
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.mutex.Lock()
		h.remove(c)
		h.mutex.Unlock()
		c.conn.Close()
		zap.S().Debugw("websocket client disconnected", "userId", c.userID)
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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
