// Package progress streams per-bucket run progress to connected
// operator dashboards over WebSocket. This is operational telemetry
// about the run (bucket index, anomaly counts so far), not a mirror of
// market data.
package progress

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scsync/internal/diag"
)

// Frame is one progress update broadcast to every connected client.
type Frame struct {
	Contract      string     `json:"contract"`
	TradeDate     string     `json:"trade_date"`
	State         string     `json:"state"`
	BucketsDone   int        `json:"buckets_done"`
	Anomalies     diag.Counts `json:"anomalies"`
	EmittedAtUnix int64      `json:"emitted_at_unix"`
}

// Hub fans out progress frames to every connected WebSocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns an empty progress hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Register adds a new WebSocket connection to the fan-out set and
// starts its write pump. Blocks reading (and discarding) client frames
// until the connection closes, the standard read-pump pattern for
// detecting disconnects.
func (h *Hub) Register(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a progress frame to every connected client, dropping
// it for any client whose send buffer is full rather than blocking.
func (h *Hub) Broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("progress: marshal frame: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
