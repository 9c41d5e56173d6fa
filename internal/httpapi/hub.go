package httpapi

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// ClientGauge tracks connected subscribers.
type ClientGauge interface {
	ClientConnected()
	ClientDisconnected()
}

// Hub fans state snapshots out to websocket subscribers. Each client has
// its own send queue drained by a write pump; a client whose queue is
// full is dropped.
type Hub struct {
	log   *logger.Logger
	gauge ClientGauge

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates an empty hub. gauge may be nil.
func NewHub(log *logger.Logger, gauge ClientGauge) *Hub {
	return &Hub{
		log:     log,
		gauge:   gauge,
		clients: make(map[*client]struct{}),
	}
}

// Serve registers conn, queues initial and runs its pumps. Returns
// immediately.
func (h *Hub) Serve(conn *websocket.Conn, initial []byte) {
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if initial != nil {
		c.send <- initial
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.ClientConnected()
	}
	h.log.Debug("ws: client %s connected (%d total)", c.id, n)

	go c.writePump()
	go c.readPump()
}

// Broadcast marshals v once and queues it for every client.
func (h *Hub) Broadcast(v any) {
	msg, err := sonic.Marshal(v)
	if err != nil {
		h.log.Error("ws: marshal broadcast: %v", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("ws: client %s send buffer full, dropping", c.id)
		h.unregister(c)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.unregister(c)
	}
}

// unregister removes c and closes its queue. The write pump then sends a
// close frame and closes the connection.
func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		close(c.send)
		h.mu.Unlock()

		if h.gauge != nil {
			h.gauge.ClientDisconnected()
		}
		h.log.Debug("ws: client %s disconnected", c.id)
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.log.Debug("ws: write to %s failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the peer going away; clients do not send
// commands over the socket.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws: unexpected close from %s: %v", c.id, err)
			}
			return
		}
	}
}
