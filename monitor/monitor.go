// Package monitor broadcasts derived oximetry readings to websocket
// clients so a browser-side display can plot them live.
package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oxiview/spo2"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 5 * time.Second
	sendBuffer = 16
)

// Message is one broadcast frame: the derived readings plus the raw
// window snapshots for plotting.
type Message struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Reading   spo2.Reading `json:"reading"`
	Red       []float64    `json:"red,omitempty"`
	IR        []float64    `json:"ir,omitempty"`
}

// Hub fans readings out to every connected websocket client. Slow
// clients whose send buffer fills are dropped rather than allowed to
// stall the broadcast.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub ready to Run.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set until Stop is called. It must run in its own
// goroutine before clients connect.
func (h *Hub) Run() {
	clients := make(map[*client]bool)

	for {
		select {
		case <-h.done:
			for c := range clients {
				close(c.send)
				c.conn.Close()
			}
			return

		case c := <-h.register:
			clients[c] = true
			h.log.Info("monitor client connected",
				zap.String("id", c.id),
				zap.Int("total", len(clients)))

		case c := <-h.unregister:
			if clients[c] {
				delete(clients, c)
				close(c.send)
				h.log.Info("monitor client disconnected",
					zap.String("id", c.id),
					zap.Int("total", len(clients)))
			}

		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					delete(clients, c)
					close(c.send)
					h.log.Warn("dropping slow monitor client",
						zap.String("id", c.id))
				}
			}
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues one message for every connected client. It never
// blocks the capture loop: when the hub itself is backed up the
// message is dropped.
func (h *Hub) Broadcast(m Message) {
	raw, err := json.Marshal(m)
	if err != nil {
		h.log.Error("could not serialize monitor message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- raw:
	default:
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// client with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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

// readPump discards client input; it exists to detect disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
