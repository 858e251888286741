package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"auction_go/internal/domain"
	"auction_go/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	clientBuffer   = 64
	eventBuffer    = 256
	maxMessageSize = 512
)

// Hub is the notification gateway: it fans domain events out to websocket
// subscribers. Publishing never blocks the engine; when the hub's inbox is
// full the event is dropped and counted, delivery here is fire-and-forget.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	events chan domain.Event
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Run must be started for events to flow.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		events:  make(chan domain.Event, eventBuffer),
	}
}

// Publish implements domain.EventSink.
func (h *Hub) Publish(ev domain.Event) {
	select {
	case h.events <- ev:
	default:
		slog.Warn("event dropped, hub inbox full", slog.String("type", string(ev.Type)))
	}
}

// Run consumes the event inbox and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("notification hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev domain.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to marshal event", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Evict slow subscribers to keep the broadcast loop healthy.
			h.dropLocked(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	delete(h.clients, c)
	close(c.send)
	infra.GlobalMetrics.DecrementClients()
}

// ServeWS upgrades the request and subscribes the connection to all events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	infra.GlobalMetrics.IncrementClients()

	go c.writePump()
	go c.readPump(h)
}

// writePump drains the send channel to the connection. Exits when the
// channel closes (eviction or hub shutdown).
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames and unsubscribes on disconnect.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			h.dropLocked(c)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
