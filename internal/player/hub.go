// Package player drives the embedded players hosted by connected pages.
// Commands are broadcast to every page over a websocket; pages report
// readiness, errors and state changes back on the same connection.
package player

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 256
	readLimit    = 1 << 16
	pongWait     = 120 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// ErrBacklog is returned by Broadcast when the hub cannot keep up.
var ErrBacklog = errors.New("player hub backlog full")

// Hub tracks connected pages and fans messages out to them.
type Hub struct {
	log        *slog.Logger
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	connected  atomic.Int64

	onMessage func(msg []byte)
	onConnect func() [][]byte
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewHub returns a hub. Call Run before serving connections.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 128),
		register:   make(chan *client, 32),
		unregister: make(chan *client, 32),
		done:       make(chan struct{}),
	}
}

// HandleMessages sets the callback for messages received from pages. It runs
// on the connection's read goroutine. Must be called before Run.
func (h *Hub) HandleMessages(fn func(msg []byte)) {
	h.onMessage = fn
}

// OnConnect sets a callback whose messages are queued to every newly
// registered page before anything else. Must be called before Run.
func (h *Hub) OnConnect(fn func() [][]byte) {
	h.onConnect = fn
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

// Run processes registrations and broadcasts until ctx is done. Connections
// arriving after that are closed straight away.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.connected.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Store(int64(len(h.clients)))
			if h.onConnect != nil {
				for _, msg := range h.onConnect() {
					h.deliver(c, msg)
				}
			}
			h.log.Info("player page connected", slog.String("client_id", c.id), slog.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.connected.Store(int64(len(h.clients)))
				h.log.Info("player page disconnected", slog.String("client_id", c.id), slog.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues msg for c, dropping the oldest queued message when c is slow.
func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
		h.log.Warn("dropping message for slow page", slog.String("client_id", c.id))
	}
}

// Broadcast encodes v as JSON and queues it for every page. It never blocks.
func (h *Hub) Broadcast(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- b:
		return nil
	default:
		return ErrBacklog
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case <-h.done:
		_ = conn.Close()
		return
	default:
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("player page read error", slog.String("client_id", c.id), slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.hub.onMessage != nil {
			c.hub.onMessage(msg)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
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
