// Package websocket serves the gene explorer over WebSocket.
//
// A client sends a selection (a gene and optionally the groups to compare)
// and receives the insight for it. Every selection carries a sequence number;
// a reply is delivered only while its selection is the newest one, so a slow
// answer never overwrites the result of a later click. The same connection
// also receives the live event feed broadcast by the hub.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas/pkg/constants"
)

// Request is an explorer selection sent by a client. Seq is optional; when
// zero the next number after the newest seen selection is used.
type Request struct {
	Seq    uint64   `json:"seq"`
	Gene   string   `json:"gene"`
	Target string   `json:"target,omitempty"`
	Refs   []string `json:"refs,omitempty"`
}

// Message represents a WebSocket message.
type Message struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Handler answers an explorer request with the reply message.
type Handler func(ctx context.Context, req Request) Message

// MessageError is the reply type for requests that could not be parsed.
const MessageError = "error"

type reply struct {
	client *Client
	msg    Message
}

// Hub maintains active WebSocket connections, broadcasts feed messages and
// routes explorer replies back to the client that asked.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	replies    chan reply
	done       chan struct{}
	handler    Handler
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// NewHub creates a new WebSocket hub. handler may be nil for a broadcast-only hub.
func NewHub(logger *zerolog.Logger, handler Handler) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply, 64),
		done:       make(chan struct{}),
		handler:    handler,
		logger:     logger,
	}
}

// Run starts the hub's main loop. Should be called in a goroutine.
// The hub will run until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info().Msg("WebSocket hub shut down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", n).
				Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", n).
				Msg("WebSocket client disconnected")

		case r := <-h.replies:
			// A newer request may have arrived while this reply was queued.
			// Unsequenced replies (parse errors) are always delivered.
			if r.msg.Seq != 0 && r.msg.Seq < r.client.latest.Load() {
				h.logger.Debug().Str("client_id", r.client.id).Uint64("seq", r.msg.Seq).Msg("Superseded reply dropped")
				continue
			}
			h.mu.RLock()
			if h.clients[r.client] {
				select {
				case r.client.send <- r.msg:
				default:
					h.logger.Warn().Str("client_id", r.client.id).Msg("Client buffer full, reply dropped")
				}
			}
			h.mu.RUnlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub. It returns false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn().Msg("Broadcast channel full, message dropped")
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	latest atomic.Uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new WebSocket client. ctx bounds the explorer
// requests the client runs; it is cancelled when the connection closes.
func NewClient(ctx context.Context, id string, hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ReadPump reads explorer requests from the connection until it closes.
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.WebSocketReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.deliver(Message{
				Type: MessageError,
				Data: map[string]any{"code": "BAD_REQUEST", "message": "invalid explorer request: " + err.Error()},
			})
			continue
		}
		if !c.accept(&req) {
			c.hub.logger.Debug().Str("client_id", c.id).Uint64("seq", req.Seq).Msg("Stale selection ignored")
			continue
		}
		go c.handle(req)
	}
}

// accept assigns a sequence number when missing and records the newest
// selection. Selections older than the newest seen are rejected.
func (c *Client) accept(req *Request) bool {
	for {
		latest := c.latest.Load()
		if req.Seq == 0 {
			req.Seq = latest + 1
		}
		if req.Seq <= latest {
			return false
		}
		if c.latest.CompareAndSwap(latest, req.Seq) {
			return true
		}
	}
}

func (c *Client) handle(req Request) {
	if c.hub.handler == nil {
		return
	}
	msg := c.hub.handler(c.ctx, req)
	if req.Seq < c.latest.Load() {
		c.hub.logger.Debug().Str("client_id", c.id).Uint64("seq", req.Seq).Msg("Superseded reply dropped")
		return
	}
	msg.Seq = req.Seq
	c.deliver(msg)
}

// deliver routes a reply to this client through the hub.
func (c *Client) deliver(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	select {
	case c.hub.replies <- reply{client: c, msg: msg}:
	case <-c.ctx.Done():
	case <-c.hub.done:
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.hub.logger.Error().Err(err).Msg("Failed to marshal WebSocket message")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
