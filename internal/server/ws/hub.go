// Package ws streams widget engine updates (quotes, transaction status,
// shared state) to embedding frontends over WebSocket, and accepts
// refocus signals back from them.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// Channels the hub publishes on.
const (
	ChannelQuote = "quote"
	ChannelTx    = "tx"
	ChannelState = "state"
)

var defaultChannels = []string{ChannelQuote, ChannelTx, ChannelState}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS middleware; embedding pages
		// legitimately connect cross-origin.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// clientMsg is the JSON message a client sends: subscription management
// or a refocus signal after the host page regains visibility.
type clientMsg struct {
	Action   string   `json:"action"` // "subscribe", "unsubscribe", "refocus"
	Channels []string `json:"channels"`
}

// envelope wraps every outgoing payload with its channel name.
type envelope struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Hub manages connected WebSocket clients and fans engine updates out to
// the ones subscribed to the matching channel.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	onRefocus  func()
	mu         sync.RWMutex
	logger     *slog.Logger
}

type broadcastMsg struct {
	channel string
	data    []byte
}

// NewHub creates a hub. onRefocus, when non-nil, is invoked each time any
// client reports the host page regained focus.
func NewHub(onRefocus func(), logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		onRefocus:  onRefocus,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Publish serializes v and broadcasts it on the channel. Marshal failures
// are logged and dropped.
func (h *Hub) Publish(channel string, v any) {
	data, err := json.Marshal(envelope{Channel: channel, Data: v})
	if err != nil {
		h.logger.Error("ws: marshal broadcast", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- broadcastMsg{channel: channel, data: data}:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping update",
			slog.String("channel", channel))
	}
}

// Run starts the hub's event loop. It should be called in a goroutine and
// exits when the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channel) {
					select {
					case c.send <- msg.data:
					default:
						// Client's send buffer is full; drop the message.
						h.logger.Warn("ws: dropping message for slow client")
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and
// registers the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	// New clients receive everything until they narrow their subscription.
	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

func (c *client) handleMessage(raw []byte) {
	var msg clientMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.logger.Warn("ws: bad client message", slog.String("error", err.Error()))
		return
	}

	switch msg.Action {
	case "refocus":
		if c.hub.onRefocus != nil {
			c.hub.onRefocus()
		}
	case "subscribe":
		c.mu.Lock()
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
		c.mu.Unlock()
	case "unsubscribe":
		c.mu.Lock()
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
		c.mu.Unlock()
	}
}

// readPump reads messages from the WebSocket connection and dispatches
// subscription and refocus requests.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump writes queued messages to the WebSocket connection and keeps
// the connection alive with periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
