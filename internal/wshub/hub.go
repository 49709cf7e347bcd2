// Package wshub tracks live WebSocket connections and the transport-level
// channels they have joined. It knows nothing about players; it only fans
// frames out.
package wshub

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// NewClient wraps conn with a fresh connection identity. conn may be nil in
// tests that only inspect Send.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("conn_id", c.ID).Msg("write failed")
				_ = c.Conn.CloseNow()
				return
			}
		}
	}
}

// Hub manages connections and their channel memberships.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]*Client
	joined   map[string]map[string]bool // client ID -> channels
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		joined:   make(map[string]map[string]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.joined[c.ID] = make(map[string]bool)
}

// Unregister removes a client from every channel and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	for ch := range h.joined[id] {
		h.leaveLocked(ch, id)
	}
	delete(h.joined, id)
	delete(h.clients, id)
	close(c.Send)
}

// Join subscribes a registered client to a channel. Joining twice is harmless.
func (h *Hub) Join(channel, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return false
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]*Client)
		h.channels[channel] = members
	}
	members[id] = c
	h.joined[id][channel] = true
	return true
}

func (h *Hub) leaveLocked(channel, id string) {
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// Members returns how many connections have joined channel.
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Connections returns how many clients are registered.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo queues data for one client. Non-blocking: drops if channel full.
func (h *Hub) SendTo(id string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	if !ok {
		return false
	}
	return deliver(c, data)
}

// Broadcast queues data for every member of channel.
func (h *Hub) Broadcast(channel string, data []byte) {
	h.BroadcastExcept(channel, "", data)
}

// BroadcastExcept queues data for every member of channel except senderID.
// Non-blocking: drops if channel full.
func (h *Hub) BroadcastExcept(channel, senderID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.channels[channel] {
		if id == senderID {
			continue
		}
		deliver(c, data)
	}
}

func deliver(c *Client, data []byte) bool {
	select {
	case c.Send <- data:
		return true
	default:
		log.Warn().Str("conn_id", c.ID).Msg("send buffer full, dropping frame")
		return false
	}
}
