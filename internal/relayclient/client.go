// Package relayclient owns one WebSocket connection to the relay for a
// player. It performs the join handshake on every (re)connect, queues sends
// until the join is on the wire and hands inbound events to an
// events.Dispatcher.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"codetyper/internal/events"
	"codetyper/internal/protocol"
)

const (
	outboxSize = 64
	readLimit  = 64 << 10
)

var (
	ErrNotConnected     = errors.New("relay client not connected")
	ErrAlreadyConnected = errors.New("relay client already connected")
	ErrOutboxFull       = errors.New("relay client outbox full")
)

// Config controls the transport and the reconnect policy. Zero or negative
// fields other than URL take the DefaultConfig values.
type Config struct {
	URL                  string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	ConnectTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:3001/ws",
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
		ConnectTimeout:       10 * time.Second,
	}
}

// Dialer opens the transport.
type Dialer func(ctx context.Context, url string) (*websocket.Conn, error)

func defaultDialer(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Option func(*Client)

// WithClock replaces the clock used for reconnect delays.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

type Client struct {
	cfg    Config
	clock  clockwork.Clock
	dial   Dialer
	events *events.Dispatcher

	mu       sync.Mutex
	cancel   context.CancelFunc
	conn     *websocket.Conn
	outbox   chan []byte
	done     chan struct{}
	attempts int
}

func New(cfg Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaults.ReconnectDelay
	}
	c := &Client{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		dial:   defaultDialer,
		events: events.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) AddEventListener(name string, l *events.Listener) {
	c.events.AddEventListener(name, l)
}

func (c *Client) RemoveEventListener(name string, l *events.Listener) {
	c.events.RemoveEventListener(name, l)
}

// Attempts returns the number of consecutive failed connection attempts.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Done is closed once the connection loop has stopped, either after
// Disconnect or after the reconnect budget ran out. It is nil before Connect.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Connect starts the connection loop for roomID and returns immediately.
// join_room is sent each time the transport comes up.
func (c *Client) Connect(ctx context.Context, roomID string) error {
	join, err := protocol.Encode(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.outbox = make(chan []byte, outboxSize)
	c.done = make(chan struct{})
	c.attempts = 0

	go c.run(ctx, join, c.outbox, c.done)
	return nil
}

// Send relays payload to the opponent as player_update.
func (c *Client) Send(payload any) error {
	return c.enqueue(protocol.EventPlayerUpdate, payload)
}

// SendReady announces the player with player_ready.
func (c *Client) SendReady(payload any) error {
	return c.enqueue(protocol.EventPlayerReady, payload)
}

func (c *Client) enqueue(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return ErrNotConnected
	}
	select {
	case c.outbox <- frame:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Disconnect closes the transport, stops reconnecting and drops every
// listener. Events still in flight are discarded. It does not wait for the
// connection loop; use Done for that.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, conn := c.cancel, c.conn
	c.cancel, c.conn = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.CloseNow()
	}
	c.events.Clear()
}

type closeKind int

const (
	closedByClient closeKind = iota
	closedByServer
	closedAbnormally
)

func (c *Client) run(ctx context.Context, join []byte, outbox chan []byte, done chan struct{}) {
	defer close(done)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempts := c.failed()
			log.Warn().
				Err(err).
				Int("attempt", attempts).
				Int("max_attempts", c.cfg.MaxReconnectAttempts).
				Msg("relay connection failed")
			if attempts >= c.cfg.MaxReconnectAttempts {
				log.Error().Int("attempts", attempts).Msg("max reconnection attempts reached")
				c.release(done)
				c.emitConnectionError(err)
				return
			}
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		switch c.serve(ctx, conn, join, outbox) {
		case closedByClient:
			return
		case closedByServer:
			log.Info().Msg("relay closed the connection, reconnecting")
		case closedAbnormally:
			log.Warn().Msg("relay connection lost")
			if !c.sleep(ctx) {
				return
			}
		}
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	conn, err := c.dial(dctx, c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(readLimit)

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.CloseNow()
		return nil, ctx.Err()
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	log.Info().Str("url", c.cfg.URL).Msg("connected to relay")
	return conn, nil
}

// release forgets the loop that owns done so Connect may be called again.
func (c *Client) release(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done || c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

func (c *Client) failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	return c.attempts
}

func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.cfg.ReconnectDelay):
		return true
	}
}

// serve runs one established connection until it ends and reports who ended it.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, join []byte, outbox chan []byte) closeKind {
	connCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		_ = conn.CloseNow()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	if err := conn.Write(connCtx, websocket.MessageText, join); err != nil {
		return classify(ctx, err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(connCtx, conn, outbox)
	}()

	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			return classify(ctx, err)
		}
		c.dispatch(data)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn, outbox chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-outbox:
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				log.Debug().Err(err).Msg("relay write failed")
				return
			}
		}
	}
}

func (c *Client) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Debug().Err(err).Msg("dropping undecodable relay frame")
		return
	}
	if !protocol.IsOutbound(msg.Event) {
		log.Debug().Str("event", msg.Event).Msg("dropping unexpected relay event")
		return
	}
	c.events.Emit(msg.Event, msg.Data)
}

func (c *Client) emitConnectionError(cause error) {
	payload, err := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: cause.Error()})
	if err != nil {
		return
	}
	c.events.Emit(protocol.EventConnectionError, payload)
}

func classify(ctx context.Context, err error) closeKind {
	if ctx.Err() != nil {
		return closedByClient
	}
	if websocket.CloseStatus(err) != -1 {
		return closedByServer
	}
	return closedAbnormally
}
