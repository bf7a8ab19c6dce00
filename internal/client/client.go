package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

const (
	DefaultReconnectInterval = 2 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second

	// missedHeartbeats is how many heartbeat intervals may pass without inbound
	// traffic before the connection is considered dead.
	missedHeartbeats = 3
	writeWait        = 10 * time.Second
)

var errHeartbeatTimeout = fmt.Errorf("%w: no traffic for %d heartbeats", shared.ErrConnectionLost, missedHeartbeats)

// Status is the state of the connection.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives server pushes and connection changes.
//
// Methods are called from the client's read goroutine and must not block.
type Handler interface {
	HandleMessage(msg protocol.Message)
	HandleStatus(status Status, err error)
}

// LatencyHandler is optionally implemented by a [Handler] to receive heartbeat round trips.
type LatencyHandler interface {
	HandleLatency(d time.Duration)
}

// Callback receives the outcome of a correlated request.
//
// On failure reply is a synthetic [protocol.Error] carrying the request id and err is set.
type Callback func(reply protocol.Message, err error)

type pendingCall struct {
	cb    Callback
	timer clockwork.Timer
}

// Client is a reconnecting WebSocket client for the stereo protocol.
type Client struct {
	url               string
	header            http.Header
	dialer            *websocket.Dialer
	clock             clockwork.Clock
	logger            *log.Logger
	handler           Handler
	reconnectInterval time.Duration
	heartbeatInterval time.Duration

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	nextID   int
	pending  map[int]*pendingCall
	lastRecv time.Time
	latency  time.Duration
}

// Option configures a [Client].
type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithHandler(h Handler) Option {
	return func(c *Client) { c.handler = h }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// WithReconnectInterval sets the delay between a close and the next dial.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectInterval = d
		}
	}
}

// WithHeartbeatInterval sets how often heartbeats are sent.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.heartbeatInterval = d
		}
	}
}

// New creates a client for the WebSocket endpoint at url. Nothing is dialed until [Client.Run].
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:               url,
		dialer:            websocket.DefaultDialer,
		clock:             clockwork.NewRealClock(),
		logger:            log.New(io.Discard),
		handler:           NopHandler{},
		reconnectInterval: DefaultReconnectInterval,
		heartbeatInterval: DefaultHeartbeatInterval,
		pending:           make(map[int]*pendingCall),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects and reconnects until ctx is done. It always returns ctx's error.
//
// Run must not be called concurrently.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.handler.HandleStatus(StatusDisconnected, nil)
			return ctx.Err()
		}

		c.logger.Warn("connection closed", "url", c.url, "err", err, "retry_in", c.reconnectInterval)
		c.handler.HandleStatus(StatusDisconnected, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.reconnectInterval):
		}
	}
}

// session runs one connection from dial to close.
func (c *Client) session(ctx context.Context) error {
	c.handler.HandleStatus(StatusConnecting, nil)

	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.lastRecv = c.clock.Now()
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.url)
	c.handler.HandleStatus(StatusConnected, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(conn) })
	g.Go(func() error { return c.heartbeatLoop(gctx, conn) })
	g.Go(func() error {
		<-gctx.Done()
		// Unblocks the read loop.
		return conn.Close()
	})
	err = g.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	c.flush(shared.ErrConnectionLost)
	return err
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Latency is the round trip of the most recent heartbeat.
func (c *Client) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Pending returns the number of calls waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Send writes a message without waiting for a reply.
func (c *Client) Send(msg protocol.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return shared.ErrNotConnected
	}
	return c.write(conn, msg)
}

// Call sends a correlated request and arranges for cb to run exactly once.
//
// A zero timeout waits until a reply arrives or the connection is lost. Call
// returns the request id, or 0 when there is no connection (cb has then already
// run with [shared.ErrNotConnected]).
func (c *Client) Call(msg protocol.Correlated, timeout time.Duration, cb Callback) int {
	if cb == nil {
		cb = func(protocol.Message, error) {}
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		cb(protocol.NewError(0, shared.ErrNotConnected), shared.ErrNotConnected)
		return 0
	}

	id := c.register(cb, timeout)
	msg.SetRequestID(id)
	c.mu.Unlock()

	if err := c.write(conn, msg); err != nil {
		c.fail(id, fmt.Errorf("%w: %v", shared.ErrConnectionLost, err))
		conn.Close()
	}
	return id
}

// register records cb under a fresh id. c.mu must be held.
func (c *Client) register(cb Callback, timeout time.Duration) int {
	c.nextID++
	id := c.nextID

	call := &pendingCall{cb: cb}
	if timeout > 0 {
		call.timer = c.clock.AfterFunc(timeout, func() {
			c.fail(id, shared.ErrRequestTimeout)
		})
	}
	c.pending[id] = call
	return id
}

type result struct {
	msg protocol.Message
	err error
}

// Request sends a correlated request and waits for its outcome.
//
// Cancelling ctx abandons the call; a reply arriving later is passed to the handler.
func (c *Client) Request(ctx context.Context, msg protocol.Correlated) (protocol.Message, error) {
	done := make(chan result, 1)
	id := c.Call(msg, 0, func(reply protocol.Message, err error) {
		done <- result{reply, err}
	})

	select {
	case r := <-done:
		return r.msg, r.err
	case <-ctx.Done():
		c.fail(id, ctx.Err())
		return nil, ctx.Err()
	}
}

// take removes a pending call so that only one path can complete it.
func (c *Client) take(id int) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	if call.timer != nil {
		call.timer.Stop()
	}
	return call
}

// fail completes a pending call with err, if it is still pending.
func (c *Client) fail(id int, err error) {
	if call := c.take(id); call != nil {
		call.cb(protocol.NewError(id, err), err)
	}
}

// flush fails every pending call.
func (c *Client) flush(err error) {
	c.mu.Lock()
	calls := c.pending
	c.pending = make(map[int]*pendingCall)
	for _, call := range calls {
		if call.timer != nil {
			call.timer.Stop()
		}
	}
	c.mu.Unlock()

	for id, call := range calls {
		call.cb(protocol.NewError(id, err), err)
	}
}

func (c *Client) write(conn *websocket.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Deadlines are enforced by the network stack, so they use wall time.
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type(), err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		c.mu.Lock()
		c.lastRecv = c.clock.Now()
		c.mu.Unlock()

		msgs, err := protocol.Decode(data)
		if err != nil {
			c.logger.Error("failed to decode message", "err", err, "data", shared.Truncate(string(data), 200))
		}
		for _, m := range msgs {
			c.dispatch(m)
		}
	}
}

func (c *Client) dispatch(m protocol.Message) {
	if hb, ok := m.(*protocol.Heartbeat); ok {
		c.recordLatency(hb)
		return
	}

	if id, ok := protocol.ReplyID(m); ok {
		if call := c.take(id); call != nil {
			if e, isErr := m.(*protocol.Error); isErr {
				call.cb(e, fmt.Errorf("%w: %s", shared.ErrRemote, e.Message))
				return
			}
			call.cb(m, nil)
			return
		}
	}

	c.handler.HandleMessage(m)
}

func (c *Client) recordLatency(hb *protocol.Heartbeat) {
	d := c.clock.Now().Sub(time.UnixMilli(hb.Timestamp))
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	c.latency = d
	c.mu.Unlock()

	if lh, ok := c.handler.(LatencyHandler); ok {
		lh.HandleLatency(d)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := c.clock.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			c.mu.Lock()
			silent := c.clock.Since(c.lastRecv)
			c.mu.Unlock()

			if silent >= missedHeartbeats*c.heartbeatInterval {
				return errHeartbeatTimeout
			}

			hb := &protocol.Heartbeat{Timestamp: c.clock.Now().UnixMilli()}
			if err := c.write(conn, hb); err != nil {
				return err
			}
		}
	}
}

// NopHandler ignores everything.
type NopHandler struct{}

func (NopHandler) HandleMessage(protocol.Message) {}
func (NopHandler) HandleStatus(Status, error)     {}
