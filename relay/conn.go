// Package relay is the reference transport for the group-chat engine: a
// broadcasting relay that delivers opaque frames addressed either to all
// members or to a single recipient, best-effort (the reference Hub drops
// frames for a slow consumer) and in order per pair but not across pairs. It sits entirely outside the core's trust boundary — the
// relay sees only JSON frames, never key material or plaintext.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nulltrace/core/router"
)

// Conn is a client-side connection to a relay: it dials once, pushes
// outgoing frames, and delivers incoming frames to a caller-supplied
// handler. Unlike a request/response transport there is no correlation
// between sends and receives — frames arrive asynchronously as other
// members and the relay itself produce them.
type Conn struct {
	url          string
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn

	onFrame func(router.Frame)
	onClose func(error)
}

// DefaultDialTimeout, DefaultReadTimeout, and DefaultWriteTimeout are the
// transport bounds NewConn uses when a caller has no config.RelayConfig to
// source them from.
const (
	DefaultDialTimeout  = 10 * time.Second
	DefaultReadTimeout  = 90 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// NewConn creates a relay client connection to url using the default
// transport timeouts. onFrame is called for every frame the read pump
// receives. A close callback, registered separately with OnClose, is called
// once the read pump exits, carrying the error that ended it (nil on a clean
// close).
func NewConn(url string, onFrame func(router.Frame)) *Conn {
	return NewConnWithTimeouts(url, onFrame, DefaultDialTimeout, DefaultReadTimeout, DefaultWriteTimeout)
}

// NewConnWithTimeouts is NewConn with explicit transport bounds, typically
// sourced from config.RelayConfig. A zero duration for any field falls back
// to its default.
func NewConnWithTimeouts(url string, onFrame func(router.Frame), dialTimeout, readTimeout, writeTimeout time.Duration) *Conn {
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}
	if writeTimeout == 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{
		url:          url,
		dialTimeout:  dialTimeout,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		onFrame:      onFrame,
	}
}

// OnClose registers a callback for when the read pump exits.
func (c *Conn) OnClose(fn func(error)) {
	c.onClose = fn
}

// Dial opens the WebSocket connection and starts the read pump. There is no
// automatic reconnection: callers above the core decide retry policy.
func (c *Conn) Dial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("relay: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("relay: dial failed: %w", err)
	}
	c.conn = conn
	go c.readPump()
	return nil
}

// Send implements router.Transport: it marshals f as JSON and writes it to
// the relay connection.
func (c *Conn) Send(f router.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("relay: not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("relay: set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("relay: write frame: %w", err)
	}
	return nil
}

func (c *Conn) readPump() {
	var exitErr error
	defer func() {
		if c.onClose != nil {
			c.onClose(exitErr)
		}
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			exitErr = err
			return
		}

		var f router.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				exitErr = err
			}
			return
		}
		c.onFrame(f)
	}
}

// Close sends a normal-closure frame and tears down the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}
