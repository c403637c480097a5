// Package transport wraps the backend's raw-text socket channels. Each
// Channel owns at most one physical websocket at a time and reports its
// lifecycle through callbacks. Channels never reconnect on their own.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"agentconsole/internal/logging"

	"github.com/gorilla/websocket"
)

// ErrNotOpen is returned by Send when the channel has no open socket.
var ErrNotOpen = errors.New("transport: channel not open")

// Kind names a logical channel.
type Kind string

const (
	KindChat     Kind = "chat"
	KindShell    Kind = "shell"
	KindNotebook Kind = "notebook"
)

// NotOpenNotice is the system notice surfaced when sending on a closed channel.
func NotOpenNotice(kind Kind) string {
	if kind == KindChat {
		return "Not connected or message empty."
	}
	return fmt.Sprintf("The %s channel is not connected.", kind)
}

// Handlers receives channel lifecycle callbacks. Any field may be nil.
// Callbacks run on the channel's reader goroutine (OnOpen runs inside Open)
// and must not call Open or Close synchronously.
type Handlers struct {
	OnOpen    func()
	OnMessage func(payload string)
	OnClose   func(reason string)
	OnError   func(err error)
	OnNotice  func(text string)
}

// Channel is one logical bidirectional text channel.
type Channel struct {
	kind     Kind
	handlers Handlers
	dialer   *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}

	// writeMu serialises frames; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	// gen is bumped on every Open and Close. Callbacks from an older
	// generation are dropped.
	gen  atomic.Uint64
	cbMu sync.Mutex
}

// Option customises a Channel.
type Option func(*Channel)

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// New creates a closed channel.
func New(kind Kind, handlers Handlers, opts ...Option) *Channel {
	c := &Channel{
		kind:     kind,
		handlers: handlers,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind returns the logical channel name.
func (c *Channel) Kind() Kind {
	return c.kind
}

// IsOpen reports whether a socket is currently open.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Open dials url, replacing any socket this channel already holds, and
// fires OnOpen before any OnMessage.
func (c *Channel) Open(ctx context.Context, url string) error {
	c.Close()

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		logging.TransportWarn("%s: dial %s failed: %v", c.kind, url, err)
		return fmt.Errorf("failed to open %s channel: %w", c.kind, err)
	}

	gen := c.bump()
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.mu.Unlock()

	logging.Transport("%s: opened %s", c.kind, url)
	c.deliver(gen, func() {
		if c.handlers.OnOpen != nil {
			c.handlers.OnOpen()
		}
	})

	go c.readLoop(gen, conn, done)
	return nil
}

// Send writes one text frame. On a closed channel it surfaces a notice and
// returns ErrNotOpen. Empty payloads are ignored.
func (c *Channel) Send(payload string) error {
	if payload == "" {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		if c.handlers.OnNotice != nil {
			c.handlers.OnNotice(NotOpenNotice(c.kind))
		}
		return ErrNotOpen
	}

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, []byte(payload))
	c.writeMu.Unlock()
	if err != nil {
		logging.TransportWarn("%s: write failed: %v", c.kind, err)
		return fmt.Errorf("failed to send on %s channel: %w", c.kind, err)
	}
	return nil
}

// Close shuts the socket down. After Close returns no callback from the
// closed socket will run. Close is idempotent.
func (c *Channel) Close() error {
	c.bump()

	c.mu.Lock()
	conn, done := c.conn, c.done
	c.conn, c.done = nil, nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := conn.Close()
	<-done
	logging.TransportDebug("%s: closed", c.kind)
	return err
}

func (c *Channel) bump() uint64 {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return c.gen.Add(1)
}

// deliver runs fn only if gen is still current.
func (c *Channel) deliver(gen uint64, fn func()) bool {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

func (c *Channel) readLoop(gen uint64, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.finish(gen, conn, err)
			return
		}
		payload := string(data)
		if !c.deliver(gen, func() {
			if c.handlers.OnMessage != nil {
				c.handlers.OnMessage(payload)
			}
		}) {
			return
		}
	}
}

// finish invalidates the channel after the remote side went away.
func (c *Channel) finish(gen uint64, conn *websocket.Conn, err error) {
	reason := closeReason(err)
	abnormal := !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)

	c.deliver(gen, func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn, c.done = nil, nil
		}
		c.mu.Unlock()
		conn.Close()

		logging.Transport("%s: closed by peer: %s", c.kind, reason)
		if abnormal && c.handlers.OnError != nil {
			c.handlers.OnError(err)
		}
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(reason)
		}
	})
}

func closeReason(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Text != "" {
			return ce.Text
		}
		return fmt.Sprintf("close %d", ce.Code)
	}
	return err.Error()
}
