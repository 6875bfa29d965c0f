// Package websocket adapts a gorilla websocket connection to the SDK's
// transport port. Envelopes travel as JSON text frames; the connection's
// FIFO ordering carries over to delivery order.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// Conn wraps one websocket connection as a Transport. Writes are
// serialized; gorilla connections allow only one concurrent writer.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	recv    ports.Receiver
	once    sync.Once
}

var _ ports.Transport = (*Conn)(nil)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps an established websocket connection. The caller must run
// Run to start inbound delivery.
func New(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{ws: ws}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = asklog.New("websocket")
	}
	return c
}

// Send writes one envelope frame.
func (c *Conn) Send(event string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(wireformat.Envelope{Event: event, Payload: payload}); err != nil {
		return fmt.Errorf("websocket send %q: %w", event, err)
	}
	return nil
}

// SetReceiver registers the inbound callback. Must be called before Run.
func (c *Conn) SetReceiver(r ports.Receiver) {
	c.mu.Lock()
	c.recv = r
	c.mu.Unlock()
}

// Run reads frames until the connection fails, ctx is canceled, or Close
// is called. Malformed frames are logged and skipped; the guest cannot
// kill the read loop with garbage.
func (c *Conn) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		env, err := wireformat.DecodeEnvelope(data)
		if err != nil {
			c.logger.Warn("malformed frame dropped", "error", err)
			continue
		}
		c.mu.Lock()
		r := c.recv
		c.mu.Unlock()
		if r != nil {
			r(env.Event, env.Payload)
		}
	}
}

// Close closes the underlying connection. Idempotent.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.ws.Close()
	})
	return err
}
