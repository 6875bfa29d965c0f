// Package guest is the sandboxed side of the boundary: a thin client
// that emits events to the host, listens for host-pushed events, and
// layers awaitable request/response calls over the wire via the
// correlator. It holds no references to host objects; everything crosses
// the transport as JSON envelopes.
package guest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/correlate"
	"github.com/GoAskAway/askit-sdk/dispatch"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
)

// Client is one guest engine's view of the wire.
type Client struct {
	transport ports.Transport
	bus       *bus.Bus
	prefix    string
	timeout   time.Duration
	clk       clock.Clock
	logger    *slog.Logger

	mu          sync.Mutex
	correlators map[string]*correlate.Correlator
}

// Option configures a Client.
type Option func(*Client)

// WithPrefix overrides the module event prefix (default "askit").
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCallTimeout sets the default timeout for correlated calls.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock injects the clock used by call timeouts. Tests pass a mock.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wires a Client to its transport and starts receiving host events.
func New(t ports.Transport, opts ...Option) *Client {
	c := &Client{
		transport:   t,
		prefix:      dispatch.DefaultPrefix,
		timeout:     correlate.DefaultTimeout,
		clk:         clock.New(),
		correlators: make(map[string]*correlate.Correlator),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = asklog.New("guest")
	}
	c.bus = bus.New(bus.WithLogger(c.logger.With("subsystem", "bus")))

	t.SetReceiver(func(event string, payload any) {
		c.bus.HandleEngineMessage(event, payload)
	})
	return c
}

// On registers a listener for events the host pushes to this guest.
func (c *Client) On(event string, fn bus.Listener) *bus.Subscription {
	return c.bus.On(event, fn)
}

// Once registers a single-delivery listener.
func (c *Client) Once(event string, fn bus.Listener) *bus.Subscription {
	return c.bus.Once(event, fn)
}

// Off removes a listener.
func (c *Client) Off(sub *bus.Subscription) {
	c.bus.Off(sub)
}

// Invoke fires a module call ("<prefix>:<module>:<method>") at the host.
// args travel as the positional argument list; authorization is the
// host's decision.
func (c *Client) Invoke(module, method string, args ...any) error {
	var payload any
	if len(args) > 0 {
		payload = args
	}
	return c.transport.Send(c.prefix+":"+module+":"+method, payload)
}

// EmitBus publishes an event onto the host's bus ("bus:<event>"). It
// reaches the host's local listeners only, never other guests.
func (c *Client) EmitBus(event string, payload any) error {
	return c.transport.Send("bus:"+event, payload)
}

// Call performs an awaitable request/response exchange: the request
// payload goes out on requestEvent, and the call resolves when a payload
// carrying the same correlation id arrives on responseEvent, or fails on
// timeout/cancellation. The payload must carry a non-empty requestId.
func (c *Client) Call(ctx context.Context, requestEvent, responseEvent string, payload any) (any, error) {
	return c.correlator(requestEvent, responseEvent).Call(ctx, payload)
}

// correlator returns the process-lifetime correlator for one event pair,
// creating and binding it on first use.
func (c *Client) correlator(requestEvent, responseEvent string) *correlate.Correlator {
	key := requestEvent + "|" + responseEvent
	c.mu.Lock()
	defer c.mu.Unlock()
	if co, ok := c.correlators[key]; ok {
		return co
	}
	co := correlate.New(requestEvent, responseEvent, c.transport.Send,
		correlate.WithTimeout(c.timeout),
		correlate.WithClock(c.clk),
		correlate.WithLogger(c.logger.With("subsystem", "correlate")),
	)
	co.Bind(c.bus)
	c.correlators[key] = co
	return co
}

// Close shuts the transport down.
func (c *Client) Close() error {
	return c.transport.Close()
}
