// Package correlate turns a pair of fire-and-forget events (a request
// event sent outward and a response event received inbound later) into a
// single awaitable call with timeout, matched by a caller-supplied
// correlation id.
package correlate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// DefaultTimeout bounds how long a call waits for its response event.
const DefaultTimeout = 10 * time.Second

type pendingCall struct {
	done chan any // buffered 1; written at most once
}

// Correlator pairs outgoing request events with future incoming response
// events. One Correlator owns one request/response event pair; concurrent
// calls with distinct ids are fully independent.
//
// A pending entry is removed exactly once, by whichever of the matching
// response, the timeout, or context cancellation wins, and never leaked.
type Correlator struct {
	requestEvent  string
	responseEvent string
	send          ports.SendFunc
	timeout       time.Duration
	clk           clock.Clock
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock injects the clock used for timeout timers. Tests pass a mock.
func WithClock(clk clock.Clock) Option {
	return func(c *Correlator) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the logger for dropped and late responses.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Correlator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Correlator for one request/response event pair. send is
// the outbound primitive of the surrounding transport.
func New(requestEvent, responseEvent string, send ports.SendFunc, opts ...Option) *Correlator {
	c := &Correlator{
		requestEvent:  requestEvent,
		responseEvent: responseEvent,
		send:          send,
		timeout:       DefaultTimeout,
		clk:           clock.New(),
		pending:       make(map[string]*pendingCall),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = asklog.New("correlate")
	}
	return c
}

// Bind registers the correlator's response listener on b for the lifetime
// of the process (or until the returned subscription is removed).
func (c *Correlator) Bind(b *bus.Bus) *bus.Subscription {
	return b.On(c.responseEvent, c.HandleResponse)
}

// Call sends req on the request event and waits for the response carrying
// the same correlation id, the timeout, or ctx, whichever comes first.
//
// req must carry a non-empty correlation id (see wireformat.CorrelationID);
// its absence is a caller error reported immediately, not via timeout.
// Reusing the id of a still-pending call is rejected with
// DuplicateRequestError rather than silently shadowing the first call.
func (c *Correlator) Call(ctx context.Context, req any) (any, error) {
	id := wireformat.CorrelationID(req)
	if id == "" {
		return nil, &errors.MissingRequestIDError{RequestEvent: c.requestEvent}
	}
	key := c.key(id)

	p := &pendingCall{done: make(chan any, 1)}
	c.mu.Lock()
	if _, exists := c.pending[key]; exists {
		c.mu.Unlock()
		return nil, &errors.DuplicateRequestError{ResponseEvent: c.responseEvent, RequestID: id}
	}
	c.pending[key] = p
	c.mu.Unlock()

	if err := c.send(c.requestEvent, req); err != nil {
		c.remove(key, p)
		return nil, err
	}

	timer := c.clk.Timer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-p.done:
		return resp, nil
	case <-timer.C:
		if c.remove(key, p) {
			return nil, &errors.TimeoutError{
				RequestEvent:  c.requestEvent,
				ResponseEvent: c.responseEvent,
				RequestID:     id,
				Duration:      c.timeout,
			}
		}
		// The response won the race against the timer; it already removed
		// the entry and the result is in flight.
		return <-p.done, nil
	case <-ctx.Done():
		if c.remove(key, p) {
			return nil, ctx.Err()
		}
		return <-p.done, nil
	}
}

// HandleResponse is the process-lifetime listener on the response event.
// It extracts the correlation id from the inbound payload and resolves
// the matching pending call with the full payload. Unknown, duplicate,
// and late ids are dropped.
func (c *Correlator) HandleResponse(payload any) {
	id := wireformat.CorrelationID(payload)
	if id == "" {
		c.logger.Debug("response without correlation id dropped", "event", c.responseEvent)
		return
	}

	c.mu.Lock()
	key := c.key(id)
	p, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("unmatched response dropped", "event", c.responseEvent, "id", id)
		return
	}
	p.done <- payload
}

// PendingCount returns the number of in-flight calls.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) key(id string) string {
	return c.responseEvent + ":" + id
}

// remove deletes the pending entry if this caller still owns it. It
// returns false when the response handler got there first.
func (c *Correlator) remove(key string, p *pendingCall) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.pending[key]; ok && current == p {
		delete(c.pending, key)
		return true
	}
	return false
}
