package ports

// Receiver is the inbound callback registration point of a transport: the
// transport invokes it with (event, payload) pairs in arrival order.
type Receiver func(event string, payload any)

// Broadcaster pushes an event into one attached guest engine's inbound
// channel, from the host's perspective.
type Broadcaster func(event string, payload any)

// SendFunc is the outbound send primitive supplied by the surrounding
// transport. Payloads must be JSON-serializable.
type SendFunc func(event string, payload any) error

// Transport is one bidirectional host/guest channel. Implementations are
// expected to deliver messages reliably and in order; the core does not
// re-sequence.
type Transport interface {
	// Send transmits an event to the peer.
	Send(event string, payload any) error

	// SetReceiver registers the inbound callback. Must be called before
	// the transport starts delivering; messages arriving with no receiver
	// set may be dropped.
	SetReceiver(r Receiver)

	// Close tears the channel down. Idempotent.
	Close() error
}
