// Package pipe provides an in-process transport pair: two endpoints
// cross-wired so that one side's Send becomes the other side's inbound
// delivery, in FIFO order. It backs same-process guests and tests.
package pipe

import (
	"fmt"
	"sync"

	"github.com/GoAskAway/askit-sdk/domain/ports"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

const defaultQueueSize = 64

// Endpoint is one side of the pipe.
type Endpoint struct {
	mu       sync.Mutex
	receiver ports.Receiver
	peer     *Endpoint
	queue    chan wireformat.Envelope
	done     chan struct{}
	once     sync.Once
}

var _ ports.Transport = (*Endpoint)(nil)

// New creates a connected endpoint pair. Delivery runs on one goroutine
// per endpoint, preserving send order.
func New() (*Endpoint, *Endpoint) {
	a := newEndpoint()
	b := newEndpoint()
	a.peer, b.peer = b, a
	go a.deliverLoop()
	go b.deliverLoop()
	return a, b
}

func newEndpoint() *Endpoint {
	return &Endpoint{
		queue: make(chan wireformat.Envelope, defaultQueueSize),
		done:  make(chan struct{}),
	}
}

// Send enqueues an envelope for the peer.
func (e *Endpoint) Send(event string, payload any) error {
	select {
	case <-e.done:
		return fmt.Errorf("pipe: closed")
	case <-e.peer.done:
		return fmt.Errorf("pipe: peer closed")
	case e.peer.queue <- wireformat.Envelope{Event: event, Payload: payload}:
		return nil
	}
}

// SetReceiver registers the inbound callback.
func (e *Endpoint) SetReceiver(r ports.Receiver) {
	e.mu.Lock()
	e.receiver = r
	e.mu.Unlock()
}

// Close stops delivery on this endpoint. Idempotent.
func (e *Endpoint) Close() error {
	e.once.Do(func() {
		close(e.done)
	})
	return nil
}

func (e *Endpoint) deliverLoop() {
	for {
		select {
		case <-e.done:
			return
		case env := <-e.queue:
			e.mu.Lock()
			r := e.receiver
			e.mu.Unlock()
			if r != nil {
				r(env.Event, env.Payload)
			}
		}
	}
}
