// Package bus implements the host event bus: in-process pub/sub keyed by
// event name, plus a registry of engine broadcasters so a single Emit
// fans out to local listeners and to every attached guest engine.
package bus

import (
	"log/slog"
	"sync"

	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
)

// Listener is a callback registered against one event name.
type Listener func(payload any)

// Subscription identifies one registered listener. It is the handle Off
// takes; a subscription removed once never receives further emissions.
type Subscription struct {
	event   string
	fn      Listener
	once    bool
	removed bool // guarded by the owning bus's mu
}

// Event returns the event name the subscription is registered for.
func (s *Subscription) Event() string { return s.event }

type engineEntry struct {
	fn      ports.Broadcaster
	removed bool // guarded by mu
}

// Bus is safe for concurrent use. Each mutation holds the bus lock only
// for the table update, never across a listener or broadcaster
// invocation; delivery iterates over a snapshot taken at emit-start, so
// registration changes during an in-progress emit affect only subsequent
// emissions.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]*Subscription
	engines   []*engineEntry
	logger    *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for isolated listener and broadcaster
// failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates an empty Bus. A process normally holds exactly one.
func New(opts ...Option) *Bus {
	b := &Bus{listeners: make(map[string][]*Subscription)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = asklog.New("bus")
	}
	return b
}

// On registers fn for event and returns its subscription. Listeners run
// in registration order.
func (b *Bus) On(event string, fn Listener) *Subscription {
	return b.subscribe(event, fn, false)
}

// Once registers fn for exactly one delivery. The subscription removes
// itself before fn runs, so a reentrant Emit of the same event from
// within fn cannot deliver twice.
func (b *Bus) Once(event string, fn Listener) *Subscription {
	return b.subscribe(event, fn, true)
}

func (b *Bus) subscribe(event string, fn Listener, once bool) *Subscription {
	sub := &Subscription{event: event, fn: fn, once: once}
	if fn == nil {
		sub.removed = true
		return sub
	}
	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], sub)
	b.mu.Unlock()
	return sub
}

// Off removes a subscription. It is a no-op on nil, repeated, or
// already-expired subscriptions. A delivery pass already holding a
// snapshot may still invoke the listener once more; removal is observed
// by the next Emit.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	b.detach(sub)
	b.mu.Unlock()
}

// detach unlinks sub from the listener table and prunes the event entry
// if it becomes empty. Caller holds mu.
func (b *Bus) detach(sub *Subscription) bool {
	if sub.removed {
		return false
	}
	sub.removed = true
	subs := b.listeners[sub.event]
	for i := range subs {
		if subs[i] == sub {
			b.listeners[sub.event] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.listeners[sub.event]) == 0 {
		delete(b.listeners, sub.event)
	}
	return true
}

// HasListeners reports whether anyone is currently subscribed to event.
// Empty entries are pruned on removal, so this is O(1).
func (b *Bus) HasListeners(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event]) > 0
}

// Emit invokes every listener registered for event in registration order,
// then forwards the event verbatim to every registered engine broadcaster
// in registration order. Listener and broadcaster failures are caught,
// logged, and isolated; Emit itself never panics.
func (b *Bus) Emit(event string, payload any) {
	b.deliverLocal(event, payload)

	b.mu.Lock()
	engines := make([]*engineEntry, len(b.engines))
	copy(engines, b.engines)
	b.mu.Unlock()

	for _, e := range engines {
		b.broadcast(e, event, payload)
	}
}

// RegisterEngine adds a broadcaster representing one attached guest
// engine and returns a capability that removes it. The unregister
// function is idempotent.
func (b *Bus) RegisterEngine(fn ports.Broadcaster) (unregister func()) {
	if fn == nil {
		return func() {}
	}
	entry := &engineEntry{fn: fn}
	b.mu.Lock()
	b.engines = append(b.engines, entry)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if entry.removed {
			return
		}
		entry.removed = true
		for i := range b.engines {
			if b.engines[i] == entry {
				b.engines = append(b.engines[:i], b.engines[i+1:]...)
				break
			}
		}
	}
}

// EngineCount returns the number of attached broadcasters.
func (b *Bus) EngineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.engines)
}

// HandleEngineMessage delivers a guest-originated event to local
// listeners only. It never reaches the engine broadcasters, which is what
// prevents echo loops when several engines are attached.
func (b *Bus) HandleEngineMessage(event string, payload any) {
	b.deliverLocal(event, payload)
}

func (b *Bus) deliverLocal(event string, payload any) {
	b.mu.Lock()
	subs := b.listeners[event]
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		if sub.once {
			b.mu.Lock()
			claimed := b.detach(sub)
			b.mu.Unlock()
			if !claimed {
				// Already delivered by a reentrant emit.
				continue
			}
		}
		b.invoke(sub, event, payload)
	}
}

func (b *Bus) invoke(sub *Subscription, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener failed", "event", event, "panic", r)
		}
	}()
	sub.fn(payload)
}

func (b *Bus) broadcast(e *engineEntry, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("engine broadcast failed", "event", event, "panic", r)
		}
	}()
	e.fn(event, payload)
}
