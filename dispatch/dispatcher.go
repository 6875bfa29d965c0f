// Package dispatch decodes wire-level event names into module/method
// routing, applies the permission gate, and forwards bus-namespaced
// events to the host event bus.
package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/domain/entities"
	"github.com/GoAskAway/askit-sdk/domain/policy"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// Options is the per-dispatch configuration: the granted permission set,
// the enforcement mode, and an optional violation sink. It is treated as
// an immutable snapshot for the duration of one Dispatch call.
type Options struct {
	Permissions entities.PermissionSet
	Mode        entities.PermissionMode
	OnViolation ports.ViolationSink
}

// Dispatcher routes inbound guest messages. Its side effects are confined
// to handler invocation, bus delivery, and log lines; Dispatch never
// panics outward and never returns an error to the transport.
type Dispatcher struct {
	prefix   string
	registry *ModuleRegistry
	bus      *bus.Bus
	gate     *policy.Gate
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrefix overrides the module event prefix (default "askit").
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithGate replaces the default permission gate.
func WithGate(gate *policy.Gate) Option {
	return func(d *Dispatcher) {
		if gate != nil {
			d.gate = gate
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Dispatcher over a module registry and the host bus.
func New(registry *ModuleRegistry, b *bus.Bus, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prefix:   DefaultPrefix,
		registry: registry,
		bus:      b,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.gate == nil {
		d.gate = policy.NewGate()
	}
	if d.logger == nil {
		d.logger = asklog.New("dispatch")
	}
	return d
}

// Prefix returns the module event prefix in use.
func (d *Dispatcher) Prefix() string { return d.prefix }

// Dispatch routes one inbound message.
//
//  1. "<prefix>:<module>:<method>" looks up the module handler, runs the
//     permission gate, normalizes the payload to positional args, and
//     invokes the handler. Unknown modules and gate denials drop the call
//     with a warning or a reported violation; they never raise.
//  2. "bus:<event>" strips the prefix and delivers the remainder to the
//     bus's local listeners (no broadcaster fan-out, so no echo).
//  3. Anything else is logged as an unknown event and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, msg wireformat.Envelope, opts Options) {
	if route, ok := ParseEventName(d.prefix, msg.Event); ok {
		d.dispatchModule(ctx, route, msg.Payload, opts)
		return
	}

	if strings.HasPrefix(msg.Event, busPrefix) {
		d.bus.HandleEngineMessage(msg.Event[len(busPrefix):], msg.Payload)
		return
	}

	d.logger.Warn("unknown event", "event", msg.Event)
}

func (d *Dispatcher) dispatchModule(ctx context.Context, route Route, payload any, opts Options) {
	if !d.registry.Has(route.Module) {
		d.logger.Warn("unknown module", "module", route.Module, "method", route.Method)
		return
	}

	decision := d.gate.Check(route.Module, route.Method, policy.Context{
		Permissions: opts.Permissions,
		Mode:        opts.Mode,
		OnViolation: opts.OnViolation,
	})
	if !decision.Allowed {
		d.logger.Warn("call blocked", "module", route.Module, "method", route.Method)
		return
	}

	args := normalizeArgs(payload)
	if _, err := d.registry.Invoke(ctx, route.Module, route.Method, args); err != nil {
		d.logger.Warn("module call failed", "module", route.Module, "method", route.Method, "error", err)
	}
}

// normalizeArgs turns a payload into a positional argument list: a
// sequence is used as-is, an absent payload becomes an empty list, and
// anything else is wrapped as a single argument.
func normalizeArgs(payload any) []any {
	switch v := payload.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{payload}
	}
}
