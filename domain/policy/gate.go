// Package policy implements the permission gate: it decides whether a
// decoded module/method call is authorized under the caller's enforcement
// mode, and reports violations to a sink without ever blocking the
// dispatcher itself.
package policy

import (
	"github.com/GoAskAway/askit-sdk/domain/entities"
	"github.com/GoAskAway/askit-sdk/domain/ports"
)

// Context is the immutable per-dispatch snapshot the gate evaluates
// against: the granted permission set, the enforcement mode, and an
// optional violation sink.
type Context struct {
	Permissions entities.PermissionSet
	Mode        entities.PermissionMode
	OnViolation ports.ViolationSink
}

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed   bool
	Violation *entities.Violation
}

type gateConfig struct {
	sink ports.ViolationSink
}

func defaultGateConfig() gateConfig {
	return gateConfig{sink: ports.NopSink}
}

// Option configures the Gate.
type Option func(*gateConfig)

// WithSink sets the fallback violation sink, used when the per-dispatch
// context supplies none.
func WithSink(sink ports.ViolationSink) Option {
	return func(c *gateConfig) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// Gate evaluates module/method authorization. It is stateless with
// respect to callers: all grant data arrives in the per-dispatch Context.
type Gate struct {
	config gateConfig
}

// NewGate creates a Gate.
func NewGate(opts ...Option) *Gate {
	cfg := defaultGateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Gate{config: cfg}
}

// Check evaluates module:method against ctx.
//
//   - allow: always allowed, nothing recorded.
//   - deny: allowed iff the grant set covers the call; otherwise blocked
//     and a missing_permission violation goes to the sink.
//   - warn: same membership test as deny, but the call always proceeds;
//     the violation is still recorded so the gap can be audited.
//
// An unrecognized mode is treated as deny.
func (g *Gate) Check(module, method string, ctx Context) Decision {
	if ctx.Mode == entities.ModeAllow {
		return Decision{Allowed: true}
	}

	if ctx.Permissions.Allows(module, method) {
		return Decision{Allowed: true}
	}

	v := entities.Violation{
		Kind:   entities.ViolationMissingPermission,
		Module: module,
		Method: method,
	}
	g.report(v, ctx)

	return Decision{
		Allowed:   ctx.Mode == entities.ModeWarn,
		Violation: &v,
	}
}

func (g *Gate) report(v entities.Violation, ctx Context) {
	sink := ctx.OnViolation
	if sink == nil {
		sink = g.config.sink
	}
	sink(v)
}
