package host

import (
	"log/slog"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/domain/policy"
	"github.com/GoAskAway/askit-sdk/domain/ports"
)

type hostConfig struct {
	bus    *bus.Bus
	gate   *policy.Gate
	prefix string
	logger *slog.Logger
	sink   ports.ViolationSink
}

func defaultHostConfig() hostConfig {
	return hostConfig{}
}

// Option defines a functional option for configuring the Host.
type Option func(*hostConfig)

// WithBus supplies an existing bus instead of constructing one.
func WithBus(b *bus.Bus) Option {
	return func(c *hostConfig) {
		c.bus = b
	}
}

// WithGate replaces the dispatcher's default permission gate.
func WithGate(g *policy.Gate) Option {
	return func(c *hostConfig) {
		c.gate = g
	}
}

// WithPrefix overrides the module event prefix (default "askit").
func WithPrefix(prefix string) Option {
	return func(c *hostConfig) {
		c.prefix = prefix
	}
}

// WithLogger sets the root logger; component loggers derive from it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = logger
	}
}

// WithViolationSink registers a host-wide sink that receives every
// engine's permission violations in addition to the per-engine log line.
func WithViolationSink(sink ports.ViolationSink) Option {
	return func(c *hostConfig) {
		c.sink = sink
	}
}
