// Package host wires the SDK together on the privileged side: one event
// bus, one dispatcher over the configured module registry, and the set of
// attached guest engines. A process normally constructs exactly one Host
// and passes it to all collaborators; nothing here is a global.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/config"
	"github.com/GoAskAway/askit-sdk/dispatch"
	"github.com/GoAskAway/askit-sdk/domain/entities"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// Host owns the bus, the dispatcher, and the attached engines.
type Host struct {
	bus        *bus.Bus
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	sink       ports.ViolationSink

	mu      sync.Mutex
	engines map[*Engine]struct{}
}

// New creates a Host. The module registry is required; everything else
// has defaults.
func New(registry *dispatch.ModuleRegistry, opts ...Option) (*Host, error) {
	if registry == nil {
		return nil, fmt.Errorf("host: module registry is required")
	}

	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = asklog.New("host")
	}
	if cfg.bus == nil {
		cfg.bus = bus.New(bus.WithLogger(cfg.logger.With("subsystem", "bus")))
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(cfg.logger.With("subsystem", "dispatch")),
	}
	if cfg.prefix != "" {
		dispatchOpts = append(dispatchOpts, dispatch.WithPrefix(cfg.prefix))
	}
	if cfg.gate != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithGate(cfg.gate))
	}

	return &Host{
		bus:        cfg.bus,
		dispatcher: dispatch.New(registry, cfg.bus, dispatchOpts...),
		logger:     cfg.logger,
		sink:       cfg.sink,
		engines:    make(map[*Engine]struct{}),
	}, nil
}

// Bus exposes the host event bus. Emitting on it fans out to local
// listeners and every attached engine.
func (h *Host) Bus() *bus.Bus {
	return h.bus
}

// Dispatcher exposes the dispatcher, mainly for embedding hosts that run
// their own transports.
func (h *Host) Dispatcher() *dispatch.Dispatcher {
	return h.dispatcher
}

// Attach connects one guest engine over t, authorized per the manifest.
// It validates the manifest, derives the engine's dispatch options from
// its grants, registers the transport as a bus broadcaster, and starts
// routing inbound messages through the dispatcher.
func (h *Host) Attach(t ports.Transport, m entities.Manifest) (*Engine, error) {
	if t == nil {
		return nil, fmt.Errorf("host: transport is required")
	}
	if err := config.ValidateManifest(m); err != nil {
		return nil, err
	}

	logger := h.logger.With("engine", m.Name)
	opts := dispatch.Options{
		Permissions: m.PermissionSet(),
		Mode:        m.Mode(),
		OnViolation: h.engineSink(logger),
	}

	e := &Engine{
		name:      m.Name,
		host:      h,
		transport: t,
	}

	t.SetReceiver(func(event string, payload any) {
		h.dispatcher.Dispatch(context.Background(), wireformat.Envelope{Event: event, Payload: payload}, opts)
	})
	e.unregister = h.bus.RegisterEngine(func(event string, payload any) {
		if err := t.Send(event, payload); err != nil {
			logger.Warn("engine send failed", "event", event, "error", err)
		}
	})

	h.mu.Lock()
	h.engines[e] = struct{}{}
	h.mu.Unlock()

	logger.Info("engine attached", "mode", m.Mode(), "grants", len(m.Permissions))
	return e, nil
}

// engineSink logs violations and forwards them to the host-wide sink when
// one is configured.
func (h *Host) engineSink(logger *slog.Logger) ports.ViolationSink {
	return func(v entities.Violation) {
		logger.Warn("permission violation", "kind", v.Kind, "module", v.Module, "method", v.Method)
		if h.sink != nil {
			h.sink(v)
		}
	}
}

// EngineCount returns the number of currently attached engines.
func (h *Host) EngineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.engines)
}

// Close detaches every engine.
func (h *Host) Close() error {
	h.mu.Lock()
	engines := make([]*Engine, 0, len(h.engines))
	for e := range h.engines {
		engines = append(engines, e)
	}
	h.mu.Unlock()

	var firstErr error
	for _, e := range engines {
		if err := e.Detach(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Engine is one attached guest from the host's perspective.
type Engine struct {
	name       string
	host       *Host
	transport  ports.Transport
	unregister func()
	detachOnce sync.Once
}

// Name returns the manifest name the engine attached under.
func (e *Engine) Name() string { return e.name }

// Detach removes the engine's broadcaster and closes its transport.
// Idempotent.
func (e *Engine) Detach() error {
	var err error
	e.detachOnce.Do(func() {
		e.unregister()
		err = e.transport.Close()

		e.host.mu.Lock()
		delete(e.host.engines, e)
		e.host.mu.Unlock()

		e.host.logger.Info("engine detached", "engine", e.name)
	})
	return err
}
