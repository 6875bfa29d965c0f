// Package wasm runs a guest engine inside a WASM sandbox (wazero) and
// adapts it to the SDK's transport port.
//
// ABI contract with the guest module:
//   - the host instantiates a module named "askit_host" exporting
//     emit(packed uint64), which the guest calls to push an envelope to
//     the host; packed is (ptr << 32 | len) into guest linear memory,
//   - the guest exports allocate(size uint32) uint32 and
//     receive(ptr, len uint32), which the host uses to push an envelope
//     into the guest.
//
// Envelopes are JSON on both directions.
package wasm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// HostModuleName is the import namespace the guest binds host functions
// from.
const HostModuleName = "askit_host"

// Engine hosts one sandboxed guest module.
type Engine struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module
	logger  *slog.Logger

	mu   sync.Mutex
	recv ports.Receiver

	// callMu serializes calls into the guest; wazero module instances are
	// not safe for concurrent export invocation.
	callMu sync.Mutex
	once   sync.Once
}

var _ ports.Transport = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New compiles and instantiates a guest module. ctx bounds the engine's
// lifetime. The receiver should be set before the guest starts emitting;
// events emitted earlier are dropped with a log line.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Engine, error) {
	e := &Engine{ctx: ctx}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = asklog.New("wasm")
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostModule(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("register host module: %w", err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("guest _initialize: %w", err)
		}
	}
	e.module = mod
	return e, nil
}

func (e *Engine) registerHostModule(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder(HostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, packed uint64) {
			ptr := uint32(packed >> 32)
			length := uint32(packed)
			data, ok := m.Memory().Read(ptr, length)
			if !ok {
				e.logger.Warn("guest emit with invalid memory range", "ptr", ptr, "len", length)
				return
			}
			env, err := wireformat.DecodeEnvelope(data)
			if err != nil {
				e.logger.Warn("guest emit with malformed envelope", "error", err)
				return
			}
			e.mu.Lock()
			r := e.recv
			e.mu.Unlock()
			if r == nil {
				e.logger.Warn("guest event dropped, no receiver", "event", env.Event)
				return
			}
			r(env.Event, env.Payload)
		}).
		Export("emit")

	_, err := builder.Instantiate(ctx)
	return err
}

// Send pushes an envelope into the guest via its allocate/receive
// exports.
func (e *Engine) Send(event string, payload any) error {
	data, err := wireformat.Envelope{Event: event, Payload: payload}.Encode()
	if err != nil {
		return err
	}

	e.callMu.Lock()
	defer e.callMu.Unlock()

	allocate := e.module.ExportedFunction("allocate")
	receive := e.module.ExportedFunction("receive")
	if allocate == nil || receive == nil {
		return fmt.Errorf("guest does not export allocate/receive")
	}

	results, err := allocate.Call(e.ctx, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("guest allocate: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("guest allocate returned no results")
	}
	ptr := uint32(results[0])
	if !e.module.Memory().Write(ptr, data) {
		return fmt.Errorf("write to guest memory failed")
	}
	if _, err := receive.Call(e.ctx, uint64(ptr), uint64(len(data))); err != nil {
		return fmt.Errorf("guest receive: %w", err)
	}
	return nil
}

// SetReceiver registers the inbound callback for guest-emitted events.
func (e *Engine) SetReceiver(r ports.Receiver) {
	e.mu.Lock()
	e.recv = r
	e.mu.Unlock()
}

// Close tears the runtime down, releasing the guest instance. Idempotent.
func (e *Engine) Close() error {
	var err error
	e.once.Do(func() {
		err = e.runtime.Close(e.ctx)
	})
	return err
}
