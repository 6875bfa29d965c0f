package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoAskAway/askit-sdk/bus"
	"github.com/GoAskAway/askit-sdk/domain/entities"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	"github.com/GoAskAway/askit-sdk/log"
	"github.com/GoAskAway/askit-sdk/wireformat"
)

// recordingHandler captures every invocation for assertions.
type recordingHandler struct {
	mu    sync.Mutex
	calls []recordedCall
}

type recordedCall struct {
	Method string
	Args   []any
}

func (h *recordingHandler) Handle(_ context.Context, method string, args []any) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, recordedCall{Method: method, Args: args})
	return nil, nil
}

func (h *recordingHandler) Calls() []recordedCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedCall(nil), h.calls...)
}

func newTestDispatcher(t *testing.T, handler ports.ModuleHandler) (*Dispatcher, *bus.Bus) {
	t.Helper()
	reg, err := NewRegistry(WithModule("toast", handler))
	require.NoError(t, err)
	b := bus.New(bus.WithLogger(log.Nop()))
	return New(reg, b, WithLogger(log.Nop())), b
}

func allowAll() Options {
	return Options{Mode: entities.ModeAllow}
}

func TestDispatch_ModuleCallWithPositionalArgs(t *testing.T) {
	h := &recordingHandler{}
	d, _ := newTestDispatcher(t, h)

	d.Dispatch(context.Background(), wireformat.Envelope{
		Event:   "askit:toast:show",
		Payload: []any{"Hello", map[string]any{"duration": "long"}},
	}, allowAll())

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "show", calls[0].Method)
	assert.Equal(t, []any{"Hello", map[string]any{"duration": "long"}}, calls[0].Args)
}

func TestDispatch_ScalarPayloadWrappedAsSingleArg(t *testing.T) {
	h := &recordingHandler{}
	d, _ := newTestDispatcher(t, h)

	d.Dispatch(context.Background(), wireformat.Envelope{
		Event:   "askit:toast:show",
		Payload: "Hello",
	}, allowAll())

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"Hello"}, calls[0].Args)
}

func TestDispatch_AbsentPayloadYieldsEmptyArgs(t *testing.T) {
	h := &recordingHandler{}
	d, _ := newTestDispatcher(t, h)

	d.Dispatch(context.Background(), wireformat.Envelope{Event: "askit:toast:hide"}, allowAll())

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "hide", calls[0].Method)
	assert.Empty(t, calls[0].Args)
}

func TestDispatch_UnknownModuleDropsCall(t *testing.T) {
	h := &recordingHandler{}
	d, _ := newTestDispatcher(t, h)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), wireformat.Envelope{Event: "askit:storage:get"}, allowAll())
	})
	assert.Empty(t, h.Calls())
}

func TestDispatch_UnknownEventDropsCall(t *testing.T) {
	h := &recordingHandler{}
	d, b := newTestDispatcher(t, h)

	heard := false
	b.On("random", func(any) { heard = true })

	d.Dispatch(context.Background(), wireformat.Envelope{Event: "random", Payload: 1}, allowAll())

	assert.Empty(t, h.Calls())
	assert.False(t, heard, "bare events from the wire are not bus events unless bus-prefixed")
}

func TestDispatch_BusPassthrough(t *testing.T) {
	h := &recordingHandler{}
	d, b := newTestDispatcher(t, h)

	var got []any
	b.On("player:ready", func(payload any) { got = append(got, payload) })

	echoed := 0
	b.RegisterEngine(func(string, any) { echoed++ })

	d.Dispatch(context.Background(), wireformat.Envelope{
		Event:   "bus:player:ready",
		Payload: map[string]any{"level": float64(3)},
	}, allowAll())

	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"level": float64(3)}, got[0])
	assert.Zero(t, echoed, "guest-originated bus events must not echo to engines")
	assert.Empty(t, h.Calls())
}

func TestDispatch_PermissionModes(t *testing.T) {
	env := wireformat.Envelope{Event: "askit:toast:show", Payload: []any{"Hello"}}

	t.Run("deny with empty grants blocks and records one violation", func(t *testing.T) {
		h := &recordingHandler{}
		d, _ := newTestDispatcher(t, h)

		var violations []entities.Violation
		d.Dispatch(context.Background(), env, Options{
			Mode:        entities.ModeDeny,
			OnViolation: func(v entities.Violation) { violations = append(violations, v) },
		})

		assert.Empty(t, h.Calls())
		require.Len(t, violations, 1)
		assert.Equal(t, entities.ViolationMissingPermission, violations[0].Kind)
		assert.Equal(t, "toast", violations[0].Module)
		assert.Equal(t, "show", violations[0].Method)
	})

	t.Run("warn runs the handler and still records the violation", func(t *testing.T) {
		h := &recordingHandler{}
		d, _ := newTestDispatcher(t, h)

		var violations []entities.Violation
		d.Dispatch(context.Background(), env, Options{
			Mode:        entities.ModeWarn,
			OnViolation: func(v entities.Violation) { violations = append(violations, v) },
		})

		assert.Len(t, h.Calls(), 1)
		assert.Len(t, violations, 1)
	})

	t.Run("allow runs the handler and records nothing", func(t *testing.T) {
		h := &recordingHandler{}
		d, _ := newTestDispatcher(t, h)

		var violations []entities.Violation
		d.Dispatch(context.Background(), env, Options{
			Mode:        entities.ModeAllow,
			OnViolation: func(v entities.Violation) { violations = append(violations, v) },
		})

		assert.Len(t, h.Calls(), 1)
		assert.Empty(t, violations)
	})

	t.Run("deny with matching grant proceeds", func(t *testing.T) {
		h := &recordingHandler{}
		d, _ := newTestDispatcher(t, h)

		d.Dispatch(context.Background(), env, Options{
			Mode:        entities.ModeDeny,
			Permissions: entities.NewPermissionSet("toast:show"),
		})

		assert.Len(t, h.Calls(), 1)
	})
}

func TestDispatch_HandlerErrorIsSwallowed(t *testing.T) {
	failing := ports.ModuleHandlerFunc(func(context.Context, string, []any) (any, error) {
		panic("handler exploded")
	})
	reg, err := NewRegistry(
		WithMiddleware(PanicRecovery()),
		WithModule("toast", failing),
	)
	require.NoError(t, err)
	d := New(reg, bus.New(bus.WithLogger(log.Nop())), WithLogger(log.Nop()))

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), wireformat.Envelope{Event: "askit:toast:show"}, allowAll())
	})
}

func TestDispatch_CustomPrefix(t *testing.T) {
	h := &recordingHandler{}
	reg, err := NewRegistry(WithModule("toast", h))
	require.NoError(t, err)
	d := New(reg, bus.New(bus.WithLogger(log.Nop())), WithLogger(log.Nop()), WithPrefix("myapp"))

	d.Dispatch(context.Background(), wireformat.Envelope{Event: "myapp:toast:show"}, allowAll())
	d.Dispatch(context.Background(), wireformat.Envelope{Event: "askit:toast:show"}, allowAll())

	require.Len(t, h.Calls(), 1, "only the configured prefix routes to modules")
	assert.Equal(t, "myapp", d.Prefix())
}
