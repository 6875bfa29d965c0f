package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	"github.com/GoAskAway/askit-sdk/log"
)

func echoHandler() ports.ModuleHandler {
	return ports.ModuleHandlerFunc(func(_ context.Context, method string, args []any) (any, error) {
		return append([]any{method}, args...), nil
	})
}

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Empty(t, reg.Names())
}

func TestNewRegistry_WithModule(t *testing.T) {
	reg, err := NewRegistry(WithModule("toast", echoHandler()))
	require.NoError(t, err)

	assert.True(t, reg.Has("toast"))
	assert.False(t, reg.Has("haptic"))
	assert.Equal(t, []string{"toast"}, reg.Names())
}

func TestNewRegistry_DuplicateModule(t *testing.T) {
	_, err := NewRegistry(
		WithModule("toast", echoHandler()),
		WithModule("toast", echoHandler()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate module name")
}

func TestNewRegistry_EmptyName(t *testing.T) {
	_, err := NewRegistry(WithModule("", echoHandler()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestNewRegistry_NilHandler(t *testing.T) {
	_, err := NewRegistry(WithModule("toast", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler cannot be nil")
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg, err := NewRegistry(
		WithModule("zebra", echoHandler()),
		WithModule("alpha", echoHandler()),
		WithModule("middle", echoHandler()),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "middle", "zebra"}, reg.Names())
}

func TestRegistry_Invoke(t *testing.T) {
	reg, err := NewRegistry(WithModule("toast", echoHandler()))
	require.NoError(t, err)

	t.Run("known module", func(t *testing.T) {
		result, err := reg.Invoke(context.Background(), "toast", "show", []any{"Hello"})
		require.NoError(t, err)
		assert.Equal(t, []any{"show", "Hello"}, result)
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := reg.Invoke(context.Background(), "storage", "get", nil)
		var unknownErr *domainerrors.UnknownModuleError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "storage", unknownErr.Module)
	})
}

func TestRegistry_MiddlewareOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, method string, args []any) (any, error) {
				trace = append(trace, name+":before")
				result, err := next(ctx, method, args)
				trace = append(trace, name+":after")
				return result, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(mw("outer"), mw("inner")),
		WithModule("toast", echoHandler()),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "toast", "show", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:before", "inner:before", "inner:after", "outer:after"}, trace)
}

func TestPanicRecovery(t *testing.T) {
	panicky := ports.ModuleHandlerFunc(func(context.Context, string, []any) (any, error) {
		panic("module blew up")
	})

	reg, err := NewRegistry(
		WithMiddleware(PanicRecovery()),
		WithModule("toast", panicky),
	)
	require.NoError(t, err)

	var result any
	assert.NotPanics(t, func() {
		result, err = reg.Invoke(context.Background(), "toast", "show", nil)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
	assert.Nil(t, result)
}

func TestLoggingMiddleware(t *testing.T) {
	reg, err := NewRegistry(
		WithMiddleware(Logging(log.Nop())),
		WithModule("toast", echoHandler()),
	)
	require.NoError(t, err)

	result, err := reg.Invoke(context.Background(), "toast", "show", []any{"x"})
	require.NoError(t, err)
	assert.Equal(t, []any{"show", "x"}, result)
}
