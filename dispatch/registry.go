package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/domain/ports"
)

// ModuleRegistry is an immutable collection of named module handlers.
// Once created via NewRegistry, handlers cannot be added or removed;
// this keeps lookups lock-free during dispatch. Host applications
// register concrete handlers (toast, haptic, ...) at configuration time.
type ModuleRegistry struct {
	handlers map[string]HandlerFunc
	names    []string // sorted for consistent iteration
}

// HandlerFunc is the invocation form middleware wraps.
type HandlerFunc func(ctx context.Context, method string, args []any) (any, error)

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]ports.ModuleHandler
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a ModuleRegistry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable ModuleRegistry with the given options.
// Returns an error if any module name is registered twice or is empty.
//
// Example usage:
//
//	registry, err := dispatch.NewRegistry(
//	    dispatch.WithMiddleware(dispatch.PanicRecovery()),
//	    dispatch.WithModule("toast", toastHandler),
//	)
func NewRegistry(opts ...RegistryOption) (*ModuleRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ports.ModuleHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply the middleware chain so the first registered middleware wraps
	// outermost.
	wrapped := make(map[string]HandlerFunc, len(b.handlers))
	for name, handler := range b.handlers {
		fn := handler.Handle
		for i := len(b.middleware) - 1; i >= 0; i-- {
			fn = b.middleware[i](fn)
		}
		wrapped[name] = fn
	}

	return &ModuleRegistry{handlers: wrapped, names: names}, nil
}

// WithModule registers a handler under a module name.
func WithModule(name string, handler ports.ModuleHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addModule(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry. Middleware executes in
// FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

func (b *registryBuilder) addModule(name string, handler ports.ModuleHandler) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("module %q: handler cannot be nil", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate module name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// Invoke routes a call to the named module's handler through the
// middleware chain. Unknown modules yield an UnknownModuleError.
func (r *ModuleRegistry) Invoke(ctx context.Context, module, method string, args []any) (any, error) {
	fn, ok := r.handlers[module]
	if !ok {
		return nil, &errors.UnknownModuleError{Module: module}
	}
	return fn(ctx, method, args)
}

// Has reports whether a handler is registered under name.
func (r *ModuleRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of registered module names.
func (r *ModuleRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}
