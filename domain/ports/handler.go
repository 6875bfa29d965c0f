package ports

import "context"

// ModuleHandler performs the host-side effect for one module. The
// dispatcher routes decoded module events here; implementations switch on
// the method name and interpret args positionally.
//
// Handle must not panic across the boundary; the dispatcher wraps handlers
// in panic recovery, but well-behaved implementations return errors.
type ModuleHandler interface {
	Handle(ctx context.Context, method string, args []any) (any, error)
}

// ModuleHandlerFunc adapts a function to the ModuleHandler interface.
type ModuleHandlerFunc func(ctx context.Context, method string, args []any) (any, error)

func (f ModuleHandlerFunc) Handle(ctx context.Context, method string, args []any) (any, error) {
	return f(ctx, method, args)
}
