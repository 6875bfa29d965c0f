package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Middleware wraps a HandlerFunc to add cross-cutting behavior around
// module handler invocations. Middleware executes in FIFO order (first
// registered wraps first, onion model).
type Middleware func(next HandlerFunc) HandlerFunc

// PanicRecovery returns a middleware that converts handler panics into
// errors so a misbehaving module cannot take the dispatcher down.
func PanicRecovery() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, method string, args []any) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, method, args)
		}
	}
}

// Logging returns a middleware that records every module handler
// invocation and its outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, method string, args []any) (any, error) {
			start := time.Now()
			result, err := next(ctx, method, args)
			if err != nil {
				logger.Warn("module call failed", "method", method, "duration", time.Since(start), "error", err)
			} else {
				logger.Debug("module call completed", "method", method, "duration", time.Since(start))
			}
			return result, err
		}
	}
}
