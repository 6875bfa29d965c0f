// Package toast implements the "toast" module handler. The actual
// rendering lives behind the Notifier port so the platform backend stays
// external to the messaging core.
package toast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoAskAway/askit-sdk/application/schema"
	"github.com/GoAskAway/askit-sdk/config"
	"github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
)

// ModuleName is the registry key and the module segment of the wire event
// ("askit:toast:show").
const ModuleName = "toast"

// Notification is the decoded payload of a show call.
type Notification struct {
	Message  string `json:"message" validate:"required"`
	Duration string `json:"duration,omitempty" validate:"omitempty,oneof=short long"`
	Position string `json:"position,omitempty" validate:"omitempty,oneof=top center bottom"`
}

// Notifier is the platform backend that renders toasts.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Hide(ctx context.Context) error
}

// Handler routes toast methods to a Notifier.
type Handler struct {
	notifier Notifier
	logger   *slog.Logger
}

var _ ports.ModuleHandler = (*Handler)(nil)

// Option configures the Handler.
type Option func(*Handler)

// WithNotifier sets the platform backend. The default backend only logs.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Schema returns the JSON schema of the show payload, for embedding hosts
// that document or validate what guests may send.
func Schema() ([]byte, error) {
	return schema.Generate(&Notification{})
}

// New creates a toast Handler.
func New(opts ...Option) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = asklog.New("toast")
	}
	if h.notifier == nil {
		h.notifier = &logNotifier{logger: h.logger}
	}
	return h
}

// Handle implements ports.ModuleHandler.
//
// Methods:
//   - show(message string, options? {duration, position})
//   - show({message, duration?, position?})
//   - hide()
func (h *Handler) Handle(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "show":
		n, err := decodeShowArgs(args)
		if err != nil {
			return nil, &errors.ArgumentError{Err: err, Module: ModuleName, Method: method}
		}
		return nil, h.notifier.Show(ctx, n)
	case "hide":
		return nil, h.notifier.Hide(ctx)
	default:
		return nil, &errors.UnknownMethodError{Module: ModuleName, Method: method}
	}
}

func decodeShowArgs(args []any) (Notification, error) {
	if len(args) == 0 {
		return Notification{}, fmt.Errorf("show requires a message argument")
	}
	// Object form: the whole notification arrives as one map.
	if opts, ok := args[0].(map[string]any); ok {
		if _, err := config.RequireString(opts, "message"); err != nil {
			return Notification{}, err
		}
		var n Notification
		if err := config.Decode(opts, &n); err != nil {
			return Notification{}, err
		}
		return n, nil
	}
	message, ok := args[0].(string)
	if !ok || message == "" {
		return Notification{}, fmt.Errorf("message must be a non-empty string")
	}

	n := Notification{Message: message}
	if len(args) > 1 && args[1] != nil {
		opts, ok := args[1].(map[string]any)
		if !ok {
			return Notification{}, fmt.Errorf("options must be an object")
		}
		if err := config.Decode(opts, &n); err != nil {
			return Notification{}, err
		}
		n.Message = message
	}
	return n, nil
}

// logNotifier is the default backend; it records the toast instead of
// rendering it.
type logNotifier struct {
	logger *slog.Logger
}

func (l *logNotifier) Show(_ context.Context, n Notification) error {
	l.logger.Info("toast", "message", n.Message, "duration", n.Duration, "position", n.Position)
	return nil
}

func (l *logNotifier) Hide(context.Context) error {
	l.logger.Info("toast hidden")
	return nil
}
