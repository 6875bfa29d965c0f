// Package haptic implements the "haptic" module handler over a Driver
// port; the physical actuator backend is supplied by the embedding host
// application.
package haptic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoAskAway/askit-sdk/application/schema"
	"github.com/GoAskAway/askit-sdk/config"
	"github.com/GoAskAway/askit-sdk/domain/errors"
	"github.com/GoAskAway/askit-sdk/domain/ports"
	asklog "github.com/GoAskAway/askit-sdk/log"
)

// ModuleName is the registry key ("askit:haptic:vibrate").
const ModuleName = "haptic"

// Impact styles accepted by the impact method.
type Impact struct {
	Style string `json:"style" validate:"required,oneof=light medium heavy"`
}

// Driver is the platform actuator backend.
type Driver interface {
	Vibrate(ctx context.Context, d time.Duration) error
	Impact(ctx context.Context, i Impact) error
}

// Handler routes haptic methods to a Driver.
type Handler struct {
	driver Driver
	logger *slog.Logger
}

var _ ports.ModuleHandler = (*Handler)(nil)

// Option configures the Handler.
type Option func(*Handler)

// WithDriver sets the actuator backend. The default backend only logs.
func WithDriver(d Driver) Option {
	return func(h *Handler) {
		if d != nil {
			h.driver = d
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

// Schema returns the JSON schema of the impact payload.
func Schema() ([]byte, error) {
	return schema.Generate(&Impact{})
}

// New creates a haptic Handler.
func New(opts ...Option) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = asklog.New("haptic")
	}
	if h.driver == nil {
		h.driver = &logDriver{logger: h.logger}
	}
	return h
}

// Handle implements ports.ModuleHandler.
//
// Methods:
//   - vibrate(durationMs? number), default 200ms; also vibrate({durationMs})
//   - impact(style "light"|"medium"|"heavy"); also impact({style})
func (h *Handler) Handle(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "vibrate":
		d, err := decodeVibrateArgs(args)
		if err != nil {
			return nil, &errors.ArgumentError{Err: err, Module: ModuleName, Method: method}
		}
		return nil, h.driver.Vibrate(ctx, d)
	case "impact":
		i, err := decodeImpactArgs(args)
		if err != nil {
			return nil, &errors.ArgumentError{Err: err, Module: ModuleName, Method: method}
		}
		return nil, h.driver.Impact(ctx, i)
	default:
		return nil, &errors.UnknownMethodError{Module: ModuleName, Method: method}
	}
}

const defaultVibration = 200 * time.Millisecond

func decodeVibrateArgs(args []any) (time.Duration, error) {
	if len(args) == 0 || args[0] == nil {
		return defaultVibration, nil
	}
	var ms float64
	switch v := args[0].(type) {
	case float64:
		ms = v
	case int:
		ms = float64(v)
	case map[string]any:
		ms = float64(config.OptionalInt(v, "durationMs", int(defaultVibration/time.Millisecond)))
	default:
		return 0, fmt.Errorf("durationMs must be a number")
	}
	if ms < 0 {
		return 0, fmt.Errorf("durationMs must not be negative")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func decodeImpactArgs(args []any) (Impact, error) {
	if len(args) == 0 {
		return Impact{}, fmt.Errorf("impact requires a style argument")
	}
	var i Impact
	switch v := args[0].(type) {
	case string:
		i.Style = v
	case map[string]any:
		i.Style = config.OptionalString(v, "style", "")
	default:
		return Impact{}, fmt.Errorf("style must be a string")
	}
	if err := config.ValidateStruct(&i); err != nil {
		return Impact{}, err
	}
	return i, nil
}

// logDriver is the default backend; it records the effect instead of
// actuating it.
type logDriver struct {
	logger *slog.Logger
}

func (l *logDriver) Vibrate(_ context.Context, d time.Duration) error {
	l.logger.Info("vibrate", "duration", d)
	return nil
}

func (l *logDriver) Impact(_ context.Context, i Impact) error {
	l.logger.Info("impact", "style", i.Style)
	return nil
}
