// Package log constructs the structured loggers (slog) used across the
// SDK. Every component that swallows a failure (listener panics, unknown
// modules, dropped responses) reports it through one of these.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Option configures the logger.
type Option func(*config)

type config struct {
	level     slog.Level
	output    io.Writer
	addSource bool
}

func defaultConfig() config {
	return config{
		level:  slog.LevelInfo,
		output: os.Stderr,
	}
}

// WithLevel sets the minimum level to emit.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput redirects log output, mainly for tests.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) Option {
	return func(c *config) {
		c.addSource = enabled
	}
}

// New returns a JSON slog.Logger scoped to one component.
func New(component string, opts ...Option) *slog.Logger {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	handler := slog.NewJSONHandler(cfg.output, &slog.HandlerOptions{
		Level:     cfg.level,
		AddSource: cfg.addSource,
	})
	return slog.New(handler).With("component", component)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
