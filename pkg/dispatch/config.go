package dispatch

import (
	"log/slog"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/metrics"
)

// Config holds dispatcher collaborators.
// Use functional options (WithXxx) to set these values.
type Config struct {
	Notifier alert.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// OnResult, when set, is called after every request completes.
	OnResult func(Result)
}

// Option is a functional option for configuring a Dispatcher.
type Option func(*Config)

// WithNotifier sets where failure alerts are shown.
func WithNotifier(n alert.Notifier) Option {
	return func(c *Config) {
		c.Notifier = n
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithResultHook sets a callback run after every request.
func WithResultHook(fn func(Result)) Option {
	return func(c *Config) {
		c.OnResult = fn
	}
}

// DefaultConfig returns a config that logs but shows no alerts.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.Component("dispatch"),
	}
}
