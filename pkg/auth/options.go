package auth

import (
	"log/slog"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/ports"
)

const (
	// DefaultCheckInterval is the period of the background session check.
	DefaultCheckInterval = 60 * time.Second
	// DefaultRefreshThreshold is how close to expiry a token gets refreshed.
	DefaultRefreshThreshold = 5 * time.Minute
	// DefaultExpiresIn is assumed when neither the server nor the token states an expiry.
	DefaultExpiresIn = 3600 * time.Second
)

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNotifier configures where user-facing messages go.
func WithNotifier(n ports.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithClock overrides the time source used for expiry computations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCheckInterval sets the background check period.
func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

// WithRefreshThreshold sets how long before expiry a token is refreshed.
func WithRefreshThreshold(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.refreshThreshold = d
		}
	}
}

// WithDefaultExpiresIn sets the fallback token lifetime.
func WithDefaultExpiresIn(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.defaultExpiresIn = d
		}
	}
}

// WithHooks configures lifecycle hooks. Only OnAuthEvent is used.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}
