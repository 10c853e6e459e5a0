package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/ports"
)

// Storage keys of the persisted session.
const (
	TokenKey        = "taskup_auth_token"
	RefreshTokenKey = "taskup_refresh_token"
	UserKey         = "taskup_user"
)

// Keys lists every key the repository writes.
var Keys = []string{TokenKey, RefreshTokenKey, UserKey}

// Persisted is what survives a restart. TokenExpiry is not persisted; it is
// derived again when the session is hydrated.
type Persisted struct {
	Token        string
	RefreshToken string
	User         *domain.User
}

// Complete reports whether the bundle can restore a session.
func (p Persisted) Complete() bool {
	return p.Token != "" && p.User != nil
}

// Repository reads and writes the persisted session.
type Repository struct {
	store  ports.KVStore
	mu     sync.Mutex
	logger *slog.Logger
}

// Option configures the Repository.
type Option func(*Repository)

// WithLogger configures a logger for the Repository.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a Repository over store.
func NewRepository(store ports.KVStore, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying key-value store.
func (r *Repository) Store() ports.KVStore {
	return r.store
}

// WithLock executes fn while holding the repository lock.
func (r *Repository) WithLock(ctx context.Context, fn func(context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

// Load reads the persisted bundle. Missing keys yield empty fields, not errors.
func (r *Repository) Load(ctx context.Context) (Persisted, error) {
	var p Persisted
	err := r.WithLock(ctx, func(ctx context.Context) error {
		var err error
		if p.Token, err = r.get(ctx, TokenKey); err != nil {
			return err
		}
		if p.RefreshToken, err = r.get(ctx, RefreshTokenKey); err != nil {
			return err
		}
		raw, err := r.get(ctx, UserKey)
		if err != nil || raw == "" {
			return err
		}
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return fmt.Errorf("failed to decode persisted user: %w", err)
		}
		p.User = &u
		return nil
	})
	return p, err
}

func (r *Repository) get(ctx context.Context, key string) (string, error) {
	v, err := r.store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// Save persists a full session, replacing whatever was stored before.
func (r *Repository) Save(ctx context.Context, token, refreshToken string, user *domain.User) error {
	return r.WithLock(ctx, func(ctx context.Context) error {
		if err := r.saveToken(ctx, token, refreshToken); err != nil {
			return err
		}
		if refreshToken == "" {
			if err := r.store.Remove(ctx, RefreshTokenKey); err != nil {
				return fmt.Errorf("failed to remove stale refresh token: %w", err)
			}
		}
		return r.saveUser(ctx, user)
	})
}

// SaveToken persists a new access token and, if not empty, a new refresh token.
func (r *Repository) SaveToken(ctx context.Context, token, refreshToken string) error {
	return r.WithLock(ctx, func(ctx context.Context) error {
		return r.saveToken(ctx, token, refreshToken)
	})
}

// SaveUser persists the user document.
func (r *Repository) SaveUser(ctx context.Context, user *domain.User) error {
	return r.WithLock(ctx, func(ctx context.Context) error {
		return r.saveUser(ctx, user)
	})
}

func (r *Repository) saveToken(ctx context.Context, token, refreshToken string) error {
	if err := r.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if refreshToken != "" {
		if err := r.store.Set(ctx, RefreshTokenKey, refreshToken); err != nil {
			return fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}
	return nil
}

func (r *Repository) saveUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return r.store.Remove(ctx, UserKey)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := r.store.Set(ctx, UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	return nil
}

// Clear removes every session key. It attempts all removals and joins the failures.
func (r *Repository) Clear(ctx context.Context) error {
	return r.WithLock(ctx, func(ctx context.Context) error {
		var errs []error
		for _, k := range Keys {
			if err := r.store.Remove(ctx, k); err != nil {
				r.logger.Warn("Failed to remove session key", "key", k, "err", err)
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", k, err))
			}
		}
		return errors.Join(errs...)
	})
}
