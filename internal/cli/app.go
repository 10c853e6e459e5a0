package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/config"
	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/adapters/file"
	"github.com/aretw0/taskup/pkg/adapters/memory"
	"github.com/aretw0/taskup/pkg/adapters/redis"
	"github.com/aretw0/taskup/pkg/adapters/sqlite"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/gateway"
	"github.com/aretw0/taskup/pkg/persistence/middleware"
	"github.com/aretw0/taskup/pkg/ports"
)

// NewLogger builds the logger described by cfg; debug forces the debug level.
func NewLogger(cfg config.LogConfig, debug bool) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}
	if cfg.Format == "json" {
		return logging.NewJSON(level)
	}
	return logging.New(level)
}

// closingStore keeps the Close of a store hidden behind middleware reachable.
type closingStore struct {
	ports.KVStore
	io.Closer
}

// OpenStore opens the session store selected by cfg, encrypting values when
// an encryption key is configured.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (ports.KVStore, error) {
	var (
		kv     ports.KVStore
		closer io.Closer
	)
	switch cfg.Driver {
	case config.DriverMemory:
		kv = memory.NewStore()
	case config.DriverFile:
		kv = file.New(cfg.Path)
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		kv, closer = s, s
	case config.DriverRedis:
		s := redis.New(cfg.RedisAddr, "", 0, redis.WithPrefix(cfg.RedisPrefix))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		kv, closer = s, s
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if cfg.EncryptionKey == "" {
		return kv, nil
	}
	enc, err := encryptionConfig(cfg)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	kv = middleware.Chain(kv, middleware.NewEncryptionMiddleware(enc))
	if closer != nil {
		return closingStore{KVStore: kv, Closer: closer}, nil
	}
	return kv, nil
}

func encryptionConfig(cfg config.StorageConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, err
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.EncryptionFallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// AppOptions translates cfg into App options.
func AppOptions(cfg *config.Config, logger *slog.Logger) []taskup.Option {
	gwOpts := []gateway.Option{gateway.WithTimeout(cfg.API.Timeout)}
	if cfg.API.RateLimit > 0 {
		gwOpts = append(gwOpts, gateway.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst))
	}
	return []taskup.Option{
		taskup.WithLogger(logger),
		taskup.WithBaseURL(cfg.API.BaseURL),
		taskup.WithGatewayOptions(gwOpts...),
		taskup.WithAuthOptions(
			auth.WithCheckInterval(cfg.Auth.CheckInterval),
			auth.WithRefreshThreshold(cfg.Auth.RefreshThreshold),
			auth.WithDefaultExpiresIn(cfg.Auth.DefaultExpiresIn),
		),
	}
}

// NewApp opens storage and builds an App from cfg. extra options apply last.
// The caller owns the App and must Close it, which also closes the store.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...taskup.Option) (*taskup.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	kv, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	opts := append(AppOptions(cfg, logger), taskup.WithKVStore(kv))
	app, err := taskup.New(append(opts, extra...)...)
	if err != nil {
		if c, ok := kv.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return app, nil
}
