// Package config loads the settings the CLI applies to the library packages.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/persistence/middleware"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TASKUP_API_BASE_URL.
const EnvPrefix = "TASKUP_"

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "taskup.yaml"

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config is the full CLI configuration.
type Config struct {
	API     APIConfig     `koanf:"api" yaml:"api"`
	Auth    AuthConfig    `koanf:"auth" yaml:"auth"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
}

// APIConfig configures the backend gateway.
type APIConfig struct {
	BaseURL string        `koanf:"base_url" yaml:"base_url"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	Burst     int     `koanf:"burst" yaml:"burst"`
}

// AuthConfig configures session upkeep.
type AuthConfig struct {
	RefreshThreshold time.Duration `koanf:"refresh_threshold" yaml:"refresh_threshold"`
	CheckInterval    time.Duration `koanf:"check_interval" yaml:"check_interval"`
	DefaultExpiresIn time.Duration `koanf:"default_expires_in" yaml:"default_expires_in"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Driver      string `koanf:"driver" yaml:"driver"`
	Path        string `koanf:"path" yaml:"path"`
	RedisAddr   string `koanf:"redis_addr" yaml:"redis_addr"`
	RedisPrefix string `koanf:"redis_prefix" yaml:"redis_prefix"`
	// EncryptionKey is a hex encoded 32 byte key; empty stores plaintext.
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key,omitempty"`
	// EncryptionFallbackKeys still decrypt values written before a key rotation.
	EncryptionFallbackKeys []string `koanf:"encryption_fallback_keys" yaml:"encryption_fallback_keys,omitempty"`
}

// ServerConfig configures `taskup serve`.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`

	// AllowedOrigins are cross-origin pages allowed to use the control API.
	AllowedOrigins []string `koanf:"allowed_origins" yaml:"allowed_origins,omitempty"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Load reads defaults, then the YAML file at path if it exists, then
// TASKUP_* environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// TASKUP_API_BASE_URL -> api.base_url
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validDrivers = map[string]bool{
	DriverMemory: true,
	DriverFile:   true,
	DriverRedis:  true,
	DriverSQLite: true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.RateLimit < 0 || c.API.Burst < 0 {
		return fmt.Errorf("api.rate_limit and api.burst must be non-negative")
	}

	if c.Auth.CheckInterval <= 0 {
		return fmt.Errorf("auth.check_interval must be positive")
	}
	if c.Auth.RefreshThreshold < 0 {
		return fmt.Errorf("auth.refresh_threshold must be non-negative")
	}
	if c.Auth.DefaultExpiresIn <= 0 {
		return fmt.Errorf("auth.default_expires_in must be positive")
	}

	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("invalid storage.driver %q: must be one of memory, file, redis, sqlite", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverRedis && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redis_addr is required for the redis driver")
	}
	if (c.Storage.Driver == DriverFile || c.Storage.Driver == DriverSQLite) && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
	}
	if c.Storage.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Storage.EncryptionKey); err != nil {
			return fmt.Errorf("invalid storage.encryption_key: %w", err)
		}
	}
	for i, k := range c.Storage.EncryptionFallbackKeys {
		if c.Storage.EncryptionKey == "" {
			return fmt.Errorf("storage.encryption_fallback_keys requires storage.encryption_key")
		}
		if _, err := middleware.ParseKey(k); err != nil {
			return fmt.Errorf("invalid storage.encryption_fallback_keys[%d]: %w", i, err)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}
