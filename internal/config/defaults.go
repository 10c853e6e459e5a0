package config

import (
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/gateway"
)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: gateway.DefaultBaseURL,
			Timeout: gateway.DefaultTimeout,
		},
		Auth: AuthConfig{
			RefreshThreshold: auth.DefaultRefreshThreshold,
			CheckInterval:    auth.DefaultCheckInterval,
			DefaultExpiresIn: auth.DefaultExpiresIn,
		},
		Storage: StorageConfig{
			Driver:      DriverFile,
			Path:        ".taskup/storage",
			RedisPrefix: "taskup:",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}
