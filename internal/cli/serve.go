package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/config"
	"github.com/aretw0/taskup/internal/mockapi"
	apihttp "github.com/aretw0/taskup/pkg/adapters/http"
	"github.com/aretw0/taskup/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Demo account seeded into the mock backend.
const (
	DemoEmail    = "demo@taskup.dev"
	DemoPassword = "demo1234"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	// Listener overrides cfg.Server.Addr.
	Listener net.Listener
	// Mock starts an in-process backend and points the gateway at it.
	Mock bool
	// OnReady is called with the API address once it accepts connections.
	OnReady func(addr string)
}

// Serve runs the control API for an App built from cfg until ctx ends.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ServeOptions) error {
	if opts.Mock {
		stop, baseURL, err := startMockBackend(logger)
		if err != nil {
			return err
		}
		defer stop()
		cfgCopy := *cfg
		cfgCopy.API.BaseURL = baseURL
		cfg = &cfgCopy
		logger.Info("Mock backend running", "baseURL", baseURL, "email", DemoEmail, "password", DemoPassword)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(reg)
	hooks := metrics.Hooks()
	if logger.Enabled(ctx, slog.LevelDebug) {
		hooks = observability.Chain(hooks, observability.LogHooks(logger))
	}

	app, err := NewApp(ctx, cfg, logger, taskup.WithLifecycleHooks(hooks))
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Init(ctx); err != nil {
		return err
	}

	api := apihttp.New(app,
		apihttp.WithLogger(logger),
		apihttp.WithGatherer(reg),
		apihttp.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	defer api.Close()

	ln := opts.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", cfg.Server.Addr); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
		}
	}
	srv := &http.Server{Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("TaskUp API listening", "address", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()
	if opts.OnReady != nil {
		opts.OnReady(ln.Addr().String())
	}

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Websocket clients leave when the API closes.
		_ = api.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		logger.Info("TaskUp API stopped gracefully")
		return nil
	}
}

func startMockBackend(logger *slog.Logger) (stop func(), baseURL string, err error) {
	backend := mockapi.New(mockapi.WithLogger(logger))
	if err := backend.AddUser(DemoEmail, DemoPassword, map[string]any{
		"firstName": "Demo",
		"lastName":  "User",
		"role":      "admin",
	}); err != nil {
		return nil, "", err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to start mock backend: %w", err)
	}
	srv := &http.Server{Handler: backend.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return func() { _ = srv.Close() }, "http://" + ln.Addr().String() + mockapi.BasePath, nil
}
