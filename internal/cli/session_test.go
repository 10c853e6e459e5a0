package cli_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/cli"
	"github.com/aretw0/taskup/internal/config"
	"github.com/aretw0/taskup/internal/mockapi"
	"github.com/aretw0/taskup/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	backend := mockapi.New()
	require.NoError(t, backend.AddUser("alice@example.com", "secret", map[string]any{"firstName": "Alice"}))
	api := httptest.NewServer(backend.Handler())
	t.Cleanup(api.Close)

	cfg := config.Default()
	cfg.API.BaseURL = api.URL + mockapi.BasePath
	cfg.Storage.Path = filepath.Join(t.TempDir(), "storage")
	cfg.Storage.EncryptionKey = testKey
	return cfg
}

func openApp(t *testing.T, cfg *config.Config) *taskup.App {
	t.Helper()
	app, err := cli.NewApp(context.Background(), cfg, cli.NewLogger(cfg.Log, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	cfg := newConfig(t)
	var buf bytes.Buffer
	out := cli.Output{W: &buf, Render: tui.Plain, Now: time.Now}

	err := cli.Login(ctx, openApp(t, cfg), out, "alice@example.com", "nope", false)
	require.Error(t, err)

	require.NoError(t, cli.Login(ctx, openApp(t, cfg), out, "alice@example.com", "secret", true))
	assert.Contains(t, buf.String(), "AUTHENTICATED")
	assert.Contains(t, buf.String(), "Alice <alice@example.com>")

	// A new process restores the persisted session.
	buf.Reset()
	app := openApp(t, cfg)
	require.NoError(t, cli.Restore(ctx, app))
	require.NoError(t, cli.Status(app, out))
	assert.Contains(t, buf.String(), "Alice")

	buf.Reset()
	require.NoError(t, cli.Refresh(ctx, openApp(t, cfg), out))
	assert.Contains(t, buf.String(), "Refresh token:** present")

	buf.Reset()
	require.NoError(t, cli.Logout(ctx, openApp(t, cfg), out, false))
	assert.Contains(t, buf.String(), "Not signed in.")

	buf.Reset()
	require.NoError(t, cli.Logout(ctx, openApp(t, cfg), out, false))
	assert.Equal(t, "Not signed in.\n", buf.String())

	assert.Error(t, cli.Refresh(ctx, openApp(t, cfg), out))
}

func TestRouteCommands(t *testing.T) {
	app := openApp(t, newConfig(t))
	var buf bytes.Buffer
	out := cli.Output{W: &buf, Render: tui.Plain}

	require.NoError(t, cli.ListRoutes(app.Router, out))
	assert.Contains(t, buf.String(), "`/app/projects/:id` | auth")
	assert.Contains(t, buf.String(), "`/system/404`")

	buf.Reset()
	require.NoError(t, cli.ResolveRoute(app.Router, out, "/app/teams/t%201"))
	assert.Contains(t, buf.String(), "`id` = `t 1`")

	buf.Reset()
	require.NoError(t, cli.ResolveRoute(app.Router, out, "/nowhere"))
	assert.Contains(t, buf.String(), "No route matches")

	m, err := taskup.DefaultManifest()
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, cli.RouteGraph(app.Router, m, &buf, "/app/teams/t1"))
	assert.Contains(t, buf.String(), "graph TD")
	assert.Contains(t, buf.String(), "class app_teams_id current;")
	assert.Contains(t, buf.String(), "app_dashboard -. \"auth ↩\" .-> auth_sign_in")
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	cli.ConsoleNotifier(&buf).Notify("success", "Welcome back, Alice!")
	assert.Contains(t, buf.String(), "[success] Welcome back, Alice!")
}
