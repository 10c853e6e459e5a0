package taskup_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/mockapi"
	"github.com/aretw0/taskup/pkg/adapters/memory"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/ports"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/aretw0/taskup/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newBackend(t *testing.T) (*mockapi.Server, string) {
	t.Helper()
	srv := mockapi.New()
	require.NoError(t, srv.AddUser("alice@example.com", "secret", map[string]any{"firstName": "Alice"}))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL + mockapi.BasePath
}

func newApp(t *testing.T, opts ...taskup.Option) *taskup.App {
	t.Helper()
	app, err := taskup.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func settle(t *testing.T, app *taskup.App) *domain.NavigationEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, _ := app.Router.Wait(ctx)
	require.NoError(t, ctx.Err())
	return ev
}

func userSlice(app *taskup.App) *domain.UserState {
	return store.MustSlice[*domain.UserState](app.Store.GetState(), domain.SliceUser)
}

func TestApp_LoginNavigateLogout(t *testing.T) {
	_, baseURL := newBackend(t)
	ctx := context.Background()
	app := newApp(t, taskup.WithBaseURL(baseURL))

	require.NoError(t, app.Init(ctx))
	settle(t, app)
	assert.Equal(t, "/", app.Router.Current().Path)
	assert.True(t, store.MustSlice[*domain.AppState](app.Store.GetState(), domain.SliceApp).Initialized)

	app.Navigate(ctx, "/app/dashboard")
	ev := settle(t, app)
	assert.Equal(t, taskup.SignInPath, ev.Path)
	assert.Equal(t, "/app/dashboard", router.ReturnTo(app.Router.Current().State))

	_, err := app.Auth.Login(ctx, "alice@example.com", "secret", false)
	require.NoError(t, err)
	us := userSlice(app)
	assert.True(t, us.IsAuthenticated)
	assert.Equal(t, "Alice", us.Data.FirstName)

	app.Navigate(ctx, "/app/projects/p-42")
	settle(t, app)
	cur := app.Router.Current()
	assert.Equal(t, router.Params{"id": "p-42"}, cur.Params)
	assert.Equal(t, "Project Details - TaskUp", app.Router.Title())

	app.Navigate(ctx, taskup.SignInPath)
	ev = settle(t, app)
	assert.Equal(t, "/app/dashboard", ev.Path, "guests-only pages send signed-in users to the dashboard")

	require.NoError(t, app.Auth.Logout(ctx, true))
	us = userSlice(app)
	assert.False(t, us.IsAuthenticated)
	assert.Nil(t, us.Data)
	for _, k := range []string{"taskup_auth_token", "taskup_refresh_token", "taskup_user"} {
		_, err := app.KV.Get(ctx, k)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	}
}

func TestApp_SessionExpiryRedirects(t *testing.T) {
	srv, baseURL := newBackend(t)
	ctx := context.Background()
	clk := &clock{now: time.Now()}
	app := newApp(t,
		taskup.WithBaseURL(baseURL),
		taskup.WithAuthOptions(auth.WithClock(clk.Now), auth.WithCheckInterval(time.Hour)),
	)
	var expired int
	app.Auth.On(domain.AuthSessionExpired, func(domain.AuthPayload) { expired++ })

	require.NoError(t, app.Init(ctx))
	_, err := app.Auth.Login(ctx, "alice@example.com", "secret", true)
	require.NoError(t, err)
	app.Navigate(ctx, "/app/tasks/t-1")
	settle(t, app)
	require.Equal(t, "/app/tasks/t-1", app.Router.Current().Path)

	srv.RevokeRefreshTokens()
	clk.Advance(time.Hour - time.Minute)
	app.Auth.CheckSession(ctx)

	ev := settle(t, app)
	assert.Equal(t, 1, expired)
	assert.False(t, app.Auth.IsAuthenticated())
	assert.False(t, userSlice(app).IsAuthenticated)
	assert.Equal(t, taskup.SignInPath, ev.Path)
	assert.Equal(t, "/app/tasks/t-1", router.ReturnTo(app.Router.Current().State))
}

func TestApp_RestoresPersistedSession(t *testing.T) {
	_, baseURL := newBackend(t)
	ctx := context.Background()
	kv := memory.NewStore()

	first := newApp(t, taskup.WithBaseURL(baseURL), taskup.WithKVStore(kv))
	_, err := first.Auth.Login(ctx, "alice@example.com", "secret", true)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newApp(t, taskup.WithBaseURL(baseURL), taskup.WithKVStore(kv), taskup.WithRouterOptions(router.WithHistory(router.NewMemoryHistory("/app/dashboard"))))
	require.NoError(t, second.Init(ctx))
	ev := settle(t, second)

	assert.True(t, second.Auth.IsAuthenticated())
	assert.True(t, userSlice(second).IsAuthenticated)
	assert.Equal(t, "/app/dashboard", ev.Path)
	assert.Equal(t, router.OutcomeResolved, ev.Status)
}

func TestApp_ViewsAndNotices(t *testing.T) {
	_, baseURL := newBackend(t)
	ctx := context.Background()
	var (
		mu      sync.Mutex
		notices []string
		viewed  []string
	)
	app := newApp(t,
		taskup.WithBaseURL(baseURL),
		taskup.WithNotifier(ports.NotifierFunc(func(kind ports.NoticeKind, msg string) {
			mu.Lock()
			defer mu.Unlock()
			notices = append(notices, msg)
		})),
		taskup.WithViews(map[string]router.Handler{
			"landing": func(context.Context, router.Params) error {
				mu.Lock()
				defer mu.Unlock()
				viewed = append(viewed, "landing")
				return nil
			},
		}),
	)

	require.NoError(t, app.Init(ctx))
	settle(t, app)
	_, err := app.Auth.Login(ctx, "alice@example.com", "wrong", false)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"landing"}, viewed)
	assert.Equal(t, []string{"Invalid email or password"}, notices)
}

func TestDefaultRoutes(t *testing.T) {
	routes, err := taskup.DefaultRoutes(nil)
	require.NoError(t, err)

	paths := make([]string, len(routes))
	for i, rt := range routes {
		paths[i] = rt.Path
	}
	assert.Contains(t, paths, "/app/projects/:id")
	assert.Contains(t, paths, router.NotFoundPath)
	assert.Contains(t, paths, router.ErrorPath)
	assert.Less(t, indexOf(paths, "/app/projects/list"), indexOf(paths, "/app/projects/:id"))

	for _, rt := range routes {
		if rt.Guard != router.GuardNone {
			assert.NotNil(t, rt.Fallback, rt.Path)
		}
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
