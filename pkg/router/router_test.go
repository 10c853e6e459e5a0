package router_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	authed bool
	role   string
}

func (a *fakeAuth) IsAuthenticated() bool { return a.authed }

func (a *fakeAuth) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == a.role {
			return true
		}
	}
	return false
}

type fakeHost struct {
	mu     sync.Mutex
	titles []string
	scroll int
}

func (h *fakeHost) SetTitle(t string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.titles = append(h.titles, t)
}

func (h *fakeHost) ScrollTo(x, y int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scroll++
}

type recordingDispatcher struct {
	mu      sync.Mutex
	actions []domain.Action
}

func (d *recordingDispatcher) Dispatch(a domain.Action) domain.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, a)
	return a
}

func noop(context.Context, router.Params) error { return nil }

func waitIdle(t *testing.T, r *router.Router) *domain.NavigationEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, _ := r.Wait(ctx)
	require.NoError(t, ctx.Err())
	return ev
}

func TestRouter_ParamsAndOrder(t *testing.T) {
	r := router.New()
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/app/projects/list", Handler: noop},
		router.Route{Path: "/app/projects/:id", Handler: noop},
		router.Route{Path: "/tasks/:id", Handler: noop},
		router.Route{Path: "/teams/:team/members/:member", Handler: noop},
	))

	m, err := r.Resolve("/tasks/42")
	require.NoError(t, err)
	assert.Equal(t, router.Params{"id": "42"}, m.Params)

	m, err = r.Resolve("/app/projects/list")
	require.NoError(t, err)
	assert.Equal(t, "/app/projects/list", m.Route.Path)
	assert.Empty(t, m.Params)

	m, err = r.Resolve("/teams/t1/members/u%202?tab=x")
	require.NoError(t, err)
	assert.Equal(t, router.Params{"team": "t1", "member": "u 2"}, m.Params)

	_, err = r.Resolve("/tasks/42/edit")
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
	_, err = r.Resolve("/tasks/")
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestRouter_InvalidRoutes(t *testing.T) {
	r := router.New()
	tests := []router.Route{
		{Path: "tasks", Handler: noop},
		{Path: "/tasks"},
		{Path: "/tasks", Handler: noop, Guard: "vip"},
		{Path: "/a/:id/:id", Handler: noop},
	}
	for _, rt := range tests {
		assert.ErrorIs(t, r.Register(rt), domain.ErrInvalidRoute, rt.Path)
	}
	assert.Empty(t, r.Routes())
}

func TestRouter_NavigateResolves(t *testing.T) {
	host := &fakeHost{}
	disp := &recordingDispatcher{}
	r := router.New(router.WithHost(host), router.WithDispatcher(disp))

	var got router.Params
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/tasks/:id", Title: "Task Details", Handler: func(_ context.Context, p router.Params) error {
			got = p
			return nil
		}},
		router.Route{Path: "/", Handler: noop},
	))

	var changes []router.CurrentRoute
	r.On(domain.RouteChange, func(c router.CurrentRoute) { changes = append(changes, c) })

	assert.Equal(t, router.StatusUnresolved, r.Status())
	assert.Nil(t, r.Current())

	ev, err := r.Navigate(context.Background(), "/tasks/42").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, router.OutcomeResolved, ev.Status)
	assert.Equal(t, "/tasks/:id", ev.Pattern)

	assert.Equal(t, router.Params{"id": "42"}, got)
	assert.Equal(t, router.StatusResolved, r.Status())
	assert.Equal(t, "Task Details - TaskUp", r.Title())
	assert.Equal(t, []string{"Task Details - TaskUp"}, host.titles)
	assert.Equal(t, 1, host.scroll)
	require.Len(t, changes, 1)
	assert.Equal(t, "/tasks/42", changes[0].Path)
	assert.Equal(t, []domain.Action{{Type: domain.ActionUIModalClose}}, disp.actions)

	cur := r.Current()
	cur.Params["id"] = "mutated"
	assert.Equal(t, "42", r.Current().Params["id"])

	waitIdle(t, r)
	r.Navigate(context.Background(), "/")
	waitIdle(t, r)
	assert.Equal(t, router.DefaultTitle, r.Title())
}

func TestRouter_AuthGuardDenied(t *testing.T) {
	var handled, fallbacks atomic.Int32
	r := router.New(router.WithAuth(&fakeAuth{}))
	require.NoError(t, r.Register(router.Route{
		Path:  "/app/dashboard",
		Guard: router.GuardAuth,
		Handler: func(context.Context, router.Params) error {
			handled.Add(1)
			return nil
		},
		Fallback: func(_ context.Context, _ *router.Router, attempted string) {
			assert.Equal(t, "/app/dashboard", attempted)
			fallbacks.Add(1)
		},
	}))

	ev, err := r.Navigate(context.Background(), "/app/dashboard").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, router.OutcomeDenied, ev.Status)
	assert.Equal(t, int32(0), handled.Load())
	assert.Equal(t, int32(1), fallbacks.Load())
	assert.Nil(t, r.Current())
	assert.Equal(t, router.StatusUnresolved, r.Status())
}

func TestRouter_GuardFallbackResolution(t *testing.T) {
	t.Run("No Fallback Is A No-op", func(t *testing.T) {
		var other atomic.Int32
		r := router.New(router.WithAuth(&fakeAuth{}))
		require.NoError(t, r.RegisterRoutes(
			router.Route{Path: "/a", Guard: router.GuardAuth, Handler: noop,
				Fallback: func(context.Context, *router.Router, string) { other.Add(1) }},
			router.Route{Path: "/b", Guard: router.GuardAuth, Handler: noop},
		))

		r.Navigate(context.Background(), "/a")
		r.Navigate(context.Background(), "/b")
		waitIdle(t, r)

		// /b must not replay the fallback that ran for /a
		assert.Equal(t, int32(1), other.Load())
	})

	t.Run("Default Fallback", func(t *testing.T) {
		var calls atomic.Int32
		r := router.New(
			router.WithAuth(&fakeAuth{}),
			router.WithDefaultGuardFallback(func(context.Context, *router.Router, string) { calls.Add(1) }),
		)
		require.NoError(t, r.Register(router.Route{Path: "/b", Guard: router.GuardAuth, Handler: noop}))

		r.Navigate(context.Background(), "/b")
		waitIdle(t, r)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Redirect With Return", func(t *testing.T) {
		r := router.New(router.WithAuth(&fakeAuth{}))
		require.NoError(t, r.RegisterRoutes(
			router.Route{Path: "/app/tasks/:id", Guard: router.GuardAuth, Handler: noop,
				Fallback: router.RedirectWithReturn("/auth/sign-in")},
			router.Route{Path: "/auth/sign-in", Guard: router.GuardGuest, Handler: noop},
		))

		r.Navigate(context.Background(), "/app/tasks/7")
		ev := waitIdle(t, r)

		assert.Equal(t, "/auth/sign-in", ev.Path)
		cur := r.Current()
		require.NotNil(t, cur)
		assert.Equal(t, "/app/tasks/7", router.ReturnTo(cur.State))
	})
}

func TestRouter_Guards(t *testing.T) {
	tests := []struct {
		name  string
		auth  *fakeAuth
		guard router.Guard
		want  string
	}{
		{"Auth Anonymous", &fakeAuth{}, router.GuardAuth, router.OutcomeDenied},
		{"Auth Signed In", &fakeAuth{authed: true}, router.GuardAuth, router.OutcomeResolved},
		{"Guest Anonymous", &fakeAuth{}, router.GuardGuest, router.OutcomeResolved},
		{"Guest Signed In", &fakeAuth{authed: true}, router.GuardGuest, router.OutcomeDenied},
		{"Admin Member", &fakeAuth{authed: true, role: "member"}, router.GuardAdmin, router.OutcomeDenied},
		{"Admin Admin", &fakeAuth{authed: true, role: domain.RoleAdmin}, router.GuardAdmin, router.OutcomeResolved},
		{"Admin Role Without Session", &fakeAuth{role: domain.RoleAdmin}, router.GuardAdmin, router.OutcomeDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := router.New(router.WithAuth(tt.auth))
			require.NoError(t, r.Register(router.Route{Path: "/x", Guard: tt.guard, Handler: noop}))
			ev, _ := r.Navigate(context.Background(), "/x").Wait(context.Background())
			assert.Equal(t, tt.want, ev.Status)
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	t.Run("Redirects To Reserved Path", func(t *testing.T) {
		h := router.NewMemoryHistory("/")
		r := router.New(router.WithHistory(h))
		require.NoError(t, r.Register(router.Route{Path: router.NotFoundPath, Title: "Page Not Found", Handler: noop}))

		ev, err := r.Navigate(context.Background(), "/nowhere").Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, router.OutcomeNotFound, ev.Status)

		final := waitIdle(t, r)
		assert.Equal(t, router.NotFoundPath, final.Path)
		assert.Equal(t, router.OutcomeResolved, final.Status)
		assert.Equal(t, []router.Location{{Path: "/"}, {Path: router.NotFoundPath}}, h.Entries())
	})

	t.Run("Stops Without Reserved Route", func(t *testing.T) {
		r := router.New()
		r.Navigate(context.Background(), "/nowhere")
		ev := waitIdle(t, r)
		assert.Equal(t, router.NotFoundPath, ev.Path)
		assert.Equal(t, router.OutcomeNotFound, ev.Status)
		assert.Equal(t, router.StatusNotFound, r.Status())
	})
}

func TestRouter_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	r := router.New()
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/broken", Handler: func(context.Context, router.Params) error { return boom }},
		router.Route{Path: "/panics", Handler: func(context.Context, router.Params) error { panic("bad view") }},
		router.Route{Path: router.ErrorPath, Title: "Error", Handler: noop},
	))
	var changes atomic.Int32
	r.On(domain.RouteChange, func(router.CurrentRoute) { changes.Add(1) })

	_, err := r.Navigate(context.Background(), "/broken").Wait(context.Background())
	var herr *router.HandlerError
	require.ErrorAs(t, err, &herr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "/broken", herr.Path)

	final := waitIdle(t, r)
	assert.Equal(t, router.ErrorPath, final.Path)
	assert.Equal(t, router.ErrorPath, r.Location().Path)
	assert.Equal(t, int32(1), changes.Load(), "only the error page emits route:change")

	_, err = r.Navigate(context.Background(), "/panics").Wait(context.Background())
	assert.ErrorContains(t, err, "bad view")
}

func TestRouter_ErrorPageFailureStops(t *testing.T) {
	r := router.New()
	fail := func(context.Context, router.Params) error { return errors.New("nope") }
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/broken", Handler: fail},
		router.Route{Path: router.ErrorPath, Handler: fail},
	))

	r.Navigate(context.Background(), "/broken")
	ev := waitIdle(t, r)
	assert.Equal(t, router.ErrorPath, ev.Path)
	assert.Equal(t, router.OutcomeError, ev.Status)
	assert.Equal(t, router.StatusError, r.Status())
}

func TestRouter_LastNavigationWins(t *testing.T) {
	release := make(chan struct{})
	var slowCancelled atomic.Bool
	r := router.New()
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/slow", Handler: func(ctx context.Context, _ router.Params) error {
			<-release
			slowCancelled.Store(ctx.Err() != nil)
			return nil
		}},
		router.Route{Path: "/fast", Handler: noop},
	))

	var changes []string
	var mu sync.Mutex
	r.On(domain.RouteChange, func(c router.CurrentRoute) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c.Path)
	})

	slow := r.Navigate(context.Background(), "/slow")
	fast := r.Navigate(context.Background(), "/fast")
	_, err := fast.Wait(context.Background())
	require.NoError(t, err)
	close(release)

	ev, err := slow.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ev.Stale)
	assert.Equal(t, router.OutcomeStale, ev.Status)
	assert.True(t, slowCancelled.Load())

	assert.Equal(t, "/fast", r.Current().Path)
	mu.Lock()
	assert.Equal(t, []string{"/fast"}, changes)
	mu.Unlock()
	assert.Less(t, slow.Seq, fast.Seq)
}

func TestRouter_HistoryAndLinks(t *testing.T) {
	h := router.NewMemoryHistory("/")
	r := router.New(router.WithHistory(h))
	require.NoError(t, r.RegisterRoutes(
		router.Route{Path: "/", Handler: noop},
		router.Route{Path: "/a", Handler: noop},
		router.Route{Path: "/b", Handler: noop},
	))
	ctx := context.Background()

	r.Start(ctx)
	waitIdle(t, r)
	assert.Equal(t, "/", r.Current().Path)

	assert.True(t, r.HandleLinkClick(ctx, router.Link{Href: "/a"}))
	assert.False(t, r.HandleLinkClick(ctx, router.Link{Href: "https://example.com"}))
	assert.False(t, r.HandleLinkClick(ctx, router.Link{Href: "/b", External: true}))
	assert.False(t, r.HandleLinkClick(ctx, router.Link{Href: "/b", Target: "_blank"}))
	waitIdle(t, r)
	assert.Equal(t, "/a", r.Current().Path)
	assert.Equal(t, 2, h.Len())

	r.Navigate(ctx, "/b")
	waitIdle(t, r)

	require.NotNil(t, r.Back(ctx))
	waitIdle(t, r)
	assert.Equal(t, "/a", r.Current().Path)

	require.NotNil(t, r.Forward(ctx))
	waitIdle(t, r)
	assert.Equal(t, "/b", r.Current().Path)

	r.Navigate(ctx, "/a", router.WithReplace())
	waitIdle(t, r)
	assert.Equal(t, 3, h.Len())

	require.NotNil(t, r.Back(ctx))
	require.NotNil(t, r.Back(ctx))
	assert.Nil(t, r.Back(ctx))
	waitIdle(t, r)
	assert.Equal(t, "/", r.Current().Path)
}

func TestRouter_Hooks(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	r := router.New(router.WithHooks(domain.LifecycleHooks{
		OnNavigate: func(ev *domain.NavigationEvent) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, ev.Path+":"+ev.Status)
		},
	}))
	require.NoError(t, r.Register(router.Route{Path: "/", Handler: noop}))

	r.Navigate(context.Background(), "/")
	waitIdle(t, r)
	r.Navigate(context.Background(), "/missing")
	waitIdle(t, r)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/:resolved", router.NotFoundPath + ":not_found", "/missing:not_found"}, seen)
}

func TestLazy(t *testing.T) {
	var loads, renders atomic.Int32
	fail := true
	h := router.Lazy("tasks", func(context.Context) (router.Handler, error) {
		loads.Add(1)
		if fail {
			fail = false
			return nil, errors.New("chunk failed")
		}
		return func(context.Context, router.Params) error {
			renders.Add(1)
			return nil
		}, nil
	})

	err := h(context.Background(), nil)
	assert.ErrorContains(t, err, "failed to load view tasks")

	require.NoError(t, h(context.Background(), nil))
	require.NoError(t, h(context.Background(), nil))
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, int32(2), renders.Load())
}

func TestManifest(t *testing.T) {
	data := []byte(`
routes:
  - path: /auth/sign-in
    view: sign-in
    guard: guest
    redirect: /app/dashboard
  - path: /app/tasks/:id
    view: task
    guard: auth
    title: Task Details
    redirect: /auth/sign-in
    return_to: true
`)
	m, err := router.ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Routes, 2)

	routes, err := m.Build(map[string]router.Handler{"sign-in": noop, "task": noop})
	require.NoError(t, err)
	assert.Equal(t, router.GuardAuth, routes[1].Guard)
	assert.Equal(t, "Task Details", routes[1].Title)
	assert.NotNil(t, routes[0].Fallback)

	_, err = m.Build(map[string]router.Handler{"sign-in": noop})
	assert.ErrorIs(t, err, domain.ErrInvalidRoute)

	_, err = router.ParseManifest([]byte("routes: [oops"))
	assert.Error(t, err)
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Projects - TaskUp", router.PageTitle("Projects"))
	assert.Equal(t, router.DefaultTitle, router.PageTitle(""))
}
