package taskup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/adapters/memory"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/events"
	"github.com/aretw0/taskup/pkg/gateway"
	"github.com/aretw0/taskup/pkg/ports"
	"github.com/aretw0/taskup/pkg/reducers"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/aretw0/taskup/pkg/session"
	"github.com/aretw0/taskup/pkg/store"
)

// App wires the state store, the auth manager and the router together.
type App struct {
	Store   *store.Store
	Auth    *auth.Manager
	Router  *router.Router
	Gateway ports.Gateway
	KV      ports.KVStore

	baseURL     string
	gatewayOpts []gateway.Option
	authOpts    []auth.Option
	routerOpts  []router.Option
	routes      []router.Route
	views       map[string]router.Handler
	notifier    ports.Notifier
	hooks       domain.LifecycleHooks
	logger      *slog.Logger

	subs []subscription
}

type subscription struct {
	event domain.AuthEvent
	id    events.SubscriptionID
}

// Option configures the App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every component.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// WithKVStore sets where the session is persisted. Defaults to memory.
func WithKVStore(kv ports.KVStore) Option {
	return func(a *App) {
		a.KV = kv
	}
}

// WithGateway injects a backend client, bypassing the default HTTP gateway.
func WithGateway(gw ports.Gateway) Option {
	return func(a *App) {
		a.Gateway = gw
	}
}

// WithBaseURL sets the backend base URL of the default gateway.
func WithBaseURL(url string) Option {
	return func(a *App) {
		a.baseURL = url
	}
}

// WithGatewayOptions forwards options to the default gateway.
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(a *App) {
		a.gatewayOpts = append(a.gatewayOpts, opts...)
	}
}

// WithAuthOptions forwards options to the auth manager.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(a *App) {
		a.authOpts = append(a.authOpts, opts...)
	}
}

// WithRouterOptions forwards options to the router.
func WithRouterOptions(opts ...router.Option) Option {
	return func(a *App) {
		a.routerOpts = append(a.routerOpts, opts...)
	}
}

// WithRoutes replaces the default route table.
func WithRoutes(routes ...router.Route) Option {
	return func(a *App) {
		a.routes = append(a.routes, routes...)
	}
}

// WithViews binds view names of the default route table to handlers.
func WithViews(views map[string]router.Handler) Option {
	return func(a *App) {
		a.views = views
	}
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(n ports.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// New builds an App. Call Init to restore the session and resolve the first route.
func New(opts ...Option) (*App, error) {
	a := &App{
		baseURL:  gateway.DefaultBaseURL,
		notifier: ports.NopNotifier,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.KV == nil {
		a.KV = memory.NewStore()
	}
	if a.Gateway == nil {
		gwOpts := append([]gateway.Option{gateway.WithLogger(a.logger)}, a.gatewayOpts...)
		a.Gateway = gateway.New(a.baseURL, gwOpts...)
	}

	a.Store = store.New(reducers.InitialState(),
		store.WithLogger(a.logger),
		store.WithHooks(a.hooks),
		store.WithMiddleware(store.ValidatingMiddleware(a.logger)),
		store.WithMiddleware(store.LoggingMiddleware(a.logger)),
	)
	reducers.RegisterAll(a.Store)

	repo := session.NewRepository(a.KV, session.WithLogger(a.logger))
	authOpts := append([]auth.Option{
		auth.WithLogger(a.logger),
		auth.WithNotifier(a.notifier),
		auth.WithHooks(a.hooks),
	}, a.authOpts...)
	a.Auth = auth.New(a.Gateway, repo, authOpts...)

	routerOpts := append([]router.Option{
		router.WithLogger(a.logger),
		router.WithAuth(a.Auth),
		router.WithDispatcher(a.Store),
		router.WithHooks(a.hooks),
	}, a.routerOpts...)
	a.Router = router.New(routerOpts...)

	routes := a.routes
	if len(routes) == 0 {
		var err error
		if routes, err = DefaultRoutes(a.views); err != nil {
			return nil, err
		}
	}
	if err := a.Router.RegisterRoutes(routes...); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	a.wire()
	return a, nil
}

// wire mirrors auth events into the store and sends expired sessions to sign-in.
func (a *App) wire() {
	on := func(ev domain.AuthEvent, fn auth.Listener) {
		a.subs = append(a.subs, subscription{event: ev, id: a.Auth.On(ev, fn)})
	}
	on(domain.AuthLogin, func(p domain.AuthPayload) {
		a.Store.Dispatch(domain.NewAction(domain.ActionUserLogin, p.User))
	})
	on(domain.AuthLogout, func(domain.AuthPayload) {
		a.Store.Dispatch(domain.NewAction(domain.ActionUserLogout, nil))
	})
	on(domain.AuthUserUpdate, func(p domain.AuthPayload) {
		a.Store.Dispatch(domain.NewAction(domain.ActionUserUpdate, p.User))
	})
	on(domain.AuthSessionExpired, func(domain.AuthPayload) {
		current := a.Router.Location().Path
		if current == SignInPath {
			return
		}
		a.logger.Info("Session expired, redirecting to sign-in", "returnTo", current)
		a.Router.Navigate(context.Background(), SignInPath,
			router.WithState(map[string]any{"returnTo": current}))
	})
}

// Init restores the persisted session, marks the app initialized and
// resolves the current location. A session that cannot be restored is
// dropped and the app starts anonymous.
func (a *App) Init(ctx context.Context) error {
	if err := a.Auth.Initialize(ctx); err != nil {
		a.logger.Warn("Starting without a session", "err", err)
	}
	if a.Auth.IsAuthenticated() {
		a.Store.Dispatch(domain.NewAction(domain.ActionUserLogin, a.Auth.GetUser()))
	}
	a.Store.Dispatch(domain.NewAction(domain.ActionAppInit, nil))
	a.Router.Start(ctx)
	return nil
}

// Navigate is shorthand for Router.Navigate.
func (a *App) Navigate(ctx context.Context, path string, opts ...router.NavigateOption) *router.Navigation {
	return a.Router.Navigate(ctx, path, opts...)
}

// Close stops the session timer and running view handlers and releases the
// KV store when it holds resources. The persisted session is kept.
func (a *App) Close() error {
	for _, s := range a.subs {
		a.Auth.Off(s.event, s.id)
	}
	a.subs = nil

	var errs []error
	if err := a.Auth.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Router.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := a.KV.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
