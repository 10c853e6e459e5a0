package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/events"
)

// Reserved system paths.
const (
	NotFoundPath = "/system/404"
	ErrorPath    = "/system/error"
)

// Status is the router's resolution state.
type Status string

const (
	StatusUnresolved Status = "UNRESOLVED"
	StatusResolved   Status = "RESOLVED"
	StatusNotFound   Status = "NOT_FOUND"
	StatusError      Status = "ERROR"
)

// AuthChecker answers guard questions.
type AuthChecker interface {
	IsAuthenticated() bool
	HasRole(roles ...string) bool
}

// Dispatcher receives the actions the router issues on navigation.
type Dispatcher interface {
	Dispatch(action domain.Action) domain.Action
}

// CurrentRoute is the last route whose guard passed. It is replaced, never
// mutated, on every navigation.
type CurrentRoute struct {
	Path    string `json:"path"`
	Params  Params `json:"params"`
	Pattern string `json:"pattern"`
	Title   string `json:"title,omitempty"`
	Guard   Guard  `json:"guard,omitempty"`
	State   any    `json:"state,omitempty"`
}

func (c *CurrentRoute) clone() *CurrentRoute {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Params = make(Params, len(c.Params))
	for k, v := range c.Params {
		cp.Params[k] = v
	}
	return &cp
}

// Listener receives route:change notifications.
type Listener = events.Listener[CurrentRoute]

// Router resolves paths against an ordered route table.
type Router struct {
	mu      sync.Mutex
	routes  []*compiledRoute
	current *CurrentRoute
	status  Status
	title   string
	seq     uint64
	latest  *Navigation

	history         History
	host            Host
	auth            AuthChecker
	dispatcher      Dispatcher
	defaultFallback Fallback
	hooks           domain.LifecycleHooks
	events          *events.Emitter[domain.RouteEvent, CurrentRoute]
	logger          *slog.Logger

	handlers sync.WaitGroup
}

// Option configures the Router.
type Option func(*Router)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithHistory sets the navigation stack. Defaults to a MemoryHistory at "/".
func WithHistory(h History) Option {
	return func(r *Router) {
		r.history = h
	}
}

// WithHost sets where titles and scroll resets go.
func WithHost(h Host) Option {
	return func(r *Router) {
		r.host = h
	}
}

// WithAuth sets the guard oracle. Without one, every guarded route is denied
// except guest routes.
func WithAuth(a AuthChecker) Option {
	return func(r *Router) {
		r.auth = a
	}
}

// WithDispatcher sets the store that receives UI_MODAL_CLOSE on navigation.
func WithDispatcher(d Dispatcher) Option {
	return func(r *Router) {
		r.dispatcher = d
	}
}

// WithDefaultGuardFallback sets the fallback for guarded routes that have none.
func WithDefaultGuardFallback(fb Fallback) Option {
	return func(r *Router) {
		r.defaultFallback = fb
	}
}

// WithHooks configures lifecycle hooks. Only OnNavigate is used.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = hooks
	}
}

// New creates an empty Router.
func New(opts ...Option) *Router {
	r := &Router{
		status:  StatusUnresolved,
		title:   DefaultTitle,
		history: NewMemoryHistory("/"),
		host:    nopHost{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.events = events.New[domain.RouteEvent, CurrentRoute](events.WithLogger(r.logger))
	return r
}

// Register compiles and appends a route. Earlier routes take precedence.
func (r *Router) Register(rt Route) error {
	c, err := compile(rt)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.routes = append(r.routes, c)
	r.mu.Unlock()
	return nil
}

// RegisterRoutes registers routes in order, stopping at the first invalid one.
func (r *Router) RegisterRoutes(routes ...Route) error {
	for i, rt := range routes {
		if err := r.Register(rt); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
	}
	return nil
}

// Routes returns the route table in matching order.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Route, len(r.routes))
	for i, c := range r.routes {
		out[i] = c.Route
	}
	return out
}

// Resolve matches path against the table without navigating.
func (r *Router) Resolve(path string) (*Match, error) {
	path = cleanPath(path)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.routes {
		if params, ok := c.match(path); ok {
			return &Match{Route: c.Route, Path: path, Params: params}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRouteNotFound, path)
}

// Current returns a copy of the current route, nil before the first resolution.
func (r *Router) Current() *CurrentRoute {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.clone()
}

// Status returns the resolution state.
func (r *Router) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Title returns the current page title.
func (r *Router) Title() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.title
}

// Location returns the current history entry.
func (r *Router) Location() Location {
	return r.history.Location()
}

// On subscribes fn to event.
func (r *Router) On(event domain.RouteEvent, fn Listener) events.SubscriptionID {
	return r.events.On(event, fn)
}

// Off removes a subscription.
func (r *Router) Off(event domain.RouteEvent, id events.SubscriptionID) bool {
	return r.events.Off(event, id)
}

type navigateOptions struct {
	replace bool
	state   any
}

// NavigateOption adjusts a single navigation.
type NavigateOption func(*navigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *navigateOptions) {
		o.replace = true
	}
}

// WithState attaches state to the history entry.
func WithState(state any) NavigateOption {
	return func(o *navigateOptions) {
		o.state = state
	}
}

// Start resolves the current history location.
func (r *Router) Start(ctx context.Context) *Navigation {
	return r.begin(ctx, r.history.Location())
}

// Navigate records path in history and resolves it.
func (r *Router) Navigate(ctx context.Context, path string, opts ...NavigateOption) *Navigation {
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.replace {
		r.history.Replace(path, o.state)
	} else {
		r.history.Push(path, o.state)
	}
	return r.begin(ctx, Location{Path: path, State: o.state})
}

// Back moves one history entry back and resolves it. It returns nil when
// there is nothing to go back to.
func (r *Router) Back(ctx context.Context) *Navigation {
	if !r.history.Back() {
		return nil
	}
	return r.HandlePopState(ctx)
}

// Forward moves one history entry forward and resolves it, or returns nil.
func (r *Router) Forward(ctx context.Context) *Navigation {
	if !r.history.Forward() {
		return nil
	}
	return r.HandlePopState(ctx)
}

// HandlePopState re-resolves the current history entry after the history
// moved outside the router's control.
func (r *Router) HandlePopState(ctx context.Context) *Navigation {
	return r.begin(ctx, r.history.Location())
}

// HandleLinkClick navigates for internal links and reports whether it did.
func (r *Router) HandleLinkClick(ctx context.Context, l Link) bool {
	if !l.Internal() {
		return false
	}
	r.Navigate(ctx, l.Href)
	return true
}

// Wait blocks until the most recent navigation, including any redirect it
// triggered, has settled and returns its event.
func (r *Router) Wait(ctx context.Context) (*domain.NavigationEvent, error) {
	for {
		r.mu.Lock()
		nav := r.latest
		r.mu.Unlock()
		if nav == nil {
			return nil, nil
		}
		ev, err := nav.Wait(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.mu.Lock()
		same := r.latest == nav
		r.mu.Unlock()
		if same {
			return ev, err
		}
	}
}

// Close cancels the running handler and waits for handlers to return.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.latest != nil && r.latest.cancel != nil {
		r.latest.cancel()
	}
	r.mu.Unlock()
	r.handlers.Wait()
	return nil
}

func (r *Router) begin(ctx context.Context, loc Location) *Navigation {
	r.mu.Lock()
	r.seq++
	nav := newNavigation(r.seq, cleanPath(loc.Path), time.Now())
	if prev := r.latest; prev != nil && prev.cancel != nil {
		prev.cancel()
	}
	r.latest = nav
	r.mu.Unlock()

	r.resolve(ctx, nav, loc)
	return nav
}

func (r *Router) isLatest(nav *Navigation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq == nav.Seq
}

func (r *Router) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Router) resolve(ctx context.Context, nav *Navigation, loc Location) {
	path := nav.Path
	m, err := r.Resolve(path)
	if err != nil {
		r.logger.Warn("Route not found", "path", path)
		r.setStatus(StatusNotFound)
		if path != NotFoundPath {
			r.Navigate(ctx, NotFoundPath, WithReplace())
		}
		r.finish(nav, "", OutcomeNotFound, nil)
		return
	}

	if !r.allowed(m.Route.Guard) {
		r.logger.Warn("Route guard denied", "path", path, "guard", m.Route.Guard)
		fb := m.Route.Fallback
		if fb == nil {
			fb = r.defaultFallback
		}
		if fb == nil {
			r.logger.Warn("No guard fallback configured", "path", path)
		} else {
			r.runFallback(ctx, fb, path)
		}
		r.finish(nav, m.Route.Path, OutcomeDenied, nil)
		return
	}

	cur := &CurrentRoute{
		Path:    path,
		Params:  m.Params,
		Pattern: m.Route.Path,
		Title:   m.Route.Title,
		Guard:   m.Route.Guard,
		State:   loc.State,
	}
	title := PageTitle(m.Route.Title)
	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.seq != nav.Seq {
		r.mu.Unlock()
		cancel()
		r.finish(nav, m.Route.Path, OutcomeStale, nil)
		return
	}
	r.current = cur
	r.status = StatusResolved
	r.title = title
	nav.cancel = cancel
	r.handlers.Add(1)
	r.mu.Unlock()

	r.host.SetTitle(title)
	if r.dispatcher != nil {
		r.dispatcher.Dispatch(domain.NewAction(domain.ActionUIModalClose, nil))
	}

	go r.runHandler(hctx, cancel, nav, m.Route, cur.clone())
}

func (r *Router) runHandler(ctx context.Context, cancel context.CancelFunc, nav *Navigation, rt Route, cur *CurrentRoute) {
	defer r.handlers.Done()
	defer cancel()

	err := r.callHandler(ctx, rt.Handler, cur.Params)

	if !r.isLatest(nav) {
		r.logger.Debug("Discarding stale navigation", "path", nav.Path, "seq", nav.Seq)
		r.finish(nav, rt.Path, OutcomeStale, nil)
		return
	}

	if err != nil {
		herr := &HandlerError{Path: nav.Path, Pattern: rt.Path, Err: err}
		r.logger.Error("Route handler failed", "path", nav.Path, "err", err)
		r.setStatus(StatusError)
		if nav.Path != ErrorPath {
			r.Navigate(context.WithoutCancel(ctx), ErrorPath, WithReplace())
		}
		r.finish(nav, rt.Path, OutcomeError, herr)
		return
	}

	r.events.Emit(domain.RouteChange, *cur)
	r.host.ScrollTo(0, 0)
	r.finish(nav, rt.Path, OutcomeResolved, nil)
}

func (r *Router) callHandler(ctx context.Context, h Handler, params Params) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ctx, params)
}

func (r *Router) runFallback(ctx context.Context, fb Fallback, attempted string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Guard fallback panicked", "path", attempted, "panic", rec)
		}
	}()
	fb(ctx, r, attempted)
}

func (r *Router) allowed(g Guard) bool {
	switch g {
	case GuardNone:
		return true
	case GuardGuest:
		return r.auth == nil || !r.auth.IsAuthenticated()
	case GuardAuth:
		return r.auth != nil && r.auth.IsAuthenticated()
	case GuardAdmin:
		return r.auth != nil && r.auth.IsAuthenticated() && r.auth.HasRole(domain.RoleAdmin)
	}
	return false
}

func (r *Router) finish(nav *Navigation, pattern, outcome string, err error) {
	ev := &domain.NavigationEvent{
		Timestamp: nav.started,
		Seq:       nav.Seq,
		Path:      nav.Path,
		Pattern:   pattern,
		Status:    outcome,
		Duration:  time.Since(nav.started),
		Stale:     outcome == OutcomeStale,
	}
	nav.event = ev
	nav.err = err
	close(nav.done)

	if r.hooks.OnNavigate != nil {
		r.hooks.OnNavigate(ev)
	}
}

// Redirect returns a Fallback that navigates to target.
func Redirect(target string) Fallback {
	return func(ctx context.Context, r *Router, _ string) {
		r.Navigate(ctx, target)
	}
}

// RedirectWithReturn returns a Fallback that navigates to target, recording
// the denied path as returnTo in the history state.
func RedirectWithReturn(target string) Fallback {
	return func(ctx context.Context, r *Router, attempted string) {
		r.Navigate(ctx, target, WithState(map[string]any{"returnTo": attempted}))
	}
}

// ReturnTo extracts the returnTo hint from history state.
func ReturnTo(state any) string {
	if m, ok := state.(map[string]any); ok {
		if s, ok := m["returnTo"].(string); ok {
			return s
		}
	}
	return ""
}
