// Package http exposes a running App over HTTP: read-only views of the state
// tree, the route and the session, navigation and dispatch controls, the
// Prometheus endpoint and a websocket stream of CloudEvents.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/taskup"
	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/auth"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/aretw0/taskup/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNavigateTimeout bounds how long POST /api/navigate waits for the view.
const DefaultNavigateTimeout = 10 * time.Second

// Server serves the control API of one App.
type Server struct {
	app     *taskup.App
	streams *StreamManager
	logger  *slog.Logger

	gatherer        prometheus.Gatherer
	allowedOrigins  []string
	navigateTimeout time.Duration
	upgrader        websocket.Upgrader

	unsubscribe []func()
	done        chan struct{}
	closeOnce   sync.Once
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics. Defaults to the global one.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAllowedOrigins lets pages on other origins call the API and open the
// event stream. Without it only same-origin pages and non-browser clients are
// admitted.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithNavigateTimeout bounds how long navigate requests wait for the view.
func WithNavigateTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.navigateTimeout = d
	}
}

// New creates a Server and starts streaming app events to websocket clients.
func New(app *taskup.App, opts ...Option) *Server {
	s := &Server{
		app:             app,
		logger:          logging.NewNop(),
		gatherer:        prometheus.DefaultGatherer,
		navigateTimeout: DefaultNavigateTimeout,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.streams = NewStreamManager(s.logger)
	s.watch()
	return s
}

// watch forwards store, router and auth events to the stream.
func (s *Server) watch() {
	var mu sync.Mutex
	last := s.app.Store.GetState()
	s.unsubscribe = append(s.unsubscribe, s.app.Store.Subscribe(func(st store.State) {
		mu.Lock()
		changed := store.Diff(last, st)
		last = st
		mu.Unlock()
		if len(changed) == 0 {
			return
		}
		slices := make(map[string]any, len(changed))
		for _, name := range changed {
			slices[name], _ = st.Get(name)
		}
		s.streams.Publish(TopicState, EventTypeStateChange, map[string]any{
			"changed": changed,
			"slices":  slices,
		})
	}))

	routeID := s.app.Router.On(domain.RouteChange, func(cur router.CurrentRoute) {
		s.streams.Publish(TopicRoute, EventTypeRouteChange, cur)
	})
	s.unsubscribe = append(s.unsubscribe, func() { s.app.Router.Off(domain.RouteChange, routeID) })

	for _, ev := range domain.AuthEvents {
		id := s.app.Auth.On(ev, func(p domain.AuthPayload) {
			s.streams.Publish(TopicAuth, authEventType(string(ev)), p)
		})
		s.unsubscribe = append(s.unsubscribe, func() { s.app.Auth.Off(ev, id) })
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	r.Get("/health", s.getHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/route", s.getRoute)
		r.Get("/session", s.getSession)
		r.Post("/session", s.login)
		r.Delete("/session", s.logout)
		r.Post("/session/refresh", s.refresh)
		r.Post("/navigate", s.navigate)
		r.Post("/dispatch", s.dispatch)
		r.Get("/events", s.subscribeEvents)
	})
	return r
}

// Close detaches from the app and disconnects stream clients.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		for _, fn := range s.unsubscribe {
			fn()
		}
		close(s.done)
	})
	return nil
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Store.GetState())
}

// RouteResponse is the body of GET /api/route.
type RouteResponse struct {
	Status   router.Status        `json:"status"`
	Title    string               `json:"title"`
	Location router.Location      `json:"location"`
	Current  *router.CurrentRoute `json:"current"`
}

func (s *Server) routeResponse() RouteResponse {
	return RouteResponse{
		Status:   s.app.Router.Status(),
		Title:    s.app.Router.Title(),
		Location: s.app.Router.Location(),
		Current:  s.app.Router.Current(),
	}
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.routeResponse())
}

// SessionResponse is the body of the session endpoints. Tokens are never exposed.
type SessionResponse struct {
	State           auth.State   `json:"state"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user"`
	TokenExpiry     time.Time    `json:"tokenExpiry,omitzero"`
	TimerActive     bool         `json:"timerActive"`
}

func (s *Server) sessionResponse() SessionResponse {
	sess := s.app.Auth.Session()
	return SessionResponse{
		State:           s.app.Auth.State(),
		IsAuthenticated: sess.IsAuthenticated,
		User:            sess.User,
		TokenExpiry:     sess.TokenExpiry,
		TimerActive:     s.app.Auth.TimerActive(),
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionResponse())
}

// LoginRequest is the body of POST /api/session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := s.app.Auth.Login(r.Context(), body.Email, body.Password, body.Remember); err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrorMessage(err, auth.MsgLoginFailed))
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	serverSide := r.URL.Query().Get("local") != "true"
	if err := s.app.Auth.Logout(r.Context(), serverSide); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.app.Auth.RefreshToken(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrNoRefreshToken) || errors.Is(err, domain.ErrNotAuthenticated) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse())
}

// NavigateRequest is the body of POST /api/navigate.
type NavigateRequest struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace,omitempty"`
	State   any    `json:"state,omitempty"`
}

// NavigateResponse reports how a navigation settled and where the router ended up.
type NavigateResponse struct {
	Navigation *domain.NavigationEvent `json:"navigation"`
	Error      string                  `json:"error,omitempty"`
	Route      RouteResponse           `json:"route"`
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	var opts []router.NavigateOption
	if body.Replace {
		opts = append(opts, router.WithReplace())
	}
	if body.State != nil {
		opts = append(opts, router.WithState(body.State))
	}

	// The navigation must outlive the request; only the wait is bounded.
	nav := s.app.Router.Navigate(context.WithoutCancel(r.Context()), body.Path, opts...)
	ctx, cancel := context.WithTimeout(r.Context(), s.navigateTimeout)
	defer cancel()

	ev, err := nav.Wait(ctx)
	resp := NavigateResponse{Navigation: ev}
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, http.StatusGatewayTimeout, "navigation did not settle in time")
			return
		}
		resp.Error = err.Error()
	}
	// Wait for redirects issued by guard fallbacks.
	if _, err := s.app.Router.Wait(ctx); err != nil && ctx.Err() != nil {
		s.logger.Warn("Redirect did not settle in time", "path", body.Path)
	}
	resp.Route = s.routeResponse()
	writeJSON(w, http.StatusOK, resp)
}

// DispatchRequest is the body of POST /api/dispatch.
type DispatchRequest struct {
	Type    domain.ActionType `json:"type"`
	Payload any               `json:"payload,omitempty"`
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !body.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown action type: "+string(body.Type))
		return
	}
	action := s.app.Store.Dispatch(domain.NewAction(body.Type, body.Payload))
	writeJSON(w, http.StatusOK, map[string]any{
		"action": action,
		"state":  s.app.Store.GetState(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
