package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/events"
	"github.com/aretw0/taskup/pkg/gateway"
	"github.com/aretw0/taskup/pkg/ports"
	"github.com/aretw0/taskup/pkg/session"
	"github.com/golang-jwt/jwt/v5"
)

// State is the manager's position in the session state machine.
type State string

const (
	StateAnonymous     State = "ANONYMOUS"
	StateAuthenticated State = "AUTHENTICATED"
	StateRefreshing    State = "REFRESHING"
)

// Listener receives auth events.
type Listener = events.Listener[domain.AuthPayload]

// AuthResponse is the body of login, registration and refresh responses.
type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *domain.User `json:"user,omitempty"`
	// ExpiresIn is the token lifetime in seconds; 0 means unknown.
	ExpiresIn int    `json:"expiresIn,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Response is a generic JSON object response.
type Response map[string]any

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Manager owns the session. Safe for concurrent use.
type Manager struct {
	gw       ports.Gateway
	repo     *session.Repository
	notifier ports.Notifier
	events   *events.Emitter[domain.AuthEvent, domain.AuthPayload]
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time

	checkInterval    time.Duration
	refreshThreshold time.Duration
	defaultExpiresIn time.Duration

	mu       sync.RWMutex
	sess     domain.Session
	state    State
	gen      uint64 // bumped whenever a session starts or ends
	inflight *refreshCall

	timerMu   sync.Mutex
	stopTimer context.CancelFunc
}

// New creates a Manager. The repository persists the session between runs.
func New(gw ports.Gateway, repo *session.Repository, opts ...Option) *Manager {
	m := &Manager{
		gw:               gw,
		repo:             repo,
		notifier:         ports.NopNotifier,
		logger:           logging.NewNop(),
		now:              time.Now,
		checkInterval:    DefaultCheckInterval,
		refreshThreshold: DefaultRefreshThreshold,
		defaultExpiresIn: DefaultExpiresIn,
		state:            StateAnonymous,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = events.New[domain.AuthEvent, domain.AuthPayload](events.WithLogger(m.logger))
	return m
}

// On subscribes fn to event.
func (m *Manager) On(event domain.AuthEvent, fn Listener) events.SubscriptionID {
	return m.events.On(event, fn)
}

// Off removes a subscription.
func (m *Manager) Off(event domain.AuthEvent, id events.SubscriptionID) bool {
	return m.events.Off(event, id)
}

func (m *Manager) emit(event domain.AuthEvent, payload domain.AuthPayload) {
	if m.hooks.OnAuthEvent != nil {
		m.hooks.OnAuthEvent(event)
	}
	m.events.Emit(event, payload)
}

// Initialize restores a persisted session and validates it against the server.
// A 401 or 403 from the profile endpoint clears it; other failures keep it.
func (m *Manager) Initialize(ctx context.Context) error {
	p, err := m.repo.Load(ctx)
	if err != nil {
		m.logger.Error("Failed to restore session", "err", err)
		m.clearSession(ctx)
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !p.Complete() {
		return nil
	}

	m.setSession(ctx, p.Token, p.RefreshToken, p.User, 0)
	m.validateSession(ctx)
	return nil
}

func (m *Manager) validateSession(ctx context.Context) bool {
	if !m.IsAuthenticated() {
		return false
	}
	if _, err := m.GetUserProfile(ctx); err != nil {
		m.logger.Warn("Session validation failed", "err", err)
		if gateway.IsUnauthorized(err) && m.IsAuthenticated() {
			m.clearSession(ctx)
		}
		return false
	}
	return true
}

// IsAuthenticated reports whether a session with a token is active.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess.IsAuthenticated && m.sess.Token != ""
}

// State returns the current state machine position.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns a copy of the current session.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sess
	s.User = cloneUser(m.sess.User)
	return s
}

// GetUser returns a copy of the current user, or nil.
func (m *Manager) GetUser() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.sess.User)
}

// GetUserRole returns the current user's role, or "".
func (m *Manager) GetUserRole() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess.User == nil {
		return ""
	}
	return m.sess.User.Role
}

// HasRole reports whether the current user's role is one of roles.
func (m *Manager) HasRole(roles ...string) bool {
	role := m.GetUserRole()
	if role == "" {
		return false
	}
	return slices.Contains(roles, role)
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// expiryFor resolves the absolute expiry of token. expiresIn wins, then the
// token's exp claim, then the default lifetime.
func (m *Manager) expiryFor(token string, expiresIn time.Duration) time.Time {
	now := m.now()
	if expiresIn > 0 {
		return now.Add(expiresIn)
	}
	if exp, ok := tokenExpiry(token); ok {
		return exp
	}
	return now.Add(m.defaultExpiresIn)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// SetSession establishes an authenticated session. expiresIn is in seconds;
// 0 derives the expiry from the token or the default lifetime.
func (m *Manager) SetSession(ctx context.Context, token, refreshToken string, user *domain.User, expiresIn int) {
	m.setSession(ctx, token, refreshToken, user, time.Duration(expiresIn)*time.Second)
}

// setSession is the one mutation point for entering the authenticated state.
func (m *Manager) setSession(ctx context.Context, token, refreshToken string, user *domain.User, expiresIn time.Duration) {
	expiry := m.expiryFor(token, expiresIn)

	m.mu.Lock()
	m.sess = domain.Session{
		IsAuthenticated: true,
		User:            cloneUser(user),
		Token:           token,
		RefreshToken:    refreshToken,
		TokenExpiry:     expiry,
	}
	m.gen++
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.repo.Save(ctx, token, refreshToken, user); err != nil {
		m.logger.Warn("Failed to persist session", "err", err)
	}
	m.gw.SetAuthToken(token)
	m.startSessionCheck()
}

// setToken replaces the access token (and the refresh token when one is given)
// keeping the user.
func (m *Manager) setToken(ctx context.Context, token, refreshToken string, expiresIn time.Duration) {
	expiry := m.expiryFor(token, expiresIn)

	m.mu.Lock()
	m.sess.Token = token
	if refreshToken != "" {
		m.sess.RefreshToken = refreshToken
	}
	m.sess.TokenExpiry = expiry
	m.mu.Unlock()

	if err := m.repo.SaveToken(ctx, token, refreshToken); err != nil {
		m.logger.Warn("Failed to persist token", "err", err)
	}
	m.gw.SetAuthToken(token)
	m.startSessionCheck()
}

// updateUser merges patch into the current user, persists it and emits user:update.
func (m *Manager) updateUser(ctx context.Context, patch any) (*domain.User, error) {
	m.mu.Lock()
	if !m.sess.IsAuthenticated {
		m.mu.Unlock()
		return nil, domain.ErrNotAuthenticated
	}
	merged, err := domain.MergeUser(m.sess.User, patch)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.sess.User = merged
	m.mu.Unlock()

	if err := m.repo.SaveUser(ctx, merged); err != nil {
		m.logger.Warn("Failed to persist user", "err", err)
	}
	m.emit(domain.AuthUserUpdate, domain.AuthPayload{User: cloneUser(merged)})
	return cloneUser(merged), nil
}

// clearSession resets the session, removes the persisted copy, stops the
// background check and emits logout.
func (m *Manager) clearSession(ctx context.Context) {
	m.mu.Lock()
	m.sess = domain.Session{}
	m.gen++
	m.state = StateAnonymous
	m.mu.Unlock()

	if err := m.repo.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("Failed to clear persisted session", "err", err)
	}
	m.gw.SetAuthToken("")
	m.stopSessionCheck()
	m.emit(domain.AuthLogout, domain.AuthPayload{})
}

func (m *Manager) handleSessionExpired(ctx context.Context) {
	m.clearSession(ctx)
	m.emit(domain.AuthSessionExpired, domain.AuthPayload{})
}

func (m *Manager) handleAuthError(err error, fallback string) {
	msg := ErrorMessage(err, fallback)
	m.emit(domain.AuthError, domain.AuthPayload{Err: err, Message: msg})
	m.notifier.Notify(ports.NoticeError, msg)
}

func (m *Manager) handleAuthResponse(ctx context.Context, resp *AuthResponse) {
	m.setSession(ctx, resp.Token, resp.RefreshToken, resp.User, time.Duration(resp.ExpiresIn)*time.Second)
	m.emit(domain.AuthLogin, domain.AuthPayload{User: m.GetUser()})
}

// Close stops the background session check. The session itself is kept.
func (m *Manager) Close() error {
	m.stopSessionCheck()
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp, _ := domain.DecodeUser(u)
	return cp
}
