package domain

import (
	"time"
)

// AuthEvent names a session lifecycle event.
type AuthEvent string

const (
	AuthLogin          AuthEvent = "login"
	AuthLogout         AuthEvent = "logout"
	AuthTokenRefresh   AuthEvent = "token:refresh"
	AuthUserUpdate     AuthEvent = "user:update"
	AuthSessionExpired AuthEvent = "session:expired"
	AuthError          AuthEvent = "error"
)

// AuthEvents lists every AuthEvent.
var AuthEvents = []AuthEvent{
	AuthLogin, AuthLogout, AuthTokenRefresh, AuthUserUpdate, AuthSessionExpired, AuthError,
}

// AuthPayload is delivered with every AuthEvent. Fields are populated per event:
// User for login/user:update, Token for token:refresh, Err and Message for error.
type AuthPayload struct {
	User    *User  `json:"user,omitempty"`
	Token   string `json:"-"`
	Err     error  `json:"-"`
	Message string `json:"message,omitempty"`
}

// RouteEvent names a router event.
type RouteEvent string

// RouteChange fires after a route's view handler completed for the latest navigation.
const RouteChange RouteEvent = "route:change"

// NavigationEvent describes the outcome of one route resolution.
type NavigationEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Seq       uint64        `json:"seq"`
	Path      string        `json:"path"`
	Pattern   string        `json:"pattern,omitempty"`
	Status    string        `json:"status"`
	Duration  time.Duration `json:"duration"`
	Stale     bool          `json:"stale,omitempty"`
}

// LifecycleHooks defines callbacks for observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnDispatch  func(action Action, changed []string)
	OnNavigate  func(*NavigationEvent)
	OnAuthEvent func(event AuthEvent)
}
