package domain

import "errors"

// ErrKeyNotFound is returned when a key cannot be found in a key-value store.
var ErrKeyNotFound = errors.New("key not found")

// ErrNotAuthenticated is returned by operations that require an active session.
var ErrNotAuthenticated = errors.New("user not authenticated")

// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// ErrRouteNotFound is returned when no registered route matches a path.
var ErrRouteNotFound = errors.New("route not found")

// ErrInvalidRoute is returned when a route definition cannot be compiled.
var ErrInvalidRoute = errors.New("invalid route")
