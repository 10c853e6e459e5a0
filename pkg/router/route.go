package router

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/aretw0/taskup/pkg/domain"
)

// Guard restricts who may enter a route.
type Guard string

const (
	GuardNone  Guard = ""
	GuardAuth  Guard = "auth"
	GuardGuest Guard = "guest"
	GuardAdmin Guard = "admin"
)

// Valid reports whether g is a known guard.
func (g Guard) Valid() bool {
	switch g {
	case GuardNone, GuardAuth, GuardGuest, GuardAdmin:
		return true
	}
	return false
}

// Params are the named path segments of a matched route.
type Params map[string]string

// Handler renders the view of a route. It runs on its own goroutine; ctx is
// cancelled when a newer navigation supersedes it.
type Handler func(ctx context.Context, params Params) error

// Fallback runs when a guard denies a route. attempted is the denied path.
type Fallback func(ctx context.Context, r *Router, attempted string)

// Route is a path pattern with ':name' segments bound to a handler.
type Route struct {
	Path     string
	Handler  Handler
	Guard    Guard
	Fallback Fallback
	Title    string
}

// Match is the result of matching a path against the route table.
type Match struct {
	Route  Route
	Path   string
	Params Params
}

var paramPattern = regexp.MustCompile(`:[A-Za-z0-9_]+`)

type compiledRoute struct {
	Route
	pattern *regexp.Regexp
	names   []string
}

func compile(rt Route) (*compiledRoute, error) {
	if !strings.HasPrefix(rt.Path, "/") {
		return nil, fmt.Errorf("%w: path %q must start with '/'", domain.ErrInvalidRoute, rt.Path)
	}
	if rt.Handler == nil {
		return nil, fmt.Errorf("%w: %s has no handler", domain.ErrInvalidRoute, rt.Path)
	}
	if !rt.Guard.Valid() {
		return nil, fmt.Errorf("%w: %s has unknown guard %q", domain.ErrInvalidRoute, rt.Path, rt.Guard)
	}

	var (
		b     strings.Builder
		names []string
		seen  = map[string]bool{}
		last  int
	)
	b.WriteString("^")
	for _, loc := range paramPattern.FindAllStringIndex(rt.Path, -1) {
		name := rt.Path[loc[0]+1 : loc[1]]
		if seen[name] {
			return nil, fmt.Errorf("%w: %s repeats parameter %q", domain.ErrInvalidRoute, rt.Path, name)
		}
		seen[name] = true
		names = append(names, name)
		b.WriteString(regexp.QuoteMeta(rt.Path[last:loc[0]]))
		b.WriteString("([^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(rt.Path[last:]))
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidRoute, rt.Path, err)
	}
	return &compiledRoute{Route: rt, pattern: re, names: names}, nil
}

func (c *compiledRoute) match(path string) (Params, bool) {
	sub := c.pattern.FindStringSubmatch(path)
	if sub == nil {
		return nil, false
	}
	params := make(Params, len(c.names))
	for i, name := range c.names {
		v := sub[i+1]
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		params[name] = v
	}
	return params, true
}

// cleanPath drops the query string and fragment of a location.
func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	return p
}
