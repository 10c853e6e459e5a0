package cli

import (
	"errors"
	"io"

	"github.com/aretw0/taskup/internal/presentation/graph"
	"github.com/aretw0/taskup/internal/presentation/tui"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
)

// ListRoutes prints the route table.
func ListRoutes(r *router.Router, out Output) error {
	return printMarkdown(out.W, out.Render, tui.RoutesTable(r.Routes()))
}

// ResolveRoute prints which route path matches, without navigating.
func ResolveRoute(r *router.Router, out Output, path string) error {
	m, err := r.Resolve(path)
	if err != nil && !errors.Is(err, domain.ErrRouteNotFound) {
		return err
	}
	return printMarkdown(out.W, out.Render, tui.Resolution(path, m))
}

// RouteGraph writes the route manifest as a Mermaid flowchart. When at is set,
// the route it resolves to is highlighted.
func RouteGraph(r *router.Router, m *router.Manifest, w io.Writer, at string) error {
	var overlay *graph.Overlay
	if at != "" {
		match, err := r.Resolve(at)
		if err != nil {
			return err
		}
		overlay = &graph.Overlay{Current: match.Route.Path}
	}
	_, err := io.WriteString(w, graph.RouteMap(m, overlay))
	return err
}
