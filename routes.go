package taskup

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/aretw0/taskup/pkg/router"
)

// SignInPath is where expired or anonymous sessions are sent.
const SignInPath = "/auth/sign-in"

//go:embed routes.yaml
var defaultManifest []byte

// DefaultManifest returns the built-in route table.
func DefaultManifest() (*router.Manifest, error) {
	return router.ParseManifest(defaultManifest)
}

// DefaultRoutes binds the built-in route table to views. Views missing from
// the map render nothing.
func DefaultRoutes(views map[string]router.Handler) ([]router.Route, error) {
	m, err := DefaultManifest()
	if err != nil {
		return nil, err
	}
	bound := make(map[string]router.Handler, len(m.Routes))
	for _, e := range m.Routes {
		bound[e.View] = blankView
	}
	for name, h := range views {
		bound[name] = h
	}
	routes, err := m.Build(bound)
	if err != nil {
		return nil, fmt.Errorf("failed to build default routes: %w", err)
	}
	return routes, nil
}

func blankView(context.Context, router.Params) error { return nil }
