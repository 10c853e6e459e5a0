package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/taskup/internal/presentation/graph"
	"github.com/aretw0/taskup/pkg/router"
	"github.com/stretchr/testify/assert"
)

func TestRouteMap(t *testing.T) {
	tests := []struct {
		name     string
		entries  []router.ManifestEntry
		contains []string
		excludes []string
	}{
		{
			name:     "Public Route Shape",
			entries:  []router.ManifestEntry{{Path: "/", View: "landing"}},
			contains: []string{"root[\"/\"]"},
		},
		{
			name: "Guard Shapes",
			entries: []router.ManifestEntry{
				{Path: "/app/dashboard", Guard: router.GuardAuth},
				{Path: "/auth/sign-in", Guard: router.GuardGuest},
				{Path: "/app/admin", Guard: router.GuardAdmin},
			},
			contains: []string{
				"app_dashboard[[\"/app/dashboard\"]]",
				"auth_sign_in[/\"/auth/sign-in\"/]",
				"app_admin{{\"/app/admin\"}}",
			},
		},
		{
			name:     "Params Are Stripped From IDs",
			entries:  []router.ManifestEntry{{Path: "/app/projects/:id", Title: "Project \"Details\""}},
			contains: []string{"app_projects_id[\"/app/projects/:id <br/> Project 'Details'\"]"},
		},
		{
			name: "Guard Redirect Edge",
			entries: []router.ManifestEntry{
				{Path: "/app/dashboard", Guard: router.GuardAuth, Redirect: "/auth/sign-in", ReturnTo: true},
				{Path: "/auth/sign-in", Guard: router.GuardGuest, Redirect: "/app/dashboard"},
			},
			contains: []string{
				"app_dashboard -. \"auth ↩\" .-> auth_sign_in",
				"auth_sign_in -. \"guest\" .-> app_dashboard",
			},
		},
		{
			name: "Undeclared Redirect Target",
			entries: []router.ManifestEntry{
				{Path: "/app/dashboard", Guard: router.GuardAuth, Redirect: "/login"},
			},
			contains: []string{"login(\"/login\")"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.RouteMap(&router.Manifest{Routes: tt.entries}, nil)
			assert.True(t, strings.HasPrefix(out, "graph TD\n"))
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			assert.NotContains(t, out, "classDef")
		})
	}
}

func TestRouteMap_Overlay(t *testing.T) {
	m := &router.Manifest{Routes: []router.ManifestEntry{
		{Path: "/"},
		{Path: "/auth/sign-in", Guard: router.GuardGuest},
		{Path: "/app/dashboard", Guard: router.GuardAuth},
	}}

	out := graph.RouteMap(m, &graph.Overlay{
		Visited: []string{"/", "/auth/sign-in", "/", "/nowhere", "/app/dashboard"},
		Current: "/app/dashboard",
	})

	assert.Contains(t, out, "classDef visited")
	assert.Equal(t, 1, strings.Count(out, "class root visited;"))
	assert.Contains(t, out, "class auth_sign_in visited;")
	assert.Contains(t, out, "class app_dashboard current;")
	assert.NotContains(t, out, "class app_dashboard visited;")
	assert.NotContains(t, out, "nowhere")
}
