package router

import (
	"fmt"

	"github.com/aretw0/taskup/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ManifestEntry declares a route in YAML. View names a handler from the view
// registry passed to Build.
type ManifestEntry struct {
	Path     string `yaml:"path"`
	View     string `yaml:"view"`
	Guard    Guard  `yaml:"guard,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Redirect string `yaml:"redirect,omitempty"`
	ReturnTo bool   `yaml:"return_to,omitempty"`
}

// Manifest is a route table kept outside the code.
//
//	routes:
//	  - path: /app/projects/:id
//	    view: project-detail
//	    guard: auth
//	    title: Project Details
//	    redirect: /auth/sign-in
//	    return_to: true
type Manifest struct {
	Routes []ManifestEntry `yaml:"routes"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse route manifest: %w", err)
	}
	return &m, nil
}

// Build binds every entry to its view. An unknown view or guard is an error.
func (m *Manifest) Build(views map[string]Handler) ([]Route, error) {
	routes := make([]Route, 0, len(m.Routes))
	for _, e := range m.Routes {
		h, ok := views[e.View]
		if !ok {
			return nil, fmt.Errorf("%w: %s references unknown view %q", domain.ErrInvalidRoute, e.Path, e.View)
		}
		if !e.Guard.Valid() {
			return nil, fmt.Errorf("%w: %s has unknown guard %q", domain.ErrInvalidRoute, e.Path, e.Guard)
		}
		rt := Route{Path: e.Path, Handler: h, Guard: e.Guard, Title: e.Title}
		switch {
		case e.Redirect != "" && e.ReturnTo:
			rt.Fallback = RedirectWithReturn(e.Redirect)
		case e.Redirect != "":
			rt.Fallback = Redirect(e.Redirect)
		}
		routes = append(routes, rt)
	}
	return routes, nil
}
