// Package graph renders the route table as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/taskup/pkg/router"
)

// Overlay marks navigation state on the map.
type Overlay struct {
	// Visited are route patterns the history went through.
	Visited []string
	// Current is the pattern of the current route.
	Current string
}

// RouteMap produces a Mermaid flowchart of the manifest. Shapes follow the guard:
// - auth: [[Subroutine]]
// - guest: [/Parallelogram/]
// - admin: {{Hexagon}}
// - none: [Rectangle]
// Guard redirects become dotted edges labelled with the guard.
func RouteMap(m *router.Manifest, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[string]bool, len(m.Routes))
	for _, e := range m.Routes {
		declared[e.Path] = true
	}

	for _, e := range m.Routes {
		id := sanitizeMermaidID(e.Path)

		opener, closer := "[", "]"
		switch e.Guard {
		case router.GuardAuth:
			opener, closer = "[[", "]]"
		case router.GuardGuest:
			opener, closer = "[/", "/]"
		case router.GuardAdmin:
			opener, closer = "{{", "}}"
		}

		label := e.Path
		if e.Title != "" {
			label = fmt.Sprintf("%s <br/> %s", e.Path, quote(e.Title))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		if e.Redirect == "" {
			continue
		}
		if !declared[e.Redirect] {
			// Undeclared target: still draw it so broken redirects are visible.
			declared[e.Redirect] = true
			fmt.Fprintf(&sb, "    %s(\"%s\")\n", sanitizeMermaidID(e.Redirect), e.Redirect)
		}
		edge := string(e.Guard)
		if e.ReturnTo {
			edge += " ↩"
		}
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, edge, sanitizeMermaidID(e.Redirect))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, p := range overlay.Visited {
			id := sanitizeMermaidID(p)
			if id == "" || seen[id] || !declared[p] || p == overlay.Current {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if overlay.Current != "" && declared[overlay.Current] {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func quote(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// sanitizeMermaidID maps a route pattern onto a Mermaid node ID. "/" becomes "root".
func sanitizeMermaidID(p string) string {
	if p == "/" {
		return "root"
	}
	s := strings.TrimPrefix(p, "/")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
