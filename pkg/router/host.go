package router

import "strings"

const (
	// DefaultTitle is shown for routes without a title.
	DefaultTitle = "TaskUp - Project Management Simplified"
	titleSuffix  = " - TaskUp"
)

// PageTitle formats a route title for the document.
func PageTitle(title string) string {
	if title == "" {
		return DefaultTitle
	}
	return title + titleSuffix
}

// Host is the surface the router renders into.
type Host interface {
	SetTitle(title string)
	ScrollTo(x, y int)
}

type nopHost struct{}

func (nopHost) SetTitle(string)   {}
func (nopHost) ScrollTo(int, int) {}

// Link describes a clicked anchor.
type Link struct {
	Href     string
	External bool
	Target   string
}

// Internal reports whether the router should handle the link itself:
// same-origin absolute path, not marked external, no explicit target.
func (l Link) Internal() bool {
	return strings.HasPrefix(l.Href, "/") && !l.External && l.Target == ""
}
