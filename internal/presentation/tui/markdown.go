package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/router"
)

// RoutesTable lists routes in registration order.
func RoutesTable(routes []router.Route) string {
	var b strings.Builder
	b.WriteString("# Routes\n\n")
	b.WriteString("| Path | Guard | Title |\n|---|---|---|\n")
	for _, r := range routes {
		guard := string(r.Guard)
		if guard == "" {
			guard = "-"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", r.Path, guard, cell(r.Title))
	}
	return b.String()
}

// Resolution describes what path matched.
func Resolution(path string, m *router.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# `%s`\n\n", path)
	if m == nil {
		b.WriteString("No route matches; the router would show `" + router.NotFoundPath + "`.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- **Pattern:** `%s`\n", m.Route.Path)
	if m.Route.Guard != router.GuardNone {
		fmt.Fprintf(&b, "- **Guard:** %s\n", m.Route.Guard)
	}
	if m.Route.Title != "" {
		fmt.Fprintf(&b, "- **Title:** %s\n", router.PageTitle(m.Route.Title))
	}
	if len(m.Params) > 0 {
		keys := make([]string, 0, len(m.Params))
		for k := range m.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("- **Params:**\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  - `%s` = `%s`\n", k, m.Params[k])
		}
	}
	return b.String()
}

// SessionSummary describes the current session. Tokens are never printed.
func SessionSummary(state string, sess domain.Session, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Session\n\n")
	fmt.Fprintf(&b, "- **State:** %s\n", state)
	if !sess.IsAuthenticated {
		b.WriteString("- Not signed in.\n")
		return b.String()
	}
	if u := sess.User; u != nil {
		fmt.Fprintf(&b, "- **User:** %s", u.DisplayName())
		if u.Email != "" {
			fmt.Fprintf(&b, " <%s>", u.Email)
		}
		b.WriteString("\n")
		if u.Role != "" {
			fmt.Fprintf(&b, "- **Role:** %s\n", u.Role)
		}
	}
	if !sess.TokenExpiry.IsZero() {
		left := sess.TokenExpiry.Sub(now).Truncate(time.Second)
		if left > 0 {
			fmt.Fprintf(&b, "- **Token expires:** %s (in %s)\n", sess.TokenExpiry.Format(time.RFC3339), left)
		} else {
			fmt.Fprintf(&b, "- **Token expired:** %s\n", sess.TokenExpiry.Format(time.RFC3339))
		}
	}
	if sess.RefreshToken != "" {
		b.WriteString("- **Refresh token:** present\n")
	}
	return b.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
