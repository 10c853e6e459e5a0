package observability

import (
	"log/slog"

	"github.com/aretw0/taskup/pkg/domain"
)

// Chain merges hooks; each callback runs the non-nil callbacks in order.
func Chain(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var (
		dispatch []func(domain.Action, []string)
		navigate []func(*domain.NavigationEvent)
		authEv   []func(domain.AuthEvent)
	)
	for _, h := range all {
		if h.OnDispatch != nil {
			dispatch = append(dispatch, h.OnDispatch)
		}
		if h.OnNavigate != nil {
			navigate = append(navigate, h.OnNavigate)
		}
		if h.OnAuthEvent != nil {
			authEv = append(authEv, h.OnAuthEvent)
		}
	}

	var out domain.LifecycleHooks
	if len(dispatch) > 0 {
		out.OnDispatch = func(a domain.Action, changed []string) {
			for _, fn := range dispatch {
				fn(a, changed)
			}
		}
	}
	if len(navigate) > 0 {
		out.OnNavigate = func(ev *domain.NavigationEvent) {
			for _, fn := range navigate {
				fn(ev)
			}
		}
	}
	if len(authEv) > 0 {
		out.OnAuthEvent = func(e domain.AuthEvent) {
			for _, fn := range authEv {
				fn(e)
			}
		}
	}
	return out
}

// LogHooks logs every lifecycle event at info level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(a domain.Action, changed []string) {
			logger.Info("action_dispatched", "type", string(a.Type), "changed", changed)
		},
		OnNavigate: func(ev *domain.NavigationEvent) {
			logger.Info("navigation_settled",
				"path", ev.Path,
				"pattern", ev.Pattern,
				"status", ev.Status,
				"seq", ev.Seq,
				"duration", ev.Duration,
			)
		},
		OnAuthEvent: func(e domain.AuthEvent) {
			logger.Info("auth_event", "event", string(e))
		},
	}
}
