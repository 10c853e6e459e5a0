package router

import (
	"context"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
)

// Outcomes reported in domain.NavigationEvent.Status.
const (
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
	OutcomeStale    = "stale"
)

// Navigation is a handle on one route resolution.
type Navigation struct {
	Seq  uint64
	Path string

	started time.Time
	done    chan struct{}
	event   *domain.NavigationEvent
	err     error

	// cancel stops the handler context; guarded by Router.mu.
	cancel context.CancelFunc
}

func newNavigation(seq uint64, path string, started time.Time) *Navigation {
	return &Navigation{Seq: seq, Path: path, started: started, done: make(chan struct{})}
}

// Done is closed once the navigation settled.
func (n *Navigation) Done() <-chan struct{} {
	return n.done
}

// Wait blocks until the navigation settled. The error is non-nil only when
// the route's handler failed (a *HandlerError) or ctx ended first.
func (n *Navigation) Wait(ctx context.Context) (*domain.NavigationEvent, error) {
	select {
	case <-n.done:
		return n.event, n.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandlerError reports a view handler failure.
type HandlerError struct {
	Path    string
	Pattern string
	Err     error
}

func (e *HandlerError) Error() string {
	return "route handler for " + e.Path + " failed: " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error { return e.Err }
