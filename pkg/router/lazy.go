package router

import (
	"context"
	"fmt"
	"sync"
)

// Loader produces a view the first time its route is entered.
type Loader func(ctx context.Context) (Handler, error)

// Lazy defers loading a view until its route is first resolved. A loaded view
// is cached; a failed load is retried on the next navigation.
func Lazy(name string, load Loader) Handler {
	var (
		mu   sync.Mutex
		view Handler
	)
	return func(ctx context.Context, params Params) error {
		mu.Lock()
		if view == nil {
			v, err := load(ctx)
			if err != nil {
				mu.Unlock()
				return fmt.Errorf("failed to load view %s: %w", name, err)
			}
			if v == nil {
				mu.Unlock()
				return fmt.Errorf("failed to load view %s: loader returned no view", name)
			}
			view = v
		}
		v := view
		mu.Unlock()
		return v(ctx, params)
	}
}
