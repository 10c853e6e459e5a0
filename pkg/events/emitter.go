// Package events provides the typed publish/subscribe primitive shared by the
// store, the router and the auth manager.
package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/taskup/internal/logging"
)

// Listener receives the payload of an emitted event.
type Listener[P any] func(P)

// SubscriptionID identifies a listener registration. Functions are not
// comparable in Go, so Off works on IDs instead of listener values.
type SubscriptionID uint64

type subscription[P any] struct {
	id SubscriptionID
	fn Listener[P]
}

// Emitter is a named-event listener registry parameterized by the event-name
// type K and the payload type P. The zero value is not usable; call New.
//
// Emit delivers synchronously, in subscription order, to a snapshot of the
// listeners taken at emit time. Listeners may subscribe, unsubscribe or emit
// again from inside a callback.
type Emitter[K ~string, P any] struct {
	mu        sync.RWMutex
	nextID    SubscriptionID
	listeners map[K][]subscription[P]
	logger    *slog.Logger
}

// Option configures an Emitter.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report listener panics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates an empty Emitter.
func New[K ~string, P any](opts ...Option) *Emitter[K, P] {
	cfg := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Emitter[K, P]{
		listeners: make(map[K][]subscription[P]),
		logger:    cfg.logger,
	}
}

// On registers fn for event and returns its subscription ID.
func (e *Emitter[K, P]) On(event K, fn Listener[P]) SubscriptionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], subscription[P]{id: id, fn: fn})
	return id
}

// Once registers fn to run for the next emission of event only.
func (e *Emitter[K, P]) Once(event K, fn Listener[P]) SubscriptionID {
	var id SubscriptionID
	var once sync.Once
	id = e.On(event, func(p P) {
		once.Do(func() {
			e.Off(event, id)
			fn(p)
		})
	})
	return id
}

// Off removes the listener registered under id. It reports whether a listener was removed.
func (e *Emitter[K, P]) Off(event K, id SubscriptionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.listeners[event]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// Copy so snapshots held by in-flight emits stay intact.
		next := make([]subscription[P], 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = next
		}
		return true
	}
	return false
}

// Emit calls every listener of event with payload. A panicking listener is
// logged and skipped; the remaining listeners still run.
func (e *Emitter[K, P]) Emit(event K, payload P) {
	e.mu.RLock()
	subs := e.listeners[event]
	e.mu.RUnlock()

	for _, s := range subs {
		e.call(event, s, payload)
	}
}

func (e *Emitter[K, P]) call(event K, s subscription[P], payload P) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panicked",
				"event", string(event),
				"subscription", uint64(s.id),
				"error", fmt.Sprint(r))
		}
	}()
	s.fn(payload)
}

// Clear removes all listeners of the given events, or every listener when none are given.
func (e *Emitter[K, P]) Clear(events ...K) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		e.listeners = make(map[K][]subscription[P])
		return
	}
	for _, ev := range events {
		delete(e.listeners, ev)
	}
}

// Count returns the number of listeners registered for event.
func (e *Emitter[K, P]) Count(event K) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}
