// Package store implements the application state container: a tree of named
// slices updated only by dispatching actions through middleware and reducers.
package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/taskup/internal/logging"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/events"
)

// Reducer computes the next value of one slice. It must return its input
// unchanged for actions it does not handle.
type Reducer func(slice any, action domain.Action) any

// Middleware sees every action before the reducers and may replace it.
type Middleware func(state State, action domain.Action) domain.Action

// Listener receives the new state after every dispatch.
type Listener func(State)

// Unsubscribe removes a listener. Calling it more than once is harmless.
type Unsubscribe func()

// ReducerError describes a reducer that panicked while handling an action.
type ReducerError struct {
	Slice  string
	Action domain.ActionType
	Value  any
}

func (e *ReducerError) Error() string {
	return fmt.Sprintf("reducer for slice %q panicked on %s: %v", e.Slice, e.Action, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *ReducerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type storeEvent string

const changeEvent storeEvent = "change"

// Store holds the state tree.
//
// Dispatch is atomic per call: middleware, reducers and the swap of the tree
// happen under one lock, then listeners are notified synchronously, in
// subscription order, outside the lock. A listener may therefore dispatch
// again; middleware and reducers may not.
type Store struct {
	mu         sync.Mutex
	state      State
	initial    State
	order      []string
	reducers   map[string]Reducer
	middleware []Middleware

	listeners *events.Emitter[storeEvent, State]
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithReducer registers a reducer at construction time.
func WithReducer(slice string, r Reducer) Option {
	return func(s *Store) {
		s.register(slice, r)
	}
}

// WithMiddleware appends a middleware at construction time.
func WithMiddleware(mw Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, mw)
	}
}

// WithHooks configures lifecycle hooks. Only OnDispatch is used.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// New creates a Store whose tree starts as initial.
func New(initial State, opts ...Option) *Store {
	s := &Store{
		state:    initial,
		initial:  initial,
		reducers: make(map[string]Reducer),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.listeners = events.New[storeEvent, State](events.WithLogger(s.logger))
	return s
}

// RegisterReducer installs r as the reducer of slice, replacing any previous
// one. A reducer for a slice the tree does not carry is kept but never run.
// Registration is allowed at any time.
func (s *Store) RegisterReducer(slice string, r Reducer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(slice, r)
}

func (s *Store) register(slice string, r Reducer) {
	if _, exists := s.reducers[slice]; !exists {
		s.order = append(s.order, slice)
	}
	s.reducers[slice] = r
	if !s.state.Has(slice) {
		s.logger.Warn("reducer registered for unknown slice", "slice", slice)
	}
}

// AddMiddleware appends mw to the middleware chain.
func (s *Store) AddMiddleware(mw Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw)
}

// Subscribe registers l and returns the function that removes it.
func (s *Store) Subscribe(l Listener) Unsubscribe {
	id := s.listeners.On(changeEvent, func(st State) { l(st) })
	var once sync.Once
	return func() {
		once.Do(func() { s.listeners.Off(changeEvent, id) })
	}
}

// SubscribeSlice registers l for dispatches that replaced the named slice.
func (s *Store) SubscribeSlice(slice string, l Listener) Unsubscribe {
	s.mu.Lock()
	last, _ := s.state.Get(slice)
	s.mu.Unlock()

	var mu sync.Mutex
	return s.Subscribe(func(st State) {
		cur, _ := st.Get(slice)
		mu.Lock()
		changed := !Same(last, cur)
		last = cur
		mu.Unlock()
		if changed {
			l(st)
		}
	})
}

// GetState returns the current snapshot.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs action through the middleware chain and every reducer, swaps
// in the new tree and notifies listeners. It returns the action the reducers
// saw.
func (s *Store) Dispatch(action domain.Action) domain.Action {
	action, prev, cur, onDispatch := s.apply(action)

	if onDispatch != nil {
		onDispatch(action, Diff(prev, cur))
	}
	s.listeners.Emit(changeEvent, cur)
	return action
}

// apply runs middleware and reducers and swaps in the new tree under the lock.
// A panicking middleware propagates to the caller with the lock released and
// the previous tree in place.
func (s *Store) apply(action domain.Action) (domain.Action, State, State, func(domain.Action, []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	for _, mw := range s.middleware {
		action = mw(prev, action)
	}

	next := prev.Map()
	for _, name := range s.order {
		old, ok := next[name]
		if !ok {
			continue
		}
		next[name] = s.reduce(name, s.reducers[name], old, action)
	}
	s.state = State{slices: next}
	return action, prev, s.state, s.hooks.OnDispatch
}

// reduce isolates a single reducer: a panic or a nil result keeps the previous slice.
func (s *Store) reduce(name string, r Reducer, old any, action domain.Action) (out any) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &ReducerError{Slice: name, Action: action.Type, Value: rec}
			s.logger.Error("reducer failed", "slice", name, "action", string(action.Type), "error", err)
			out = old
		}
	}()
	out = r(old, action)
	if out == nil {
		s.logger.Warn("reducer returned nil slice", "slice", name, "action", string(action.Type))
		return old
	}
	return out
}

// ResetState restores the initial tree and notifies listeners.
func (s *Store) ResetState() {
	s.mu.Lock()
	s.state = s.initial
	cur := s.state
	s.mu.Unlock()
	s.listeners.Emit(changeEvent, cur)
}
