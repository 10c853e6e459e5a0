package store_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ N int }

type label struct{ Text string }

const (
	incr  domain.ActionType = "INCR"
	title domain.ActionType = "TITLE"
	boom  domain.ActionType = "BOOM"
)

func counterReducer(c *counter, a domain.Action) *counter {
	switch a.Type {
	case incr:
		return &counter{N: c.N + 1}
	case boom:
		panic("counter exploded")
	}
	return c
}

func labelReducer(l *label, a domain.Action) *label {
	if a.Type == title {
		return &label{Text: a.Payload.(string)}
	}
	return l
}

func newStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	initial := store.NewState(map[string]any{
		"counter": &counter{},
		"label":   &label{Text: "hello"},
	})
	opts = append([]store.Option{
		store.WithReducer("counter", store.Typed(counterReducer)),
		store.WithReducer("label", store.Typed(labelReducer)),
	}, opts...)
	return store.New(initial, opts...)
}

func TestDispatch_UnknownActionKeepsEverySlice(t *testing.T) {
	s := newStore(t)
	before := s.GetState()

	s.Dispatch(domain.NewAction("NOT_A_REAL_ACTION", nil))
	after := s.GetState()

	for _, name := range before.Names() {
		b, _ := before.Get(name)
		a, _ := after.Get(name)
		assert.Same(t, b, a, "slice %q must be untouched", name)
	}
	assert.Empty(t, store.Diff(before, after))
}

func TestDispatch_OnlyTouchedSliceIsReplaced(t *testing.T) {
	s := newStore(t)
	before := s.GetState()

	s.Dispatch(domain.NewAction(incr, nil))
	after := s.GetState()

	assert.Equal(t, 1, store.MustSlice[*counter](after, "counter").N)
	assert.Same(t,
		store.MustSlice[*label](before, "label"),
		store.MustSlice[*label](after, "label"))
	assert.Equal(t, []string{"counter"}, store.Diff(before, after))
	assert.Equal(t, 0, store.MustSlice[*counter](before, "counter").N, "previous snapshot is not mutated")
}

func TestDispatch_ListenersInOrderWithNewState(t *testing.T) {
	s := newStore(t)
	var order []string
	var seen int

	s.Subscribe(func(st store.State) {
		order = append(order, "first")
		seen = store.MustSlice[*counter](st, "counter").N
	})
	unsub := s.Subscribe(func(store.State) { order = append(order, "second") })
	s.Subscribe(func(store.State) { order = append(order, "third") })

	s.Dispatch(domain.NewAction(incr, nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 1, seen)

	unsub()
	unsub()
	order = nil
	s.Dispatch(domain.NewAction(incr, nil))
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestDispatch_MiddlewareCanRewriteAction(t *testing.T) {
	s := newStore(t)
	var calls []string
	s.AddMiddleware(func(_ store.State, a domain.Action) domain.Action {
		calls = append(calls, "mw1:"+string(a.Type))
		if a.Type == "ALIAS" {
			return domain.NewAction(incr, nil)
		}
		return a
	})
	s.AddMiddleware(func(_ store.State, a domain.Action) domain.Action {
		calls = append(calls, "mw2:"+string(a.Type))
		return a
	})

	out := s.Dispatch(domain.NewAction("ALIAS", nil))
	assert.Equal(t, incr, out.Type)
	assert.Equal(t, []string{"mw1:ALIAS", "mw2:INCR"}, calls)
	assert.Equal(t, 1, store.MustSlice[*counter](s.GetState(), "counter").N)
}

func TestDispatch_PanickingMiddlewareReleasesStore(t *testing.T) {
	s := newStore(t)
	s.AddMiddleware(func(_ store.State, a domain.Action) domain.Action {
		if a.Type == boom {
			panic("middleware exploded")
		}
		return a
	})
	notified := 0
	s.Subscribe(func(store.State) { notified++ })
	before := s.GetState()

	assert.PanicsWithValue(t, "middleware exploded", func() {
		s.Dispatch(domain.NewAction(boom, nil))
	})
	assert.Equal(t, 0, notified)

	done := make(chan store.State, 1)
	go func() { done <- s.GetState() }()
	select {
	case st := <-done:
		assert.True(t, store.Same(before.Map()["counter"], st.Map()["counter"]))
	case <-time.After(time.Second):
		t.Fatal("store stayed locked after a middleware panic")
	}

	s.Dispatch(domain.NewAction(incr, nil))
	assert.Equal(t, 1, store.MustSlice[*counter](s.GetState(), "counter").N)
	assert.Equal(t, 1, notified)
}

func TestDispatch_PanickingReducerIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := newStore(t, store.WithLogger(logger))
	s.Dispatch(domain.NewAction(incr, nil))
	before := s.GetState()

	// The label reducer still runs for the same action.
	s.RegisterReducer("label", store.Typed(func(l *label, a domain.Action) *label {
		if a.Type == boom {
			return &label{Text: "still updated"}
		}
		return l
	}))

	assert.NotPanics(t, func() { s.Dispatch(domain.NewAction(boom, nil)) })
	after := s.GetState()

	assert.Same(t,
		store.MustSlice[*counter](before, "counter"),
		store.MustSlice[*counter](after, "counter"))
	assert.Equal(t, "still updated", store.MustSlice[*label](after, "label").Text)
	assert.Contains(t, buf.String(), "reducer failed")
	assert.Contains(t, buf.String(), "counter exploded")
}

func TestDispatch_NilResultKeepsSlice(t *testing.T) {
	s := newStore(t)
	s.RegisterReducer("label", func(slice any, a domain.Action) any { return nil })
	before := s.GetState()

	s.Dispatch(domain.NewAction(title, "x"))
	got, ok := s.GetState().Get("label")
	require.True(t, ok)
	want, _ := before.Get("label")
	assert.Same(t, want, got)
}

func TestRegisterReducer_UnknownSliceIsSkipped(t *testing.T) {
	s := newStore(t)
	called := false
	s.RegisterReducer("ghost", func(slice any, a domain.Action) any {
		called = true
		return slice
	})

	s.Dispatch(domain.NewAction(incr, nil))
	assert.False(t, called)
	assert.False(t, s.GetState().Has("ghost"))
}

func TestResetState_RestoresInitialTree(t *testing.T) {
	s := newStore(t)
	initial := s.GetState()
	notified := 0
	s.Subscribe(func(store.State) { notified++ })

	s.Dispatch(domain.NewAction(incr, nil))
	s.Dispatch(domain.NewAction(title, "changed"))
	s.ResetState()

	assert.Equal(t, initial.Map(), s.GetState().Map())
	assert.Equal(t, 3, notified)
}

func TestDispatch_ReentrantFromListener(t *testing.T) {
	s := newStore(t)
	s.Subscribe(func(st store.State) {
		if store.MustSlice[*counter](st, "counter").N == 1 {
			s.Dispatch(domain.NewAction(incr, nil))
		}
	})

	s.Dispatch(domain.NewAction(incr, nil))
	assert.Equal(t, 2, store.MustSlice[*counter](s.GetState(), "counter").N)
}

func TestSubscribeSlice(t *testing.T) {
	s := newStore(t)
	calls := 0
	s.SubscribeSlice("label", func(store.State) { calls++ })

	s.Dispatch(domain.NewAction(incr, nil))
	assert.Zero(t, calls)

	s.Dispatch(domain.NewAction(title, "new"))
	assert.Equal(t, 1, calls)
}

func TestHooks_OnDispatchReportsChangedSlices(t *testing.T) {
	var gotAction domain.Action
	var gotChanged []string
	s := newStore(t, store.WithHooks(domain.LifecycleHooks{
		OnDispatch: func(a domain.Action, changed []string) {
			gotAction = a
			gotChanged = changed
		},
	}))

	s.Dispatch(domain.NewAction(title, "x"))
	assert.Equal(t, title, gotAction.Type)
	assert.Equal(t, []string{"label"}, gotChanged)
}

func TestReducerError(t *testing.T) {
	cause := errors.New("bad input")
	err := &store.ReducerError{Slice: "tasks", Action: domain.ActionTaskMove, Value: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `slice "tasks"`)
}
