package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State is an immutable snapshot of the state tree: a set of named slices.
//
// Slices are replaced, never mutated, so two snapshots share every slice a
// dispatch did not touch. Reducers must keep to that rule: return the input
// unchanged when the action is not theirs, or a fresh copy otherwise.
type State struct {
	slices map[string]any
}

// NewState builds a snapshot from a slice map. The map is copied; the slice
// values are shared.
func NewState(slices map[string]any) State {
	cp := make(map[string]any, len(slices))
	for k, v := range slices {
		cp[k] = v
	}
	return State{slices: cp}
}

// Get returns the named slice.
func (s State) Get(name string) (any, bool) {
	v, ok := s.slices[name]
	return v, ok
}

// Has reports whether the tree carries the named slice.
func (s State) Has(name string) bool {
	_, ok := s.slices[name]
	return ok
}

// Names returns the slice names in lexical order.
func (s State) Names() []string {
	names := make([]string, 0, len(s.slices))
	for k := range s.slices {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of slices.
func (s State) Len() int { return len(s.slices) }

// Map returns a shallow copy of the slice map.
func (s State) Map() map[string]any {
	cp := make(map[string]any, len(s.slices))
	for k, v := range s.slices {
		cp[k] = v
	}
	return cp
}

// MarshalJSON encodes the tree as an object keyed by slice name.
func (s State) MarshalJSON() ([]byte, error) {
	if s.slices == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.slices)
}

// Slice returns the named slice as T.
func Slice[T any](s State, name string) (T, bool) {
	v, ok := s.slices[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// MustSlice is like Slice but panics when the slice is missing or has another type.
func MustSlice[T any](s State, name string) T {
	t, ok := Slice[T](s, name)
	if !ok {
		var zero T
		panic(fmt.Sprintf("store: slice %q is not a %T", name, zero))
	}
	return t
}
