package store

import (
	"reflect"
	"sort"
)

// Diff returns the names of slices whose value differs between prev and next,
// sorted. Slices are compared by identity: a reducer that returned its input
// counts as unchanged even if an equal copy would also have been fine.
// Slices present in only one of the two snapshots are reported as changed.
func Diff(prev, next State) []string {
	var changed []string
	for name, nv := range next.slices {
		pv, ok := prev.slices[name]
		if !ok || !Same(pv, nv) {
			changed = append(changed, name)
		}
	}
	for name := range prev.slices {
		if _, ok := next.slices[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// Same reports whether a and b are the same slice value. Reference kinds are
// compared by address, comparable values with ==, everything else deeply.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
