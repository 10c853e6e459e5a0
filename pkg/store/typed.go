package store

import (
	"fmt"

	"github.com/aretw0/taskup/pkg/domain"
)

// Typed adapts a reducer over a concrete slice type S.
// A slice of any other type makes the reducer fail, which Dispatch contains.
func Typed[S any](fn func(S, domain.Action) S) Reducer {
	return func(slice any, action domain.Action) any {
		s, ok := slice.(S)
		if !ok {
			var want S
			panic(fmt.Errorf("slice has type %T, want %T", slice, want))
		}
		return fn(s, action)
	}
}
