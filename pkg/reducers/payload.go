package reducers

import (
	"fmt"

	"github.com/aretw0/taskup/pkg/domain"
)

// decode turns a payload (T, *T or a loose document) into a T.
func decode[T any](payload any) (T, error) {
	switch v := payload.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			var zero T
			return zero, fmt.Errorf("nil %T payload", v)
		}
		return *v, nil
	}
	var out T
	if err := domain.Decode(payload, &out); err != nil {
		return out, err
	}
	return out, nil
}

// decodeList turns a list payload into []T.
func decodeList[T any](payload any) ([]T, error) {
	switch v := payload.(type) {
	case nil:
		return []T{}, nil
	case []T:
		return append([]T(nil), v...), nil
	}
	var out []T
	if err := domain.Decode(payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// patch applies payload over base: a full T replaces it, a document updates
// only the keys it carries.
func patch[T any](base T, payload any) (T, error) {
	switch v := payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
		return base, nil
	}
	if err := domain.Decode(payload, &base); err != nil {
		return base, err
	}
	return base, nil
}

// idOf extracts the target ID of an update or delete payload.
func idOf(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case domain.Entity:
		return v.EntityID()
	case map[string]any:
		if id, ok := v["id"]; ok && id != nil {
			return fmt.Sprint(id)
		}
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// updateByID merges payload into the entity with the same ID. Current is
// refreshed when it points at the same entity.
func updateByID[T domain.Entity](data []T, current *T, payload any) ([]T, *T) {
	id := idOf(payload)
	next := make([]T, len(data))
	for i, item := range data {
		if item.EntityID() == id {
			next[i] = must(patch(item, payload))
		} else {
			next[i] = item
		}
	}
	if current != nil && (*current).EntityID() == id {
		updated := must(patch(*current, payload))
		current = &updated
	}
	return next, current
}

// deleteByID removes the entity with the given ID and clears current if it was selected.
func deleteByID[T domain.Entity](data []T, current *T, payload any) ([]T, *T) {
	id := idOf(payload)
	next := make([]T, 0, len(data))
	for _, item := range data {
		if item.EntityID() != id {
			next = append(next, item)
		}
	}
	if current != nil && (*current).EntityID() == id {
		current = nil
	}
	return next, current
}

// selectEntity decodes a selection payload; nil clears the selection.
func selectEntity[T any](payload any) *T {
	if payload == nil {
		return nil
	}
	v := must(decode[T](payload))
	return &v
}

func appendEntity[T any](data []T, payload any) []T {
	next := make([]T, 0, len(data)+1)
	next = append(next, data...)
	return append(next, must(decode[T](payload)))
}

func errorText(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	}
	return fmt.Sprint(payload)
}
