package container

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-inject/framework/types"
)

// ── Lazy ──────────────────────────────────────────────────────────────────────

// Lazy is a deferred resolution handle returned by GetProvider. Each Get
// resolves again, so conditions are re-evaluated and singletons come from the
// registry cache.
type Lazy struct {
	registry *Registry
	id       types.TypeIdentifier
	opts     []ResolveOption
}

// Type returns the requested type.
func (l *Lazy) Type() types.TypeIdentifier { return l.id }

// Get resolves the handle.
func (l *Lazy) Get() (any, error) {
	return l.registry.Get(l.id, l.opts...)
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Get resolves id and asserts the result to T.
//
//	shape, err := container.Get[Shape](r, ShapeType)
func Get[T any](r *Registry, id types.TypeIdentifier, opts ...ResolveOption) (T, error) {
	var zero T
	inst, err := r.Get(id, opts...)
	if err != nil {
		return zero, err
	}
	return cast[T](id, inst)
}

// TryGet is the typed form of Registry.TryGet.
func TryGet[T any](r *Registry, id types.TypeIdentifier, opts ...ResolveOption) (T, bool, error) {
	var zero T
	inst, ok, err := r.TryGet(id, opts...)
	if err != nil || !ok {
		return zero, ok, err
	}
	typed, err := cast[T](id, inst)
	if err != nil {
		return zero, false, err
	}
	return typed, true, nil
}

// GetAll is the typed form of Registry.GetAll.
func GetAll[T any](r *Registry, id types.TypeIdentifier, opts ...ResolveOption) ([]T, error) {
	all, err := r.GetAll(id, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, inst := range all {
		typed, err := cast[T](id, inst)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

// MustGet is Get that panics on error. Meant for bootstrap code.
func MustGet[T any](r *Registry, id types.TypeIdentifier, opts ...ResolveOption) T {
	v, err := Get[T](r, id, opts...)
	if err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	return v
}

func cast[T any](id types.TypeIdentifier, inst any) (T, error) {
	typed, ok := inst.(T)
	if !ok {
		var zero T
		return zero, &ResolutionError{
			Kind: ErrTypeMismatch,
			Type: id,
			Err:  fmt.Errorf("resolved %T, want %s", inst, reflect.TypeFor[T]()),
		}
	}
	return typed, nil
}
