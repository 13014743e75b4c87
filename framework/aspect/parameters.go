package aspect

import (
	"fmt"
	"reflect"
	"slices"
)

// Parameters are the named arguments of one intercepted call, in declaration
// order. They belong to a single execution and are not safe for concurrent
// mutation.
type Parameters struct {
	names  []string
	values map[string]any
}

// NewParameters creates an empty parameter set.
//
//	params := aspect.NewParameters().With("name", "circle").With("radius", 2.0)
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string]any)}
}

// With sets name and returns p for chaining.
func (p *Parameters) With(name string, value any) *Parameters {
	p.Set(name, value)
	return p
}

// Set stores value under name, keeping the position of an existing name.
func (p *Parameters) Set(name string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Get returns the value stored under name.
func (p *Parameters) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Require returns the value under name, failing with ErrMissingParameter when
// it is absent or nil.
func (p *Parameters) Require(name string) (any, error) {
	v, ok := p.values[name]
	if !ok || isNil(v) {
		return nil, fmt.Errorf("parameter %q: %w", name, ErrMissingParameter)
	}
	return v, nil
}

// Names returns the parameter names in insertion order.
func (p *Parameters) Names() []string { return slices.Clone(p.names) }

// Len returns the number of parameters.
func (p *Parameters) Len() int { return len(p.names) }

// Require is the typed form of Parameters.Require.
func Require[T any](p *Parameters, name string) (T, error) {
	var zero T
	v, err := p.Require(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("parameter %q: got %T, want %s", name, v, reflect.TypeFor[T]())
	}
	return typed, nil
}

// isNil also catches typed nils such as (*T)(nil) stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
