// Package coerce converts raw wire values into declared Go types. Conversion
// functions are resolved once per target type from an ordered registry and
// reused for every request.
package coerce

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// Func converts a raw value into the target type it was built for
type Func func(raw any) (any, error)

// Resolver resolves the conversion function of a nested type
type Resolver func(t reflect.Type) (Func, error)

// Converter is one (predicate, builder) entry of a Registry
type Converter struct {
	Name  string
	Match func(t reflect.Type) bool
	Build func(t reflect.Type, resolve Resolver) (Func, error)
}

// Registry is an ordered table of converters. The first converter whose
// predicate matches a type builds its conversion function.
type Registry struct {
	converters []Converter
}

// ErrUnsupportedType is returned at build time for types no converter handles
var ErrUnsupportedType = errors.New("unsupported type")

// Error is a coercion failure
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func failf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// ConstraintError is raised when a coerced value violates a declared bound
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }

// IsConstraintError reports whether err is a constraint violation
func IsConstraintError(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// NewRegistry creates a registry holding the builtin converters
func NewRegistry() *Registry {
	return &Registry{converters: builtinConverters()}
}

// Default is the registry used when none is configured
var Default = NewRegistry()

// Register adds a converter ahead of all existing ones
func (r *Registry) Register(c Converter) {
	r.converters = append([]Converter{c}, r.converters...)
}

// Clone returns an independent copy of the registry
func (r *Registry) Clone() *Registry {
	return &Registry{converters: append([]Converter(nil), r.converters...)}
}

// ForType resolves the conversion function for t
func (r *Registry) ForType(t reflect.Type) (Func, error) {
	res := &resolution{registry: r, done: map[reflect.Type]Func{}, pending: map[reflect.Type]*Func{}}
	return res.resolve(t)
}

// Build resolves the conversion function for an annotation, including
// unions and optionals
func (r *Registry) Build(a kwargs.Annotation) (Func, error) {
	res := &resolution{registry: r, done: map[reflect.Type]Func{}, pending: map[reflect.Type]*Func{}}
	return res.annotation(a)
}

type resolution struct {
	registry *Registry
	done     map[reflect.Type]Func
	pending  map[reflect.Type]*Func
}

func (s *resolution) annotation(a kwargs.Annotation) (Func, error) {
	if a.IsUnion() {
		return s.union(a)
	}
	if a.IsAny() {
		return passthrough, nil
	}
	fn, err := s.resolve(a.Type)
	if err != nil {
		return nil, err
	}
	switch {
	case a.Type.Kind() == reflect.Pointer:
		return fn, nil
	case a.Nullable:
		return nullable(fn), nil
	default:
		return required(fn), nil
	}
}

func (s *resolution) resolve(t reflect.Type) (Func, error) {
	if fn, ok := s.done[t]; ok {
		return fn, nil
	}
	if slot, ok := s.pending[t]; ok {
		// recursive type: defer to the function once it is built
		return func(raw any) (any, error) { return (*slot)(raw) }, nil
	}
	slot := new(Func)
	s.pending[t] = slot
	fn, err := s.build(t)
	delete(s.pending, t)
	if err != nil {
		return nil, err
	}
	fn = exactPassthrough(t, fn)
	*slot = fn
	s.done[t] = fn
	return fn, nil
}

func (s *resolution) build(t reflect.Type) (Func, error) {
	for _, c := range s.registry.converters {
		if c.Match(t) {
			fn, err := c.Build(t, s.resolve)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Name, err)
			}
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// exactPassthrough skips conversion for values that already have the target type
func exactPassthrough(t reflect.Type, fn Func) Func {
	return func(raw any) (any, error) {
		if raw != nil && reflect.TypeOf(raw) == t {
			return raw, nil
		}
		return fn(raw)
	}
}

func passthrough(raw any) (any, error) {
	return raw, nil
}

func nullable(fn Func) Func {
	return func(raw any) (any, error) {
		if raw == nil {
			return nil, nil
		}
		return fn(raw)
	}
}

// convertTo converts v to the named type t when t differs from v's type
func convertTo(v any, t reflect.Type) any {
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v
	}
	return rv.Convert(t).Interface()
}
