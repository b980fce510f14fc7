package kwargs

import (
	"reflect"
	"strings"
)

// Annotation is the declared target type of a parameter. A union annotation has
// Members instead of a Type; Members are tried in declared order.
type Annotation struct {
	Type     reflect.Type
	Members  []Annotation
	Nullable bool
}

// TypeOf returns the annotation for T
func TypeOf[T any]() Annotation {
	return Of(reflect.TypeOf((*T)(nil)).Elem())
}

// Of returns the annotation for t. Pointer types are nullable.
func Of(t reflect.Type) Annotation {
	return Annotation{Type: t, Nullable: t != nil && t.Kind() == reflect.Pointer}
}

// Optional marks a copy of a as accepting nil
func Optional(a Annotation) Annotation {
	a.Nullable = true
	return a
}

// Union declares a union of the given members in trial order
func Union(members ...Annotation) Annotation {
	u := Annotation{Members: make([]Annotation, 0, len(members))}
	for _, m := range members {
		if m.Nullable {
			u.Nullable = true
		}
		u.Members = append(u.Members, m)
	}
	return u
}

// IsUnion reports whether the annotation has several members
func (a Annotation) IsUnion() bool {
	return len(a.Members) > 0
}

// IsOptional reports whether nil is an acceptable value
func (a Annotation) IsOptional() bool {
	return a.Nullable
}

// IsAny reports whether any value is acceptable
func (a Annotation) IsAny() bool {
	return !a.IsUnion() && (a.Type == nil || a.Type.Kind() == reflect.Interface && a.Type.NumMethod() == 0)
}

// Base strips one level of pointer indirection
func (a Annotation) Base() reflect.Type {
	t := a.Type
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsSequence reports whether the annotation is a non-string sequence
func (a Annotation) IsSequence() bool {
	if a.IsUnion() {
		return false
	}
	t := a.Base()
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// IsMapping reports whether the annotation is a map type
func (a Annotation) IsMapping() bool {
	t := a.Base()
	return !a.IsUnion() && t != nil && t.Kind() == reflect.Map
}

// String renders the annotation in a readable form
func (a Annotation) String() string {
	var s string
	if a.IsUnion() {
		names := make([]string, len(a.Members))
		for i, m := range a.Members {
			names[i] = m.String()
		}
		s = strings.Join(names, " | ")
	} else if a.Type == nil {
		s = "any"
	} else {
		s = a.Type.String()
	}
	if a.Nullable && (a.Type == nil || a.Type.Kind() != reflect.Pointer) && !a.IsAny() {
		s += " | nil"
	}
	return s
}
