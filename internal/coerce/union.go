package coerce

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"

	"github.com/toyz/kwargs/pkg/kwargs"
)

var stringType = reflect.TypeOf("")

type unionMember struct {
	annotation kwargs.Annotation
	coerce     Func
}

// matches reports whether raw already has the member's native type
func (m unionMember) matches(raw any) bool {
	t := m.annotation.Type
	if t == nil || m.annotation.IsUnion() {
		return false
	}
	rt := reflect.TypeOf(raw)
	if rt == stringType {
		// wire text goes through the members in declared order
		return false
	}
	if rt == t || t.Kind() == reflect.Pointer && t.Elem() == rt {
		return true
	}
	if _, isNumber := raw.(json.Number); isNumber {
		switch m.annotation.Base().Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
	}
	return false
}

// union prefers a member whose native type matches the value exactly, then
// tries members in declared order
func (s *resolution) union(a kwargs.Annotation) (Func, error) {
	members := make([]unionMember, 0, len(a.Members))
	for _, m := range a.Members {
		fn, err := s.annotation(m)
		if err != nil {
			return nil, err
		}
		members = append(members, unionMember{annotation: m, coerce: fn})
	}
	name := a.String()
	return func(raw any) (any, error) {
		if raw == nil {
			if a.Nullable {
				return nil, nil
			}
			return nil, failf("none is not an allowed value")
		}
		for _, m := range members {
			if m.matches(raw) {
				if v, err := m.coerce(raw); err == nil {
					return v, nil
				}
				break
			}
		}
		problems := make([]string, 0, len(members))
		for _, m := range members {
			v, err := m.coerce(raw)
			if err == nil {
				return v, nil
			}
			problems = append(problems, fmt.Sprintf("%s: %s", m.annotation, err))
		}
		return nil, failf("value is not a valid %s (%s)", name, strings.Join(problems, "; "))
	}, nil
}

func required(fn Func) Func {
	return func(raw any) (any, error) {
		if raw == nil {
			return nil, failf("none is not an allowed value")
		}
		return fn(raw)
	}
}
