package coerce

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

func buildPointer(t reflect.Type, resolve Resolver) (Func, error) {
	elem, err := resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return func(raw any) (any, error) {
		if raw == nil {
			return reflect.Zero(t).Interface(), nil
		}
		if reflect.TypeOf(raw) == t {
			return raw, nil
		}
		v, err := elem(raw)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return reflect.Zero(t).Interface(), nil
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(reflect.ValueOf(v))
		return ptr.Interface(), nil
	}, nil
}

// items returns the elements of any slice or array value. Scalars are
// treated as a single-element sequence.
func items(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string, []byte:
		return []any{v}
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{raw}
}

func coerceItems(raw any, elem Func) ([]reflect.Value, error) {
	list := items(raw)
	values := make([]reflect.Value, len(list))
	var problems []string
	for i, item := range list {
		v, err := elem(item)
		if err != nil {
			problems = append(problems, fmt.Sprintf("[%d]: %s", i, err))
			continue
		}
		values[i] = reflect.ValueOf(v)
	}
	if len(problems) > 0 {
		return nil, failf("%s", strings.Join(problems, "; "))
	}
	return values, nil
}

func assign(dst reflect.Value, v reflect.Value) {
	if v.IsValid() {
		dst.Set(v)
	}
}

func buildSlice(t reflect.Type, resolve Resolver) (Func, error) {
	elem, err := resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return func(raw any) (any, error) {
		if raw == nil {
			return nil, failf("value is not a valid list")
		}
		values, err := coerceItems(raw, elem)
		if err != nil {
			return nil, err
		}
		out := reflect.MakeSlice(t, len(values), len(values))
		for i, v := range values {
			assign(out.Index(i), v)
		}
		return out.Interface(), nil
	}, nil
}

func buildArray(t reflect.Type, resolve Resolver) (Func, error) {
	elem, err := resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return func(raw any) (any, error) {
		values, err := coerceItems(raw, elem)
		if err != nil {
			return nil, err
		}
		if len(values) != t.Len() {
			return nil, failf("ensure this value has exactly %d items", t.Len())
		}
		out := reflect.New(t).Elem()
		for i, v := range values {
			assign(out.Index(i), v)
		}
		return out.Interface(), nil
	}, nil
}

// entries returns the key/value pairs of any map value with keys in a stable order
func entries(raw any) ([][2]any, bool) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make([][2]any, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out = append(out, [2]any{iter.Key().Interface(), iter.Value().Interface()})
	}
	sort.Slice(out, func(i, j int) bool { return fmt.Sprint(out[i][0]) < fmt.Sprint(out[j][0]) })
	return out, true
}

func buildMap(t reflect.Type, resolve Resolver) (Func, error) {
	key, err := resolve(t.Key())
	if err != nil {
		return nil, err
	}
	value, err := resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return func(raw any) (any, error) {
		pairs, ok := entries(raw)
		if !ok {
			return nil, failf("value is not a valid dict")
		}
		out := reflect.MakeMapWithSize(t, len(pairs))
		var problems []string
		for _, kv := range pairs {
			k, err := key(kv[0])
			if err != nil {
				problems = append(problems, fmt.Sprintf("%v: %s", kv[0], err))
				continue
			}
			v, err := value(kv[1])
			if err != nil {
				problems = append(problems, fmt.Sprintf("%v: %s", kv[0], err))
				continue
			}
			vv := reflect.ValueOf(v)
			if !vv.IsValid() {
				vv = reflect.Zero(t.Elem())
			}
			out.SetMapIndex(reflect.ValueOf(k), vv)
		}
		if len(problems) > 0 {
			return nil, failf("%s", strings.Join(problems, "; "))
		}
		return out.Interface(), nil
	}, nil
}

type structField struct {
	name     string
	index    []int
	required bool
	coerce   Func
}

// FieldName returns the wire name of a struct field and whether it is
// skipped, following json tag conventions
func FieldName(f reflect.StructField) (name string, omitempty bool, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" || !f.IsExported() {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty"), false
}

// buildStruct fills exported fields from a mapping keyed by json names
func buildStruct(t reflect.Type, resolve Resolver) (Func, error) {
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitempty, skip := FieldName(f)
		if skip {
			continue
		}
		fn, err := resolve(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		optional := omitempty
		switch f.Type.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			optional = true
		}
		fields = append(fields, structField{name: name, index: f.Index, required: !optional, coerce: fn})
	}
	return func(raw any) (any, error) {
		if raw == nil {
			return nil, failf("value is not a valid dict")
		}
		if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Pointer && rv.Type().Elem() == t {
			if rv.IsNil() {
				return nil, failf("value is not a valid dict")
			}
			return rv.Elem().Interface(), nil
		}
		pairs, ok := entries(raw)
		if !ok {
			return nil, failf("value is not a valid dict")
		}
		values := make(map[string]any, len(pairs))
		for _, kv := range pairs {
			values[fmt.Sprint(kv[0])] = kv[1]
		}
		out := reflect.New(t).Elem()
		var problems []string
		for _, f := range fields {
			v, present := values[f.name]
			switch {
			case !present && f.required:
				problems = append(problems, f.name+": field required")
				continue
			case present && v == nil && f.required:
				problems = append(problems, f.name+": none is not an allowed value")
				continue
			case v == nil:
				continue
			}
			coerced, err := f.coerce(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s", f.name, err))
				continue
			}
			assign(out.FieldByIndex(f.index), reflect.ValueOf(coerced))
		}
		if len(problems) > 0 {
			return nil, failf("%s", strings.Join(problems, "; "))
		}
		return out.Interface(), nil
	}, nil
}

func buildInterface(t reflect.Type, _ Resolver) (Func, error) {
	if t.NumMethod() == 0 {
		return passthrough, nil
	}
	return func(raw any) (any, error) {
		if raw != nil && reflect.TypeOf(raw).Implements(t) {
			return raw, nil
		}
		return nil, failf("value does not implement %s", t)
	}, nil
}
