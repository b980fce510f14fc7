package tagparse

import (
	"fmt"
	"reflect"

	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// Parameters returns the declarations of fields in order
func Parameters(fields []Field) []signature.Parameter {
	out := make([]signature.Parameter, len(fields))
	for i, f := range fields {
		out[i] = f.Parameter
	}
	return out
}

// Fill copies validated values into the struct dst points to. Nil values
// leave the field at its zero value.
func Fill(dst any, fields []Field, values kwargs.Kwargs) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("fill target must be a non-nil pointer, got %T", dst)
	}
	rv = rv.Elem()
	for _, f := range fields {
		v, ok := values[f.Parameter.Name]
		if !ok || v == nil {
			continue
		}
		target, err := fieldByIndex(rv, f.Index)
		if err != nil {
			return err
		}
		val := reflect.ValueOf(v)
		switch {
		case val.Type().AssignableTo(target.Type()):
			target.Set(val)
		case val.Type().ConvertibleTo(target.Type()):
			target.Set(val.Convert(target.Type()))
		case val.Kind() == reflect.Pointer && !val.IsNil() && val.Elem().Type().AssignableTo(target.Type()):
			target.Set(val.Elem())
		default:
			return fmt.Errorf("cannot assign %T to field %s of type %s", v, f.Parameter.Name, target.Type())
		}
	}
	return nil
}

// fieldByIndex allocates nil embedded pointers on the way down
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot set embedded pointer %s", v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}
