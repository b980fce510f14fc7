package app

import (
	"context"
	"fmt"
	"reflect"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/tagparse"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// Typed builds a handler from a function taking a struct whose fields carry
// `kwarg` tags. The struct is filled from the validated kwargs before fn runs.
//
//	type getUser struct {
//		ID     int    `kwarg:"path"`
//		APIKey string `kwarg:"header,alias=X-API-KEY"`
//	}
//
//	h, err := app.Typed("getUser", func(ctx context.Context, in getUser) (*User, error) { ... })
func Typed[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error)) (Handler, error) {
	inType := reflect.TypeOf((*In)(nil)).Elem()
	if inType.Kind() != reflect.Struct {
		return Handler{}, kwargs.NewConfigurationError(name, "typed handler input must be a struct, got %s", inType)
	}
	fields, err := tagparse.Fields(inType, coerce.Default)
	if err != nil {
		return Handler{}, kwargs.NewConfigurationError(name, "%v", err)
	}
	return Handler{
		Name:       name,
		Parameters: tagparse.Parameters(fields),
		ReturnType: reflect.TypeOf((*Out)(nil)).Elem(),
		Func: func(ctx context.Context, values kwargs.Kwargs) (any, error) {
			var in In
			if err := tagparse.Fill(&in, fields, values); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return fn(ctx, in)
		},
	}, nil
}

// MustTyped is Typed that panics on configuration errors
func MustTyped[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error)) Handler {
	h, err := Typed(name, fn)
	if err != nil {
		panic(err)
	}
	return h
}
