package openapi

import (
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/pkg/kwargs"
)

var (
	responseType  = reflect.TypeOf(&kwargs.Response{})
	httpErrorType = reflect.TypeOf(kwargs.HttpError{})

	formats = map[reflect.Type][2]string{
		reflect.TypeOf(time.Time{}):         {"string", "date-time"},
		reflect.TypeOf(civil.Date{}):        {"string", "date"},
		reflect.TypeOf(civil.Time{}):        {"string", "time"},
		reflect.TypeOf(time.Duration(0)):    {"string", "duration"},
		reflect.TypeOf(uuid.UUID{}):         {"string", "uuid"},
		reflect.TypeOf(decimal.Decimal{}):   {"string", "decimal"},
		reflect.TypeOf(kwargs.FilePath("")): {"string", "path"},
		reflect.TypeOf(kwargs.UploadFile{}): {"string", "binary"},
	}
)

// DefinitionSchema describes a parameter including its declared constraints
func DefinitionSchema(def kwargs.ParameterDefinition) *openapi3.Schema {
	s := AnnotationSchema(def.Annotation)
	c := def.Constraints
	if c.Ge != nil {
		s.WithMinimum(*c.Ge)
	}
	if c.Gt != nil {
		s.WithMinimum(*c.Gt).WithExclusiveMinimum(true)
	}
	if c.Le != nil {
		s.WithMaximum(*c.Le)
	}
	if c.Lt != nil {
		s.WithMaximum(*c.Lt).WithExclusiveMaximum(true)
	}
	if c.MinLength != nil {
		s.WithMinLength(int64(*c.MinLength))
	}
	if c.MaxLength != nil {
		s.WithMaxLength(int64(*c.MaxLength))
	}
	if c.MinItems != nil {
		s.WithMinItems(int64(*c.MinItems))
	}
	if c.MaxItems != nil {
		s.WithMaxItems(int64(*c.MaxItems))
	}
	if c.Pattern != "" {
		s.WithPattern(c.Pattern)
	}
	if def.HasDefault() && def.DefaultValue != nil {
		s.WithDefault(def.DefaultValue)
	}
	if def.Title != "" {
		s.WithTitle(def.Title)
	}
	if def.Description != "" {
		s.WithDescription(def.Description)
	}
	return s
}

// AnnotationSchema describes an annotation; unions become oneOf
func AnnotationSchema(a kwargs.Annotation) *openapi3.Schema {
	var s *openapi3.Schema
	if a.IsUnion() {
		s = &openapi3.Schema{}
		for _, m := range a.Members {
			s.OneOf = append(s.OneOf, *schemaOrRef(AnnotationSchema(m)))
		}
	} else {
		s = TypeSchema(a.Type)
	}
	if a.Nullable && !a.IsAny() {
		s.WithNullable(true)
	}
	return s
}

// TypeSchema describes a Go type
func TypeSchema(t reflect.Type) *openapi3.Schema {
	return typeSchema(t, map[reflect.Type]bool{})
}

func typeSchema(t reflect.Type, visiting map[reflect.Type]bool) *openapi3.Schema {
	s := &openapi3.Schema{}
	if t == nil {
		return s
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		s.WithNullable(true)
	}
	if f, ok := formats[t]; ok {
		return s.WithType(openapi3.SchemaType(f[0])).WithFormat(f[1])
	}
	if coerce.IsProtoMessage(reflect.PointerTo(t)) {
		return s.WithType(openapi3.SchemaTypeObject)
	}

	switch t.Kind() {
	case reflect.Bool:
		s.WithType(openapi3.SchemaTypeBoolean)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		s.WithType(openapi3.SchemaTypeInteger)
		if t.Kind() == reflect.Int64 || t.Kind() == reflect.Uint64 {
			s.WithFormat("int64")
		}
	case reflect.Float32, reflect.Float64:
		s.WithType(openapi3.SchemaTypeNumber)
	case reflect.String:
		s.WithType(openapi3.SchemaTypeString)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return s.WithType(openapi3.SchemaTypeString).WithFormat("byte")
		}
		s.WithType(openapi3.SchemaTypeArray)
		s.WithItems(*schemaOrRef(typeSchema(t.Elem(), visiting)))
	case reflect.Map:
		s.WithType(openapi3.SchemaTypeObject)
		s.AdditionalProperties = &openapi3.SchemaAdditionalProperties{SchemaOrRef: schemaOrRef(typeSchema(t.Elem(), visiting))}
	case reflect.Struct:
		s.WithType(openapi3.SchemaTypeObject)
		if visiting[t] {
			return s
		}
		visiting[t] = true
		defer delete(visiting, t)
		s.Properties = map[string]openapi3.SchemaOrRef{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, omitempty, skip := coerce.FieldName(f)
			if skip {
				continue
			}
			s.Properties[name] = *schemaOrRef(typeSchema(f.Type, visiting))
			switch f.Type.Kind() {
			case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			default:
				if !omitempty {
					s.Required = append(s.Required, name)
				}
			}
		}
	}
	return s
}
