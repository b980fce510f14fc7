package tagparse

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/muir/reflectutils"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// TagName is the struct tag read by Fields
const TagName = "kwarg"

// Field is one tagged struct field and the parameter it declares
type Field struct {
	Index     []int
	Parameter signature.Parameter
}

// Fields walks the struct type t and returns a parameter for every field
// carrying a kwarg tag. Untagged struct fields are descended into. Defaults
// written in tags are converted to the field type with registry.
func Fields(t reflect.Type, registry *coerce.Registry) ([]Field, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", reflectutils.TypeName(t))
	}
	if registry == nil {
		registry = coerce.Default
	}

	var fields []Field
	var walkErr error
	reflectutils.WalkStructElements(t, func(f reflect.StructField) bool {
		raw, ok := f.Tag.Lookup(TagName)
		if !ok {
			return true
		}
		if raw == "-" || !f.IsExported() {
			return false
		}
		param, err := FieldParameter(f, raw, registry)
		if err != nil {
			walkErr = fmt.Errorf("%s.%s: %w", reflectutils.TypeName(t), f.Name, err)
			return false
		}
		fields = append(fields, Field{Index: f.Index, Parameter: param})
		return false
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return fields, nil
}

// FieldParameter derives the parameter of one struct field from its tag text
func FieldParameter(f reflect.StructField, raw string, registry *coerce.Registry) (signature.Parameter, error) {
	tag, err := ParseTag(raw)
	if err != nil {
		return signature.Parameter{}, fmt.Errorf("invalid kwarg tag %q: %w", raw, err)
	}
	param := signature.Parameter{Name: defaultName(f), Annotation: kwargs.Of(f.Type)}

	source, hasSource := kwargs.ParamType(0), false
	var opts []kwargs.Option
	var alias string
	for _, item := range tag.Items {
		key := strings.ToLower(item.Key)
		if item.Value == nil {
			switch key {
			case "required":
				opts = append(opts, kwargs.IsRequired())
				continue
			case "optional":
				param.Annotation = kwargs.Optional(param.Annotation)
				continue
			case "skip":
				opts = append(opts, kwargs.SkipValidation())
				continue
			}
			s, ok := kwargs.ParseParamType(key)
			if !ok {
				return signature.Parameter{}, fmt.Errorf("unknown kwarg source or flag %q", item.Key)
			}
			if hasSource {
				return signature.Parameter{}, fmt.Errorf("source declared twice")
			}
			source, hasSource = s, true
			continue
		}

		value := item.Value.Text()
		switch key {
		case "name":
			param.Name = value
		case "alias":
			alias = value
		case "default":
			def, err := convertDefault(f.Type, value, registry)
			if err != nil {
				return signature.Parameter{}, err
			}
			opts = append(opts, kwargs.Default(def))
		case "gt", "ge", "lt", "le":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return signature.Parameter{}, fmt.Errorf("%s must be a number: %w", key, err)
			}
			opts = append(opts, bound(key, n))
		case "min_length", "max_length", "min_items", "max_items", "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return signature.Parameter{}, fmt.Errorf("%s must be an integer: %w", key, err)
			}
			opts = append(opts, count(key, n))
		case "pattern":
			opts = append(opts, kwargs.Pattern(value))
		case "media":
			enc, ok := kwargs.ParseRequestEncoding(value)
			if !ok {
				return signature.Parameter{}, fmt.Errorf("unknown media type %q", value)
			}
			opts = append(opts, kwargs.MediaType(enc))
		case "title":
			opts = append(opts, kwargs.Title(value))
		case "description":
			opts = append(opts, kwargs.Description(value))
		default:
			return signature.Parameter{}, fmt.Errorf("unknown kwarg option %q", item.Key)
		}
	}

	if !hasSource {
		if alias != "" {
			return signature.Parameter{}, fmt.Errorf("alias %q needs a source", alias)
		}
		if len(opts) == 0 {
			return param, nil
		}
		source = kwargs.QueryParam
	}
	param.Default = marker(source, alias, opts)
	return param, nil
}

func marker(source kwargs.ParamType, alias string, opts []kwargs.Option) *kwargs.Kwarg {
	switch source {
	case kwargs.HeaderParam:
		return kwargs.Header(alias, opts...)
	case kwargs.CookieParam:
		return kwargs.Cookie(alias, opts...)
	case kwargs.PathParam:
		return kwargs.PathParameter(opts...)
	case kwargs.BodyParam:
		return kwargs.Body(opts...)
	case kwargs.DependencyParam:
		return kwargs.Dependency(opts...)
	default:
		return kwargs.Query(alias, opts...)
	}
}

func bound(key string, n float64) kwargs.Option {
	switch key {
	case "gt":
		return kwargs.Gt(n)
	case "ge":
		return kwargs.Ge(n)
	case "lt":
		return kwargs.Lt(n)
	default:
		return kwargs.Le(n)
	}
}

func count(key string, n int) kwargs.Option {
	switch key {
	case "min_length":
		return kwargs.MinLength(n)
	case "max_length":
		return kwargs.MaxLength(n)
	case "min_items":
		return kwargs.MinItems(n)
	case "max_items":
		return kwargs.MaxItems(n)
	default:
		return kwargs.MultipartPartLimit(n)
	}
}

func convertDefault(t reflect.Type, text string, registry *coerce.Registry) (any, error) {
	fn, err := registry.ForType(t)
	if err != nil {
		return nil, err
	}
	var raw any = text
	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		if text == "" {
			raw = []any{}
		} else {
			parts := strings.Split(text, "|")
			items := make([]any, len(parts))
			for i, p := range parts {
				items[i] = p
			}
			raw = items
		}
	}
	v, err := fn(raw)
	if err != nil {
		return nil, fmt.Errorf("default %q: %w", text, err)
	}
	return v, nil
}

// defaultName uses the json name when present, else the Go name with a lower-case first letter
func defaultName(f reflect.StructField) string {
	if name, _, skip := coerce.FieldName(f); !skip && name != f.Name {
		return name
	}
	if strings.ToUpper(f.Name) == f.Name {
		return strings.ToLower(f.Name)
	}
	r := []rune(f.Name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
