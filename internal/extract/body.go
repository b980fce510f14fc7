package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// DefaultPartLimit is the multipart part limit used when neither the handler
// nor the application configures one
const DefaultPartLimit = 1000

var uploadFileType = reflect.TypeOf(kwargs.UploadFile{})

// Strategy decodes the body of a connection into a raw value
type Strategy func(ctx context.Context, conn kwargs.Connection) (any, error)

// ErrTooManyParts is returned when a multipart body exceeds its part limit
var ErrTooManyParts = errors.New("too many multipart parts")

// TooManyPartsError carries the limit that was exceeded
type TooManyPartsError struct {
	Limit int
}

func (e *TooManyPartsError) Error() string {
	return fmt.Sprintf("number of multipart components exceeds the allowed limit of %d", e.Limit)
}

func (e *TooManyPartsError) Is(target error) bool {
	return target == ErrTooManyParts
}

// BodyDecodeError wraps a malformed body
type BodyDecodeError struct {
	MediaType kwargs.RequestEncoding
	Err       error
}

func (e *BodyDecodeError) Error() string {
	return fmt.Sprintf("could not decode %s body: %v", e.MediaType, e.Err)
}

func (e *BodyDecodeError) Unwrap() error { return e.Err }

// ReadBody returns the raw body of conn. The transport is read at most once
// per request.
func ReadBody(ctx context.Context, conn kwargs.Connection) ([]byte, error) {
	return conn.Cache().Body(ctx, conn.ReadBody)
}

// BodyExtractor stores a deferred decode of the body under the field name.
// partLimit is the application multipart limit; the definition's own limit
// takes precedence.
func BodyExtractor(def kwargs.ParameterDefinition, partLimit int) Extractor {
	strategy := BodyStrategy(def, partLimit)
	field := def.FieldName
	return func(values kwargs.Kwargs, conn kwargs.Connection) {
		values[field] = kwargs.Deferred(func(ctx context.Context) (any, error) {
			return strategy(ctx, conn)
		})
	}
}

// BodyStrategy selects the decoding strategy of a body definition
func BodyStrategy(def kwargs.ParameterDefinition, partLimit int) Strategy {
	switch def.MediaType {
	case kwargs.MessagePack:
		return decodeWith(def.MediaType, decodeMsgpack)
	case kwargs.YAML:
		return decodeWith(def.MediaType, decodeYAML)
	case kwargs.Protobuf:
		// wire bytes are handed to the coercer of the target message
		return decodeWith(def.MediaType, func(b []byte) (any, error) { return b, nil })
	case kwargs.URLEncoded:
		return urlEncodedStrategy(def)
	case kwargs.MultiPart:
		limit := partLimit
		if def.MultipartPartLimit > 0 {
			limit = def.MultipartPartLimit
		}
		if limit <= 0 {
			limit = DefaultPartLimit
		}
		return multipartStrategy(def, limit)
	default:
		return decodeWith(def.MediaType, decodeJSON)
	}
}

// decodeWith reads the body and decodes it; an empty body decodes to nil
func decodeWith(enc kwargs.RequestEncoding, decode func([]byte) (any, error)) Strategy {
	return func(ctx context.Context, conn kwargs.Connection) (any, error) {
		body, err := ReadBody(ctx, conn)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		v, err := decode(body)
		if err != nil {
			return nil, &BodyDecodeError{MediaType: enc, Err: err}
		}
		return v, nil
	}
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeMsgpack(body []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeYAML(body []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func urlEncodedStrategy(def kwargs.ParameterDefinition) Strategy {
	optional := !def.IsRequired
	return func(ctx context.Context, conn kwargs.Connection) (any, error) {
		form, err := conn.Cache().Form(ctx, func(ctx context.Context) (*kwargs.Form, error) {
			body, err := ReadBody(ctx, conn)
			if err != nil {
				return nil, err
			}
			return ParseURLEncoded(body), nil
		})
		if err != nil {
			return nil, err
		}
		if form.Len() == 0 && optional {
			return nil, nil
		}
		return form.Mapping(), nil
	}
}

// ParseURLEncoded parses an url-encoded body into a form
func ParseURLEncoded(body []byte) *kwargs.Form {
	pairs := ParseQuery(body)
	form := &kwargs.Form{Parts: make([]kwargs.FormPart, len(pairs))}
	for i, p := range pairs {
		form.Parts[i] = kwargs.FormPart{Name: p.Key, Value: p.Value}
	}
	return form
}

func multipartStrategy(def kwargs.ParameterDefinition, limit int) Strategy {
	optional := !def.IsRequired
	sequence := def.Annotation.IsSequence()
	wantsFile := def.Annotation.Base() == uploadFileType
	return func(ctx context.Context, conn kwargs.Connection) (any, error) {
		form, err := conn.Cache().Form(ctx, func(ctx context.Context) (*kwargs.Form, error) {
			body, err := ReadBody(ctx, conn)
			if err != nil {
				return nil, err
			}
			mediaType, params := conn.ContentType()
			if !isMultipart(mediaType) {
				return nil, &BodyDecodeError{MediaType: kwargs.MultiPart, Err: fmt.Errorf("unexpected content type %q", mediaType)}
			}
			return ParseMultipart(body, params["boundary"], limit)
		})
		if err != nil {
			return nil, err
		}
		return ShapeMultipart(form, sequence, wantsFile, optional), nil
	}
}

// ShapeMultipart selects what a multipart field receives: every part for a
// sequence, the first file for a file field, the name to part mapping
// otherwise. An empty form yields nil for optional fields.
func ShapeMultipart(form *kwargs.Form, sequence, wantsFile, optional bool) any {
	switch {
	case sequence:
		return form.Values()
	case wantsFile:
		if file, ok := form.FirstFile(); ok {
			return file
		}
	}
	if form.Len() == 0 && optional {
		return nil
	}
	if wantsFile {
		return nil
	}
	return form.Mapping()
}

func isMultipart(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "multipart/")
}
