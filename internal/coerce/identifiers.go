package coerce

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/toyz/kwargs/pkg/kwargs"
)

var (
	uuidType            = reflect.TypeOf(uuid.UUID{})
	decimalType         = reflect.TypeOf(decimal.Decimal{})
	filePathType        = reflect.TypeOf(kwargs.FilePath(""))
	uploadFileType      = reflect.TypeOf(kwargs.UploadFile{})
	protoMessageType    = reflect.TypeOf((*proto.Message)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func buildUUID(reflect.Type, Resolver) (Func, error) {
	return func(raw any) (any, error) {
		switch v := raw.(type) {
		case [16]byte:
			return uuid.UUID(v), nil
		case []byte:
			if len(v) == 16 {
				if id, err := uuid.FromBytes(v); err == nil {
					return id, nil
				}
			}
		}
		s, ok := asText(raw)
		if !ok {
			return nil, failf("value is not a valid uuid")
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, failf("value is not a valid uuid")
		}
		return id, nil
	}, nil
}

// buildDecimal parses through the string form so floats keep their shortest
// decimal representation
func buildDecimal(reflect.Type, Resolver) (Func, error) {
	return func(raw any) (any, error) {
		var s string
		switch v := raw.(type) {
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case float32:
			s = strconv.FormatFloat(float64(v), 'f', -1, 32)
		case bool:
			return nil, failf("value is not a valid decimal")
		default:
			text, ok := asText(raw)
			if !ok {
				return nil, failf("value is not a valid decimal")
			}
			s = text
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, failf("value is not a valid decimal")
		}
		return d, nil
	}, nil
}

func buildFilePath(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		s, ok := asText(raw)
		if !ok {
			return nil, failf("value is not a valid path")
		}
		return convertTo(kwargs.FilePath(s), t), nil
	}, nil
}

func buildUploadFile(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		file, ok := raw.(*kwargs.UploadFile)
		if !ok || file == nil {
			if f, isValue := raw.(kwargs.UploadFile); isValue {
				file = &f
			} else {
				return nil, failf("expected UploadFile, received: %T", raw)
			}
		}
		if t.Kind() == reflect.Pointer {
			return file, nil
		}
		return *file, nil
	}, nil
}

func isUploadFile(t reflect.Type) bool {
	return t == uploadFileType || t == reflect.PointerTo(uploadFileType)
}

// IsProtoMessage reports whether t is a pointer to a generated protobuf message
func IsProtoMessage(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Implements(protoMessageType)
}

// buildProto accepts wire bytes, protojson text or a decoded mapping
func buildProto(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		msg := reflect.New(t.Elem()).Interface().(proto.Message)
		var err error
		switch v := raw.(type) {
		case []byte:
			err = proto.Unmarshal(v, msg)
		case string:
			err = protojson.Unmarshal([]byte(v), msg)
		case map[string]any:
			var b []byte
			if b, err = json.Marshal(v); err == nil {
				err = protojson.Unmarshal(b, msg)
			}
		default:
			return nil, failf("value is not a valid %s", t.Elem().Name())
		}
		if err != nil {
			return nil, failf("value is not a valid %s: %v", t.Elem().Name(), err)
		}
		return msg, nil
	}, nil
}

func isTextUnmarshaler(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func buildTextUnmarshaler(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		s, ok := asText(raw)
		if !ok {
			return nil, failf("value is not a valid %s", t.Name())
		}
		target := reflect.New(t)
		if err := target.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return nil, failf("value is not a valid %s: %v", t.Name(), err)
		}
		return target.Elem().Interface(), nil
	}, nil
}
