package coerce

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

func kindIs(kinds ...reflect.Kind) func(reflect.Type) bool {
	return func(t reflect.Type) bool {
		for _, k := range kinds {
			if t.Kind() == k {
				return true
			}
		}
		return false
	}
}

// asText returns the string form of strings, bytes and numbers
func asText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case json.Number:
		return v.String(), true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

// asFloat returns the numeric value of numbers and numeric strings
func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	return numericValue(raw)
}

// numericValue returns the value of native numbers only
func numericValue(raw any) (float64, bool) {
	if n, ok := raw.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func buildString(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if _, isBool := raw.(bool); isBool {
			return nil, failf("str type expected")
		}
		s, ok := asText(raw)
		if !ok {
			return nil, failf("str type expected")
		}
		return convertTo(s, t), nil
	}, nil
}

func buildBytes(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		switch v := raw.(type) {
		case []byte:
			return convertTo(v, t), nil
		case string:
			return convertTo([]byte(v), t), nil
		}
		if s, ok := asText(raw); ok {
			return convertTo([]byte(s), t), nil
		}
		return nil, failf("byte type expected")
	}, nil
}

var (
	truthy = map[string]bool{"1": true, "on": true, "t": true, "true": true, "y": true, "yes": true}
	falsy  = map[string]bool{"0": true, "off": true, "f": true, "false": true, "n": true, "no": true}
)

func buildBool(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if b, ok := raw.(bool); ok {
			return convertTo(b, t), nil
		}
		if s, ok := asText(raw); ok {
			s = strings.ToLower(strings.TrimSpace(s))
			switch {
			case truthy[s]:
				return convertTo(true, t), nil
			case falsy[s]:
				return convertTo(false, t), nil
			}
		}
		return nil, failf("value could not be parsed to a boolean")
	}, nil
}

func buildInt(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		var n int64
		switch v := raw.(type) {
		case bool:
			if v {
				n = 1
			}
		default:
			parsed, ok := parseInt(raw)
			if !ok {
				return nil, failf("value is not a valid integer")
			}
			n = parsed
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return nil, failf("value is out of range for %s", t)
		}
		out.SetInt(n)
		return out.Interface(), nil
	}, nil
}

func parseInt(raw any) (int64, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, false
		}
		return int64(rv.Uint()), true
	}
	s, ok := asText(raw)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// integral floats such as 3.0 are accepted
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func buildUint(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		rv := reflect.ValueOf(raw)
		var n uint64
		switch rv.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = rv.Uint()
		default:
			i, ok := parseInt(raw)
			if !ok {
				if s, isText := asText(raw); isText {
					u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
					if err == nil {
						n = u
						break
					}
				}
				if f, isNum := asFloat(raw); isNum && f == math.Trunc(f) && f >= 1<<63 && f < 1<<64 {
					n = uint64(f)
					break
				}
				return nil, failf("value is not a valid integer")
			}
			if i < 0 {
				return nil, failf("ensure this value is greater than or equal to 0")
			}
			n = uint64(i)
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(n) {
			return nil, failf("value is out of range for %s", t)
		}
		out.SetUint(n)
		return out.Interface(), nil
	}, nil
}

func buildFloat(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if _, isBool := raw.(bool); isBool {
			return nil, failf("value is not a valid float")
		}
		f, ok := asFloat(raw)
		if !ok {
			return nil, failf("value is not a valid float")
		}
		out := reflect.New(t).Elem()
		if t.Kind() == reflect.Float32 && !math.IsInf(f, 0) && out.OverflowFloat(f) {
			return nil, failf("value is out of range for %s", t)
		}
		out.SetFloat(f)
		return out.Interface(), nil
	}, nil
}
