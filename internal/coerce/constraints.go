package coerce

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// Check validates a coerced value against declared constraints
type Check func(v any) error

// Constraints compiles the declared constraints into a Check. It fails only
// for an invalid pattern.
func Constraints(c kwargs.Constraints) (Check, error) {
	if c.IsZero() {
		return nil, nil
	}
	var pattern *regexp.Regexp
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
		}
		pattern = re
	}
	return func(v any) error {
		if v == nil {
			return nil
		}
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil
			}
			rv = rv.Elem()
		}
		if err := checkBounds(c, rv); err != nil {
			return err
		}
		if err := checkLength(c, rv); err != nil {
			return err
		}
		if pattern != nil && rv.Kind() == reflect.String && !pattern.MatchString(rv.String()) {
			return &ConstraintError{Message: fmt.Sprintf("string does not match regex %q", c.Pattern)}
		}
		return nil
	}, nil
}

// Chain runs fn and then check on its result
func Chain(fn Func, check Check) Func {
	if check == nil {
		return fn
	}
	return func(raw any) (any, error) {
		v, err := fn(raw)
		if err != nil {
			return nil, err
		}
		if err := check(v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// compare returns -1, 0 or 1 comparing a numeric value against bound
func compare(rv reflect.Value, bound float64) (int, bool) {
	if d, ok := rv.Interface().(decimal.Decimal); ok {
		return d.Cmp(decimal.NewFromFloat(bound)), true
	}
	var f float64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f = float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f = float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	default:
		return 0, false
	}
	switch {
	case f < bound:
		return -1, true
	case f > bound:
		return 1, true
	}
	return 0, true
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func checkBounds(c kwargs.Constraints, rv reflect.Value) error {
	bounds := []struct {
		limit *float64
		ok    func(int) bool
		text  string
	}{
		{c.Gt, func(n int) bool { return n > 0 }, "greater than"},
		{c.Ge, func(n int) bool { return n >= 0 }, "greater than or equal to"},
		{c.Lt, func(n int) bool { return n < 0 }, "less than"},
		{c.Le, func(n int) bool { return n <= 0 }, "less than or equal to"},
	}
	for _, b := range bounds {
		if b.limit == nil {
			continue
		}
		cmp, numeric := compare(rv, *b.limit)
		if !numeric {
			return nil
		}
		if !b.ok(cmp) {
			return &ConstraintError{Message: fmt.Sprintf("ensure this value is %s %s", b.text, formatBound(*b.limit))}
		}
	}
	return nil
}

func checkLength(c kwargs.Constraints, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.String:
		n := utf8.RuneCountInString(rv.String())
		return lengthError(n, c.MinLength, c.MaxLength, "characters")
	case reflect.Slice, reflect.Array, reflect.Map:
		n := rv.Len()
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return lengthError(n, c.MinLength, c.MaxLength, "characters")
		}
		if err := lengthError(n, c.MinItems, c.MaxItems, "items"); err != nil {
			return err
		}
		return lengthError(n, c.MinLength, c.MaxLength, "items")
	}
	return nil
}

func lengthError(n int, lower, upper *int, unit string) error {
	if lower != nil && n < *lower {
		return &ConstraintError{Message: fmt.Sprintf("ensure this value has at least %d %s", *lower, unit)}
	}
	if upper != nil && n > *upper {
		return &ConstraintError{Message: fmt.Sprintf("ensure this value has at most %d %s", *upper, unit)}
	}
	return nil
}
