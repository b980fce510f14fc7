package coerce

import (
	"math"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
	"github.com/xhit/go-str2duration/v2"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	dateType     = reflect.TypeOf(civil.Date{})
	timeOfDay    = reflect.TypeOf(civil.Time{})
)

// millisecond timestamps are told apart from second timestamps by magnitude
const msWatershed = 2e10

func fromTimestamp(f float64) (time.Time, bool) {
	if math.Abs(f) > msWatershed {
		f /= 1000
	}
	if math.IsNaN(f) || f >= 1<<63 || f < -(1<<63) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

// secondsToDuration rejects values outside the int64 nanosecond range
func secondsToDuration(f float64) (time.Duration, bool) {
	ns := math.Round(f * float64(time.Second))
	if math.IsNaN(ns) || ns >= 1<<63 || ns < -(1<<63) {
		return 0, false
	}
	return time.Duration(ns), true
}

// parseDateTime accepts a time.Time, a unix timestamp or a free-form string
func parseDateTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
		return time.Time{}, false
	}
	if f, ok := asFloat(raw); ok {
		return fromTimestamp(f)
	}
	s, ok := asText(raw)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func buildDateTime(reflect.Type, Resolver) (Func, error) {
	return func(raw any) (any, error) {
		t, ok := parseDateTime(raw)
		if !ok {
			return nil, failf("invalid datetime format")
		}
		return t, nil
	}, nil
}

func buildDate(reflect.Type, Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if s, ok := raw.(string); ok {
			if d, err := civil.ParseDate(strings.TrimSpace(s)); err == nil {
				return d, nil
			}
		}
		t, ok := parseDateTime(raw)
		if !ok {
			return nil, failf("invalid date format")
		}
		return civil.DateOf(t), nil
	}, nil
}

func buildTimeOfDay(reflect.Type, Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if s, ok := raw.(string); ok {
			if tod, err := civil.ParseTime(strings.TrimSpace(s)); err == nil {
				return tod, nil
			}
		}
		// numbers are seconds since midnight
		if f, ok := numericValue(raw); ok {
			d, ok := secondsToDuration(f)
			if !ok || f < 0 || f >= 86400 {
				return nil, failf("invalid time format")
			}
			return civil.TimeOf(time.Unix(0, 0).UTC().Add(d)), nil
		}
		t, ok := parseDateTime(raw)
		if !ok {
			return nil, failf("invalid time format")
		}
		return civil.TimeOf(t), nil
	}, nil
}

func buildDuration(t reflect.Type, _ Resolver) (Func, error) {
	return func(raw any) (any, error) {
		if f, ok := asFloat(raw); ok {
			d, inRange := secondsToDuration(f)
			if !inRange {
				return nil, failf("invalid duration format")
			}
			return convertTo(d, t), nil
		}
		s, ok := asText(raw)
		if !ok {
			return nil, failf("invalid duration format")
		}
		d, err := str2duration.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return nil, failf("invalid duration format")
		}
		return convertTo(d, t), nil
	}, nil
}
