package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/kwargs/internal/testconn"
	"github.com/toyz/kwargs/pkg/kwargs"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []kwargs.QueryPair
	}{
		{name: "empty", input: "", expected: nil},
		{
			name:  "repeated keys keep order",
			input: "a=1&a=2&b=3",
			expected: []kwargs.QueryPair{
				{Key: "a", Value: "1"}, {Key: "a", Value: "2"}, {Key: "b", Value: "3"},
			},
		},
		{
			name:     "blank values are kept",
			input:    "a=&b",
			expected: []kwargs.QueryPair{{Key: "a", Value: ""}, {Key: "b", Value: ""}},
		},
		{
			name:     "plus decodes to space",
			input:    "q=hello+world&r=a%20b",
			expected: []kwargs.QueryPair{{Key: "q", Value: "hello world"}, {Key: "r", Value: "a b"}},
		},
		{
			name:     "malformed escape is kept",
			input:    "q=100%",
			expected: []kwargs.QueryPair{{Key: "q", Value: "100%"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseQuery([]byte(tt.input)))
		})
	}
}

func TestQueryDefaultDictSequences(t *testing.T) {
	pairs := ParseQuery([]byte("a=1&a=2&b=3"))

	dict := QueryDefaultDict(pairs, []string{"a"})
	assert.Equal(t, []string{"1", "2"}, dict["a"])
	assert.Equal(t, "3", dict["b"])

	// the same inputs are served from the memo
	again := QueryDefaultDict(pairs, []string{"a"})
	assert.Equal(t, dict, again)

	// non-sequence keys keep their last value
	scalar := QueryDefaultDict(pairs, nil)
	assert.Equal(t, "2", scalar["a"])
}

func TestParseHeadersLowerCases(t *testing.T) {
	headers := ParseHeaders([]kwargs.HeaderPair{
		{Name: "X-API-KEY", Value: "secret"},
		{Name: "Accept", Value: "text/html"},
		{Name: "accept", Value: "application/json"},
	})

	assert.Equal(t, []string{"secret"}, headers["x-api-key"])
	assert.Equal(t, []string{"text/html", "application/json"}, headers.Values("ACCEPT"))
	assert.Equal(t, "secret", headers.Get("X-Api-Key"))
}

func definition(name string, source kwargs.ParamType, annotation kwargs.Annotation, marker *kwargs.Kwarg) kwargs.ParameterDefinition {
	return kwargs.NewParameterDefinition(name, annotation, source, marker)
}

func TestConnectionValue(t *testing.T) {
	t.Run("header alias is case insensitive", func(t *testing.T) {
		def := definition("apiKey", kwargs.HeaderParam, kwargs.TypeOf[string](), kwargs.Header("X-API-KEY"))
		extractor := ConnectionValue(kwargs.HeaderParam, []kwargs.ParameterDefinition{def}, nil)

		values := kwargs.Kwargs{}
		extractor(values, testconn.New("GET", "/").WithHeader("x-api-key", "secret"))
		assert.Equal(t, "secret", values["apiKey"])
	})

	t.Run("query sequence", func(t *testing.T) {
		defs := []kwargs.ParameterDefinition{
			definition("a", kwargs.QueryParam, kwargs.TypeOf[[]int](), nil),
			definition("b", kwargs.QueryParam, kwargs.TypeOf[int](), nil),
		}
		extractor := ConnectionValue(kwargs.QueryParam, defs, []string{"a"})

		values := kwargs.Kwargs{}
		extractor(values, testconn.New("GET", "/?a=1&a=2&b=3"))
		assert.Equal(t, []string{"1", "2"}, values["a"])
		assert.Equal(t, "3", values["b"])
	})

	t.Run("query sequences are not shared between requests", func(t *testing.T) {
		defs := []kwargs.ParameterDefinition{
			definition("tags", kwargs.QueryParam, kwargs.TypeOf[[]string](), nil),
		}
		extractor := ConnectionValue(kwargs.QueryParam, defs, []string{"tags"})

		first := kwargs.Kwargs{}
		extractor(first, testconn.New("GET", "/?tags=a&tags=b"))
		first["tags"].([]string)[0] = "changed"

		second := kwargs.Kwargs{}
		extractor(second, testconn.New("GET", "/?tags=a&tags=b"))
		assert.Equal(t, []string{"a", "b"}, second["tags"])
	})

	t.Run("defaults and optionals", func(t *testing.T) {
		defs := []kwargs.ParameterDefinition{
			definition("page", kwargs.QueryParam, kwargs.TypeOf[int](), kwargs.Query("", kwargs.Default(1))),
			definition("search", kwargs.QueryParam, kwargs.Optional(kwargs.TypeOf[string]()), nil),
			definition("required", kwargs.QueryParam, kwargs.TypeOf[string](), nil),
		}
		extractor := ConnectionValue(kwargs.QueryParam, defs, nil)

		values := kwargs.Kwargs{}
		extractor(values, testconn.New("GET", "/"))
		assert.Equal(t, 1, values["page"])
		v, present := values["search"]
		assert.True(t, present)
		assert.Nil(t, v)
		_, present = values["required"]
		assert.False(t, present, "missing required values are left absent")
	})

	t.Run("path and cookie", func(t *testing.T) {
		pathExtractor := ConnectionValue(kwargs.PathParam,
			[]kwargs.ParameterDefinition{definition("id", kwargs.PathParam, kwargs.TypeOf[int](), nil)}, nil)
		cookieExtractor := ConnectionValue(kwargs.CookieParam,
			[]kwargs.ParameterDefinition{definition("session", kwargs.CookieParam, kwargs.TypeOf[string](), kwargs.Cookie("sid"))}, nil)

		conn := testconn.New("GET", "/users/7").WithPathParam("id", "7").WithCookie("sid", "abc")
		values := kwargs.Kwargs{}
		pathExtractor(values, conn)
		cookieExtractor(values, conn)
		assert.Equal(t, "7", values["id"])
		assert.Equal(t, "abc", values["session"])
	})
}

func TestPassthrough(t *testing.T) {
	conn := testconn.New("GET", "/?a=1&a=2").WithHeader("X-Trace", "t1").WithCookie("c", "v")
	values := kwargs.Kwargs{}
	for _, name := range []string{RequestName, StateName, ScopeName, HeadersName, CookiesName, QueryName} {
		extractor, ok := Passthrough(name)
		require.True(t, ok, name)
		extractor(values, conn)
	}

	assert.Same(t, conn, values[RequestName])
	assert.Same(t, conn.State(), values[StateName])
	assert.Same(t, conn.Cache(), values[ScopeName])
	assert.Equal(t, "t1", values[HeadersName].(kwargs.Headers).Get("x-trace"))
	assert.Equal(t, map[string]string{"c": "v"}, values[CookiesName])
	assert.Equal(t, url.Values{"a": {"1", "2"}}, values[QueryName])

	assert.True(t, IsReserved("socket"))
	assert.False(t, IsReserved("user"))
	assert.Equal(t, kwargs.StateParam, ReservedSource(StateName))
	assert.Equal(t, kwargs.InjectedParam, ReservedSource(HeadersName))
}
