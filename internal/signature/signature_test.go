package signature

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/kwargs/internal/testconn"
	"github.com/toyz/kwargs/pkg/kwargs"
)

func mustBuild(t *testing.T, params []Parameter, opts ...Option) *Model {
	t.Helper()
	m, err := Build("handler", params, opts...)
	require.NoError(t, err)
	return m
}

func validationError(t *testing.T, err error) *kwargs.ValidationError {
	t.Helper()
	var verr *kwargs.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func TestAggregatesMissingFieldsAcrossSources(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "id", Annotation: kwargs.TypeOf[int]()},
		{Name: "apiKey", Annotation: kwargs.TypeOf[string](), Default: kwargs.Header("X-API-KEY")},
		{Name: "page", Annotation: kwargs.TypeOf[int]()},
		{Name: "session", Annotation: kwargs.TypeOf[string](), Default: kwargs.Cookie("sid")},
	}, WithRoute("/users/{id}"))

	_, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/users"))
	verr := validationError(t, err)

	assert.False(t, verr.Server)
	assert.Equal(t, []string{"id", "apiKey", "page", "session"}, verr.Keys())
	for _, f := range verr.Failures {
		assert.Equal(t, kwargs.MissingRequiredParameter, f.Kind)
	}
	assert.Equal(t, "Missing required parameter X-API-KEY for url /users", verr.Failures[1].Message)
}

func TestMissingFieldsSkipCoercion(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "page", Annotation: kwargs.TypeOf[int]()},
		{Name: "limit", Annotation: kwargs.TypeOf[int]()},
	})

	_, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/?page=abc"))
	verr := validationError(t, err)
	require.Len(t, verr.Failures, 1)
	assert.Equal(t, "limit", verr.Failures[0].Key)
	assert.Equal(t, kwargs.MissingRequiredParameter, verr.Failures[0].Kind)
}

func TestHeaderAliasIsCaseInsensitive(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "apiKey", Annotation: kwargs.TypeOf[string](), Default: kwargs.Header("X-API-KEY")},
	})

	values, err := m.ParseConnection(context.Background(),
		testconn.New(http.MethodGet, "/").WithHeader("x-api-key", "secret"))
	require.NoError(t, err)
	assert.Equal(t, "secret", values["apiKey"])
}

func TestOptionalAndDefaults(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "search", Annotation: kwargs.Optional(kwargs.TypeOf[string]())},
		{Name: "cursor", Annotation: kwargs.TypeOf[*int]()},
		{Name: "page", Annotation: kwargs.TypeOf[int](), Default: 1},
		{Name: "size", Annotation: kwargs.TypeOf[int](), Default: kwargs.Query("per_page", kwargs.Default(20))},
		{Name: "tags", Annotation: kwargs.TypeOf[[]string](), Default: kwargs.Query("tag", kwargs.Default([]string{}))},
	})

	values, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/?per_page=5&tag=a&tag=b"))
	require.NoError(t, err)
	assert.Nil(t, values["search"])
	assert.Nil(t, values["cursor"])
	assert.Equal(t, 1, values["page"])
	assert.Equal(t, 5, values["size"])
	assert.Equal(t, []string{"a", "b"}, values["tags"])
	assert.Equal(t, []string{"tag"}, m.SequenceQueryNames())
	assert.Empty(t, m.RequiredFields())
}

func TestUnionOrdering(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "value", Annotation: kwargs.Union(kwargs.TypeOf[int](), kwargs.TypeOf[string]())},
	})
	conn := testconn.New(http.MethodGet, "/")

	tests := []struct {
		name     string
		raw      any
		expected any
	}{
		{name: "native int accepted directly", raw: 123, expected: 123},
		{name: "string tries int first", raw: "123", expected: 123},
		{name: "string falls through to string", raw: "abc", expected: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := m.Parse(context.Background(), kwargs.Kwargs{"value": tt.raw}, conn)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values["value"])
		})
	}
}

func TestConstraintAfterCoercion(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "other", Annotation: kwargs.TypeOf[int]()},
		{Name: "score", Annotation: kwargs.TypeOf[int](), Default: kwargs.Query("", kwargs.Ge(100), kwargs.Le(120))},
	})

	_, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/?score=123&other=x"))
	verr := validationError(t, err)
	require.Len(t, verr.Failures, 2)

	assert.Equal(t, "other", verr.Failures[0].Key)
	assert.Equal(t, kwargs.CoercionFailure, verr.Failures[0].Kind)
	assert.Equal(t, "score", verr.Failures[1].Key)
	assert.Equal(t, kwargs.ConstraintViolation, verr.Failures[1].Kind)
	assert.Equal(t, "ensure this value is less than or equal to 120", verr.Failures[1].Message)
}

func multipartRequest(t *testing.T, target string, fields ...string) *testconn.Conn {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i := 0; i+1 < len(fields); i += 2 {
		require.NoError(t, w.WriteField(fields[i], fields[i+1]))
	}
	require.NoError(t, w.Close())
	return testconn.New(http.MethodPost, target).WithBody(w.FormDataContentType(), buf.Bytes())
}

func TestMultipartPartLimitFailsWholeRequest(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "page", Annotation: kwargs.TypeOf[int]()},
		{Name: "data", Annotation: kwargs.TypeOf[map[string]string](), Default: kwargs.Body(kwargs.MediaType(kwargs.MultiPart))},
	}, WithPartLimit(2))

	conn := multipartRequest(t, "/upload?page=oops", "a", "1", "b", "2", "c", "3")
	_, err := m.ParseConnection(context.Background(), conn)
	verr := validationError(t, err)

	require.Len(t, verr.Failures, 1)
	assert.Equal(t, kwargs.TooManyMultipartParts, verr.Failures[0].Kind)
	assert.Equal(t, "data", verr.Failures[0].Key)
	assert.Equal(t, "number of multipart components exceeds the allowed limit of 2", verr.Failures[0].Message)
}

func TestMultipartWithinLimit(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "data", Annotation: kwargs.TypeOf[map[string]string](), Default: kwargs.Body(kwargs.MediaType(kwargs.MultiPart))},
	})

	values, err := m.ParseConnection(context.Background(), multipartRequest(t, "/upload", "a", "1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, values["data"])
}

func TestIdempotentBuild(t *testing.T) {
	params := []Parameter{
		{Name: "id", Annotation: kwargs.TypeOf[uuid.UUID]()},
		{Name: "limit", Annotation: kwargs.TypeOf[int](), Default: kwargs.Query("", kwargs.Default(10), kwargs.Le(50))},
		{Name: "trace", Annotation: kwargs.Optional(kwargs.TypeOf[string]()), Default: kwargs.Header("X-Trace")},
	}
	first := mustBuild(t, params, WithRoute("/items/{id}"))
	second := mustBuild(t, params, WithRoute("/items/{id}"))

	id := uuid.New()
	requests := []*testconn.Conn{
		testconn.New(http.MethodGet, "/items?limit=5").WithPathParam("id", id.String()).WithHeader("X-Trace", "t"),
		testconn.New(http.MethodGet, "/items?limit=500").WithPathParam("id", "nope"),
		testconn.New(http.MethodGet, "/items"),
	}
	for _, conn := range requests {
		a, errA := first.ParseConnection(context.Background(), conn)
		b, errB := second.ParseConnection(context.Background(), conn)
		assert.Equal(t, a, b)
		assert.Equal(t, errA, errB)
	}
}

func TestBodyIsReadOnce(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	m := mustBuild(t, []Parameter{
		{Name: "data", Annotation: kwargs.TypeOf[payload]()},
		{Name: "raw", Annotation: kwargs.TypeOf[map[string]any](), Default: kwargs.Body()},
		{Name: "body", Annotation: kwargs.TypeOf[[]byte]()},
	})
	assert.True(t, m.HasBody())

	conn := testconn.New(http.MethodPost, "/").WithBody("application/json", []byte(`{"name": "bolt"}`))
	values, err := m.ParseConnection(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, payload{Name: "bolt"}, values["data"])
	assert.Equal(t, "bolt", values["raw"].(map[string]any)["name"])
	assert.Equal(t, []byte(`{"name": "bolt"}`), values["body"])
	assert.Equal(t, 1, conn.Reads())
}

func TestRequiredBodyMissing(t *testing.T) {
	m := mustBuild(t, []Parameter{{Name: "data", Annotation: kwargs.TypeOf[map[string]any]()}})

	_, err := m.ParseConnection(context.Background(), testconn.New(http.MethodPost, "/items").WithBody("application/json", nil))
	verr := validationError(t, err)
	require.Len(t, verr.Failures, 1)
	assert.Equal(t, kwargs.MissingRequiredParameter, verr.Failures[0].Kind)
}

func TestMalformedBodyIsCoercionFailure(t *testing.T) {
	m := mustBuild(t, []Parameter{{Name: "data", Annotation: kwargs.TypeOf[map[string]any]()}})

	_, err := m.ParseConnection(context.Background(),
		testconn.New(http.MethodPost, "/").WithBody("application/json", []byte(`{"broken"`)))
	verr := validationError(t, err)
	require.Len(t, verr.Failures, 1)
	assert.Equal(t, kwargs.CoercionFailure, verr.Failures[0].Kind)
}

func TestReservedNamesAreInjected(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "request", Annotation: kwargs.TypeOf[kwargs.Connection]()},
		{Name: "state", Annotation: kwargs.TypeOf[*kwargs.State]()},
		{Name: "headers", Annotation: kwargs.TypeOf[kwargs.Headers]()},
	})

	fields := m.Fields()
	assert.Equal(t, kwargs.InjectedParam, fields[0].ParamType)
	assert.Equal(t, kwargs.StateParam, fields[1].ParamType)

	conn := testconn.New(http.MethodGet, "/").WithHeader("X-Trace", "t")
	values, err := m.ParseConnection(context.Background(), conn)
	require.NoError(t, err)
	assert.Same(t, conn, values["request"])
	assert.Same(t, conn.State(), values["state"])
	assert.Equal(t, "t", values["headers"].(kwargs.Headers).Get("x-trace"))
}

func TestPathTemplateTypes(t *testing.T) {
	m := mustBuild(t, []Parameter{
		{Name: "id", Annotation: kwargs.TypeOf[any]()},
	}, WithRoute("/orders/{id:int}"))

	def, ok := m.Field("id")
	require.True(t, ok)
	assert.Equal(t, kwargs.PathParam, def.ParamType)
	assert.Equal(t, reflect.TypeOf(0), def.Annotation.Type)

	values, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/orders/7").WithPathParam("id", "7"))
	require.NoError(t, err)
	assert.Equal(t, 7, values["id"])
}

func TestDependencyFailureClassification(t *testing.T) {
	type user struct {
		ID int `json:"id"`
	}
	m := mustBuild(t, []Parameter{
		{Name: "page", Annotation: kwargs.TypeOf[int]()},
		{Name: "current", Annotation: kwargs.TypeOf[user]()},
		{Name: "raw", Annotation: kwargs.TypeOf[int](), Default: kwargs.Dependency(kwargs.SkipValidation(), kwargs.Default(0))},
	}, WithDependencyNames("current"))
	conn := testconn.New(http.MethodGet, "/")

	assert.Equal(t, []string{"current", "raw"}, m.DependencyNames())

	t.Run("dependency only is a server error", func(t *testing.T) {
		_, err := m.Parse(context.Background(), kwargs.Kwargs{"page": "1", "current": "not a user"}, conn)
		verr := validationError(t, err)
		assert.True(t, verr.Server)
		assert.Equal(t, http.StatusInternalServerError, verr.StatusCode())
		assert.Empty(t, verr.Failures)
		require.Len(t, verr.DependencyFailures, 1)
		assert.Equal(t, kwargs.DependencyValidationFailure, verr.DependencyFailures[0].Kind)
	})

	t.Run("mixed failures are a client error", func(t *testing.T) {
		_, err := m.Parse(context.Background(), kwargs.Kwargs{"page": "x", "current": "not a user"}, conn)
		verr := validationError(t, err)
		assert.False(t, verr.Server)
		assert.Equal(t, []string{"page"}, verr.Keys())
		assert.Len(t, verr.DependencyFailures, 1)
	})

	t.Run("skip validation passes values through", func(t *testing.T) {
		values, err := m.Parse(context.Background(),
			kwargs.Kwargs{"page": "1", "current": map[string]any{"id": 3}, "raw": "anything"}, conn)
		require.NoError(t, err)
		assert.Equal(t, user{ID: 3}, values["current"])
		assert.Equal(t, "anything", values["raw"])
	})
}

func TestLayeredParameters(t *testing.T) {
	layered := []Parameter{
		{Name: "version", Annotation: kwargs.TypeOf[string](), Default: kwargs.Header("X-Version", kwargs.Default("1"))},
		{Name: "locale", Annotation: kwargs.TypeOf[string](), Default: kwargs.Query("lang", kwargs.Default("en"))},
	}
	m := mustBuild(t, []Parameter{
		{Name: "version", Annotation: kwargs.TypeOf[int]()},
	}, WithLayeredParameters(layered...))

	def, ok := m.Field("version")
	require.True(t, ok)
	assert.Equal(t, kwargs.HeaderParam, def.ParamType)
	assert.Equal(t, "X-Version", def.FieldAlias)

	values, err := m.ParseConnection(context.Background(), testconn.New(http.MethodGet, "/?lang=de"))
	require.NoError(t, err)
	assert.Equal(t, 1, values["version"])
	assert.Equal(t, "de", values["locale"])
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		params  []Parameter
		opts    []Option
		message string
	}{
		{
			name: "duplicate header alias",
			params: []Parameter{
				{Name: "a", Annotation: kwargs.TypeOf[string](), Default: kwargs.Header("X-Token")},
				{Name: "b", Annotation: kwargs.TypeOf[string](), Default: kwargs.Header("x-token")},
			},
			message: "share the alias",
		},
		{
			name: "duplicate query alias",
			params: []Parameter{
				{Name: "q", Annotation: kwargs.TypeOf[string]()},
				{Name: "search", Annotation: kwargs.TypeOf[string](), Default: kwargs.Query("q")},
			},
			message: "share the alias",
		},
		{
			name:    "path and dependency",
			params:  []Parameter{{Name: "id", Annotation: kwargs.TypeOf[int]()}},
			opts:    []Option{WithRoute("/{id}"), WithDependencyNames("id")},
			message: "Kwarg resolution ambiguity detected for the following keys: id.",
		},
		{
			name:    "path and aliased parameter",
			params:  []Parameter{{Name: "id", Annotation: kwargs.TypeOf[int](), Default: kwargs.Query("identifier")}},
			opts:    []Option{WithRoute("/{id}")},
			message: "Kwarg resolution ambiguity",
		},
		{
			name:    "path and layered parameter",
			opts:    []Option{WithRoute("/orders/{id:int}"), WithLayeredParameters(Parameter{Name: "id", Annotation: kwargs.TypeOf[any]()})},
			message: "Kwarg resolution ambiguity detected for the following keys: id.",
		},
		{
			name:    "reserved name with marker",
			params:  []Parameter{{Name: "headers", Annotation: kwargs.TypeOf[string](), Default: kwargs.Query("")}},
			message: "The following kwargs have been used: headers",
		},
		{
			name:    "reserved dependency",
			params:  []Parameter{{Name: "x", Annotation: kwargs.TypeOf[string]()}},
			opts:    []Option{WithDependencyNames("state")},
			message: "The following kwargs have been used: state",
		},
		{
			name: "incompatible media types",
			params: []Parameter{
				{Name: "data", Annotation: kwargs.TypeOf[any]()},
				{Name: "form", Annotation: kwargs.TypeOf[any](), Default: kwargs.Body(kwargs.MediaType(kwargs.URLEncoded))},
			},
			message: "incompatible media types",
		},
		{
			name:    "unsupported type",
			params:  []Parameter{{Name: "c", Annotation: kwargs.TypeOf[chan int]()}},
			message: "unsupported type",
		},
		{
			name:    "invalid pattern",
			params:  []Parameter{{Name: "s", Annotation: kwargs.TypeOf[string](), Default: kwargs.Query("", kwargs.Pattern("("))}},
			message: "invalid pattern",
		},
		{
			name:    "path marker outside route",
			params:  []Parameter{{Name: "id", Annotation: kwargs.TypeOf[int](), Default: kwargs.PathParameter()}},
			message: "is not part of the route",
		},
		{
			name:    "protobuf body without message type",
			params:  []Parameter{{Name: "data", Annotation: kwargs.TypeOf[map[string]any](), Default: kwargs.Body(kwargs.MediaType(kwargs.Protobuf))}},
			message: "is not a protobuf message",
		},
		{
			name:    "explicit dependency without provider",
			params:  []Parameter{{Name: "db", Annotation: kwargs.TypeOf[any](), Default: kwargs.Dependency()}},
			message: "has no default value, or provided dependency",
		},
		{
			name: "declared twice",
			params: []Parameter{
				{Name: "a", Annotation: kwargs.TypeOf[int]()},
				{Name: "a", Annotation: kwargs.TypeOf[string]()},
			},
			message: "declared twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("handler", tt.params, tt.opts...)
			require.Error(t, err)
			assert.True(t, kwargs.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCache(t *testing.T) {
	cache := NewCache()
	handler := func() {}
	other := func() {}
	key := KeyOf(handler, "/a")
	assert.NotEqual(t, key, KeyOf(other, "/a"))
	assert.NotEqual(t, key, KeyOf(handler, "/b"))

	builds := 0
	build := func() (*Model, error) {
		builds++
		return Build("handler", nil)
	}
	first, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)
	second, err := cache.GetOrBuild(key, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, cache.Size())

	cache.Delete(key)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}
