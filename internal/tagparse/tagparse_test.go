package tagparse

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/pkg/kwargs"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		keys  []string
		texts []string
	}{
		{name: "empty", input: "", keys: nil, texts: nil},
		{name: "source only", input: "header", keys: []string{"header"}, texts: []string{""}},
		{
			name:  "options",
			input: "header, alias=X-API-KEY,required",
			keys:  []string{"header", "alias", "required"},
			texts: []string{"", "X-API-KEY", ""},
		},
		{
			name:  "quoted value keeps commas",
			input: "query,pattern='^[a-z]{1,3}$',description='it\\'s here'",
			keys:  []string{"query", "pattern", "description"},
			texts: []string{"", "^[a-z]{1,3}$", "it's here"},
		},
		{name: "negative number", input: "ge=-1.5", keys: []string{"ge"}, texts: []string{"-1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := ParseTag(tt.input)
			require.NoError(t, err)
			var keys, texts []string
			for _, item := range tag.Items {
				keys = append(keys, item.Key)
				texts = append(texts, item.Value.Text())
			}
			assert.Equal(t, tt.keys, keys)
			assert.Equal(t, tt.texts, texts)
		})
	}
}

func TestParseTagErrors(t *testing.T) {
	for _, input := range []string{"query,", "=x", "alias='open"} {
		_, err := ParseTag(input)
		assert.Error(t, err, input)
	}
}

type Paging struct {
	Page  int `kwarg:"query,default=1,ge=1"`
	Limit int `kwarg:"query,alias=per_page,default=20,le=100"`
}

type listInput struct {
	Paging
	ID      int           `kwarg:"path"`
	APIKey  string        `kwarg:"header,alias=X-API-KEY" json:"api_key"`
	Tags    []string      `kwarg:"query,alias=tag,default=a|b"`
	Timeout time.Duration `kwarg:"default=5s"`
	Search  *string       `kwarg:""`
	Ignored string        `kwarg:"-"`
}

func TestFields(t *testing.T) {
	fields, err := Fields(reflect.TypeOf(&listInput{}), coerce.NewRegistry())
	require.NoError(t, err)

	byName := map[string]Field{}
	var names []string
	for _, f := range fields {
		byName[f.Parameter.Name] = f
		names = append(names, f.Parameter.Name)
	}
	assert.ElementsMatch(t, []string{"page", "limit", "id", "api_key", "tags", "timeout", "search"}, names)

	limit := byName["limit"].Parameter.Default.(*kwargs.Kwarg)
	assert.Equal(t, kwargs.QueryParam, limit.Source)
	assert.Equal(t, "per_page", limit.Alias)
	assert.Equal(t, 20, limit.Default)
	require.NotNil(t, limit.Constraints.Le)
	assert.Equal(t, 100.0, *limit.Constraints.Le)

	key := byName["api_key"].Parameter.Default.(*kwargs.Kwarg)
	assert.Equal(t, kwargs.HeaderParam, key.Source)
	assert.Equal(t, "X-API-KEY", key.Alias)

	assert.Equal(t, []string{"a", "b"}, byName["tags"].Parameter.Default.(*kwargs.Kwarg).Default)
	assert.Equal(t, 5*time.Second, byName["timeout"].Parameter.Default.(*kwargs.Kwarg).Default)
	assert.Nil(t, byName["search"].Parameter.Default)
	assert.True(t, byName["search"].Parameter.Annotation.IsOptional())
	assert.Equal(t, kwargs.PathParam, byName["id"].Parameter.Default.(*kwargs.Kwarg).Source)
}

func TestFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "unknown option", value: struct {
			A int `kwarg:"query,size=3"`
		}{}},
		{name: "bad default", value: struct {
			A int `kwarg:"default=abc"`
		}{}},
		{name: "two sources", value: struct {
			A int `kwarg:"query,header"`
		}{}},
		{name: "alias without source", value: struct {
			A int `kwarg:"alias=x"`
		}{}},
		{name: "bad media", value: struct {
			A []byte `kwarg:"body,media=xml"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fields(reflect.TypeOf(tt.value), nil)
			assert.Error(t, err)
		})
	}

	_, err := Fields(reflect.TypeOf(0), nil)
	assert.Error(t, err)
}

func TestFill(t *testing.T) {
	fields, err := Fields(reflect.TypeOf(listInput{}), nil)
	require.NoError(t, err)

	var in listInput
	err = Fill(&in, fields, kwargs.Kwargs{
		"page":    3,
		"limit":   50,
		"id":      7,
		"api_key": "secret",
		"tags":    []string{"x"},
		"timeout": time.Minute,
		"search":  nil,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, in.Page)
	assert.Equal(t, 50, in.Limit)
	assert.Equal(t, 7, in.ID)
	assert.Equal(t, "secret", in.APIKey)
	assert.Equal(t, []string{"x"}, in.Tags)
	assert.Equal(t, time.Minute, in.Timeout)
	assert.Nil(t, in.Search)

	assert.Error(t, Fill(in, fields, nil))
	assert.Error(t, Fill(&in, fields, kwargs.Kwargs{"page": "three"}))
}
