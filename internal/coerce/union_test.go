package coerce

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/kwargs/pkg/kwargs"
)

func TestUnionOrdering(t *testing.T) {
	intOrString := kwargs.Union(kwargs.TypeOf[int](), kwargs.TypeOf[string]())
	stringOrInt := kwargs.Union(kwargs.TypeOf[string](), kwargs.TypeOf[int]())

	tests := []struct {
		name       string
		annotation kwargs.Annotation
		input      any
		expected   any
	}{
		{name: "string input tries int first", annotation: intOrString, input: "123", expected: 123},
		{name: "string input tries string first", annotation: stringOrInt, input: "123", expected: "123"},
		{name: "native int matches exactly", annotation: stringOrInt, input: 123, expected: 123},
		{name: "json number prefers numeric member", annotation: stringOrInt, input: json.Number("42"), expected: 42},
		{name: "falls through to later member", annotation: intOrString, input: "abc", expected: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := NewRegistry().Build(tt.annotation)
			require.NoError(t, err)
			v, err := fn(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestUnionNone(t *testing.T) {
	members := []kwargs.Annotation{kwargs.TypeOf[int](), kwargs.TypeOf[bool]()}

	fn, err := NewRegistry().Build(kwargs.Union(members...))
	require.NoError(t, err)
	_, err = fn(nil)
	assert.Error(t, err)

	fn, err = NewRegistry().Build(kwargs.Optional(kwargs.Union(members...)))
	require.NoError(t, err)
	v, err := fn(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestUnionNoMemberAccepts(t *testing.T) {
	fn, err := NewRegistry().Build(kwargs.Union(kwargs.TypeOf[int](), kwargs.TypeOf[bool]()))
	require.NoError(t, err)

	_, err = fn("maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value is not a valid int | bool")
}

func TestOptionalScalar(t *testing.T) {
	fn, err := NewRegistry().Build(kwargs.Optional(kwargs.TypeOf[int]()))
	require.NoError(t, err)

	v, err := fn(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = fn("9")
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}
