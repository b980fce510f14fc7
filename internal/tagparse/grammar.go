// Package tagparse reads `kwarg` struct tags into parameter declarations.
//
// A tag is a comma separated list of items. A bare item names the source
// (query, header, cookie, path, body, data, dependency) or a flag
// (required, skip); key=value items set options:
//
//	kwarg:"header,alias=X-API-KEY"
//	kwarg:"query,default=10,ge=1,le=100"
//	kwarg:"body,media=multipart,limit=5"
//	kwarg:"query,pattern='^[a-z]+$'"
package tagparse

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Tag is the parsed form of one struct tag
type Tag struct {
	Items []*Item `parser:"(@@ (',' @@)*)?"`
}

// Item is either a bare word or a key=value pair
type Item struct {
	Key   string `parser:"@Word"`
	Value *Value `parser:"('=' @@)?"`
}

// Value is a quoted string or a bare word
type Value struct {
	Quoted *string `parser:"@String"`
	Word   *string `parser:"| @Word"`
}

// Text returns the unquoted value
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	if v.Quoted != nil {
		return unquote(*v.Quoted)
	}
	if v.Word != nil {
		return *v.Word
	}
	return ""
}

var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(\\'|[^'])*'`},
	{Name: "Word", Pattern: `[^,='\s]+`},
	{Name: "Punct", Pattern: `[,=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var tagParser = participle.MustBuild[Tag](
	participle.Lexer(tagLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseTag parses the raw text of a kwarg tag
func ParseTag(raw string) (*Tag, error) {
	if strings.TrimSpace(raw) == "" {
		return &Tag{}, nil
	}
	return tagParser.ParseString("", raw)
}

func unquote(s string) string {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "'"), "'")
	return strings.ReplaceAll(s, `\'`, `'`)
}
