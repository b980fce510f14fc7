package kwargs

import (
	"reflect"
	"strings"
)

// PathPartKind represents the kind of a route path segment
type PathPartKind int

const (
	StaticPart PathPartKind = iota
	ParameterPart
	WildcardPart
)

// PathPart is one parsed segment of a route template
type PathPart struct {
	Kind     PathPartKind
	Value    string // literal text for static parts, the name for parameters
	TypeName string // declared type of a parameter, empty when untyped
}

// RoutePath is a route template such as /users/{id:int}/files/{*}
type RoutePath string

// Raw returns the template as written
func (p RoutePath) Raw() string {
	return string(p)
}

// Parts splits the template into static and parameter segments
func (p RoutePath) Parts() []PathPart {
	rest := string(p)
	var parts []PathPart
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			parts = append(parts, PathPart{Kind: StaticPart, Value: rest})
			break
		}
		if open > 0 {
			parts = append(parts, PathPart{Kind: StaticPart, Value: rest[:open]})
			rest = rest[open:]
		}
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			// unterminated brace is kept literally
			parts = append(parts, PathPart{Kind: StaticPart, Value: rest})
			break
		}
		parts = append(parts, parsePlaceholder(rest[1:end]))
		rest = rest[end+1:]
	}
	return parts
}

func parsePlaceholder(content string) PathPart {
	if content == "*" {
		return PathPart{Kind: WildcardPart, Value: "*"}
	}
	name, typeName, _ := strings.Cut(content, ":")
	return PathPart{Kind: ParameterPart, Value: strings.TrimSpace(name), TypeName: strings.TrimSpace(typeName)}
}

// PathParameters returns the parameter names of the template in order
func (p RoutePath) PathParameters() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Kind == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// ParameterType returns the Go type declared for a path parameter. Untyped
// parameters are strings.
func (p RoutePath) ParameterType(name string) (reflect.Type, bool) {
	for _, part := range p.Parts() {
		if part.Kind != ParameterPart || part.Value != name {
			continue
		}
		if part.TypeName == "" {
			return reflect.TypeOf(""), true
		}
		return LookupType(part.TypeName)
	}
	return nil, false
}

// HasWildcard reports whether the template ends in a catch-all segment
func (p RoutePath) HasWildcard() bool {
	for _, part := range p.Parts() {
		if part.Kind == WildcardPart {
			return true
		}
	}
	return false
}
