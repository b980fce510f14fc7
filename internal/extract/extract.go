// Package extract pulls raw parameter values out of a connection. Extractors
// are built once per handler and write into a shared mapping at request time.
package extract

import (
	"slices"
	"strings"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// Extractor copies the values of one parameter group from conn into values
type Extractor func(values kwargs.Kwargs, conn kwargs.Connection)

type expected struct {
	alias    string
	field    string
	sequence bool
}

// ConnectionValue builds the extractor of one source from the definitions
// belonging to it. Header aliases are compared lower-cased. A required value
// missing from the connection is left absent so every missing field can be
// reported together.
func ConnectionValue(source kwargs.ParamType, defs []kwargs.ParameterDefinition, sequenceQueryNames []string) Extractor {
	fields := make([]expected, 0, len(defs))
	defaults := make(map[string]any)
	for _, def := range defs {
		alias := def.FieldAlias
		if source == kwargs.HeaderParam {
			alias = strings.ToLower(alias)
		}
		fields = append(fields, expected{alias: alias, field: def.FieldName, sequence: def.IsSequence})
		if def.IsRequired {
			continue
		}
		if def.HasDefault() {
			defaults[alias] = def.DefaultValue
		} else {
			defaults[alias] = nil
		}
	}

	lookup := sourceLookup(source, sequenceQueryNames)
	return func(values kwargs.Kwargs, conn kwargs.Connection) {
		get := lookup(conn)
		for _, f := range fields {
			if v, ok := get(f); ok {
				values[f.field] = v
			} else if d, hasDefault := defaults[f.alias]; hasDefault {
				values[f.field] = d
			}
		}
	}
}

type getter func(f expected) (any, bool)

func sourceLookup(source kwargs.ParamType, sequenceQueryNames []string) func(kwargs.Connection) getter {
	switch source {
	case kwargs.PathParam:
		return func(conn kwargs.Connection) getter {
			return stringLookup(conn.PathParams())
		}
	case kwargs.CookieParam:
		return func(conn kwargs.Connection) getter {
			return stringLookup(conn.Cookies())
		}
	case kwargs.HeaderParam:
		return func(conn kwargs.Connection) getter {
			headers := ConnectionHeaders(conn)
			return func(f expected) (any, bool) {
				values, ok := headers[f.alias]
				if !ok || len(values) == 0 {
					return nil, false
				}
				if f.sequence {
					return append([]string(nil), values...), true
				}
				return values[0], true
			}
		}
	case kwargs.QueryParam:
		return func(conn kwargs.Connection) getter {
			dict := QueryDefaultDict(ConnectionQuery(conn), sequenceQueryNames)
			return func(f expected) (any, bool) {
				v, ok := dict[f.alias]
				if list, isList := v.([]string); isList {
					return slices.Clone(list), ok
				}
				return v, ok
			}
		}
	}
	return func(kwargs.Connection) getter {
		return func(expected) (any, bool) { return nil, false }
	}
}

func stringLookup(m map[string]string) getter {
	return func(f expected) (any, bool) {
		v, ok := m[f.alias]
		return v, ok
	}
}
