package signature

import (
	"reflect"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/extract"
	"github.com/toyz/kwargs/pkg/kwargs"
)

type field struct {
	def kwargs.ParameterDefinition

	// nil for fields passed through without coercion
	coerce coerce.Func
}

// Model is the compiled plan of one handler. It is immutable once built and
// safe for concurrent use.
type Model struct {
	name       string
	route      kwargs.RoutePath
	returnType reflect.Type

	fields []field
	byName map[string]int

	required           []string
	dependencies       []string
	sequenceQueryNames []string
	extractors         []extract.Extractor
}

// extraction order: reserved names first, then header, path, cookie, query and body
var sourceOrder = []kwargs.ParamType{kwargs.HeaderParam, kwargs.PathParam, kwargs.CookieParam, kwargs.QueryParam}

func (m *Model) compile(partLimit int) {
	grouped := map[kwargs.ParamType][]kwargs.ParameterDefinition{}
	for _, f := range m.fields {
		def := f.def
		if def.IsRequired {
			m.required = append(m.required, def.FieldName)
		}
		switch def.ParamType {
		case kwargs.InjectedParam, kwargs.StateParam:
			if e, ok := extract.Passthrough(def.FieldName); ok {
				m.extractors = append(m.extractors, e)
			}
		case kwargs.DependencyParam:
			m.dependencies = append(m.dependencies, def.FieldName)
		case kwargs.QueryParam:
			if def.IsSequence {
				m.sequenceQueryNames = append(m.sequenceQueryNames, def.FieldAlias)
			}
			grouped[def.ParamType] = append(grouped[def.ParamType], def)
		case kwargs.PathParam, kwargs.HeaderParam, kwargs.CookieParam:
			grouped[def.ParamType] = append(grouped[def.ParamType], def)
		}
	}
	for _, source := range sourceOrder {
		if defs := grouped[source]; len(defs) > 0 {
			m.extractors = append(m.extractors, extract.ConnectionValue(source, defs, m.sequenceQueryNames))
		}
	}
	for _, f := range m.fields {
		if f.def.ParamType == kwargs.BodyParam {
			m.extractors = append(m.extractors, extract.BodyExtractor(f.def, partLimit))
		}
	}
}

// Name returns the handler name the model was built for
func (m *Model) Name() string { return m.name }

// Route returns the route template, if one was declared
func (m *Model) Route() kwargs.RoutePath { return m.route }

// Fields returns the parameter definitions in declaration order
func (m *Model) Fields() []kwargs.ParameterDefinition {
	out := make([]kwargs.ParameterDefinition, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.def
	}
	return out
}

// Field returns the definition of one parameter
func (m *Model) Field(name string) (kwargs.ParameterDefinition, bool) {
	i, ok := m.byName[name]
	if !ok {
		return kwargs.ParameterDefinition{}, false
	}
	return m.fields[i].def, true
}

// RequiredFields returns the names of fields without a default
func (m *Model) RequiredFields() []string {
	return append([]string(nil), m.required...)
}

// DependencyNames returns the names of dependency-sourced fields
func (m *Model) DependencyNames() []string {
	return append([]string(nil), m.dependencies...)
}

// IsDependency reports whether name is a dependency-sourced field
func (m *Model) IsDependency(name string) bool {
	i, ok := m.byName[name]
	return ok && m.fields[i].def.ParamType == kwargs.DependencyParam
}

// ReturnType returns the handler's declared return type
func (m *Model) ReturnType() reflect.Type { return m.returnType }

// SequenceQueryNames returns the aliases of query fields declared as sequences
func (m *Model) SequenceQueryNames() []string {
	return append([]string(nil), m.sequenceQueryNames...)
}

// HasBody reports whether any field reads the request body
func (m *Model) HasBody() bool {
	for _, f := range m.fields {
		if f.def.ParamType == kwargs.BodyParam || f.def.FieldName == extract.BodyName {
			return true
		}
	}
	return false
}

// ToKwargs runs every extractor against conn and returns the raw mapping.
// Body values are stored as kwargs.Deferred and resolved by Parse.
func (m *Model) ToKwargs(conn kwargs.Connection) kwargs.Kwargs {
	values := make(kwargs.Kwargs, len(m.fields))
	for _, e := range m.extractors {
		e(values, conn)
	}
	return values
}
