// Package signature compiles handler parameter declarations into a reusable
// extraction and validation plan.
package signature

import (
	"reflect"
	"sort"
	"strings"

	"github.com/toyz/kwargs/internal/coerce"
	"github.com/toyz/kwargs/internal/extract"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// DataName is the parameter name treated as the JSON body when it carries no marker
const DataName = "data"

// Parameter is one declared handler parameter. Default holds a *kwargs.Kwarg
// marker, a concrete default value, or nil when no default is declared.
type Parameter struct {
	Name       string
	Annotation kwargs.Annotation
	Default    any
}

func (p Parameter) marker() *kwargs.Kwarg {
	k, _ := p.Default.(*kwargs.Kwarg)
	return k
}

// defaultOf returns the declared default or kwargs.Empty
func (p Parameter) defaultOf() any {
	if m := p.marker(); m != nil {
		if m.Default == nil {
			return kwargs.Empty
		}
		return m.Default
	}
	if p.Default == nil {
		return kwargs.Empty
	}
	return p.Default
}

// aliased reports whether the parameter declares an explicit header, query or cookie alias
func (p Parameter) aliased() bool {
	m := p.marker()
	if m == nil || m.Alias == "" {
		return false
	}
	switch m.Source {
	case kwargs.QueryParam, kwargs.HeaderParam, kwargs.CookieParam:
		return true
	}
	return false
}

type config struct {
	dependencies map[string]bool
	route        kwargs.RoutePath
	pathParams   map[string]bool
	registry     *coerce.Registry
	returnType   reflect.Type
	partLimit    int
	layered      []Parameter
}

// Option configures Build
type Option func(*config)

// WithDependencyNames declares the names supplied by dependency providers
func WithDependencyNames(names ...string) Option {
	return func(c *config) {
		for _, n := range names {
			c.dependencies[n] = true
		}
	}
}

// WithRoute declares the route template; its placeholders become path parameters
func WithRoute(route kwargs.RoutePath) Option {
	return func(c *config) {
		c.route = route
		for _, n := range route.PathParameters() {
			c.pathParams[n] = true
		}
	}
}

// WithPathParameters declares path parameter names without a route template
func WithPathParameters(names ...string) Option {
	return func(c *config) {
		for _, n := range names {
			c.pathParams[n] = true
		}
	}
}

// WithRegistry selects the coercion registry
func WithRegistry(r *coerce.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithReturnType records the handler's declared return type
func WithReturnType(t reflect.Type) Option {
	return func(c *config) { c.returnType = t }
}

// WithPartLimit sets the application multipart part limit
func WithPartLimit(n int) Option {
	return func(c *config) { c.partLimit = n }
}

// WithLayeredParameters merges parameters declared above the handler. The
// handler's own declaration wins for any name present in both.
func WithLayeredParameters(params ...Parameter) Option {
	return func(c *config) { c.layered = append(c.layered, params...) }
}

type builder struct {
	handler string
	cfg     *config
}

// Build compiles the parameters of one handler into a Model
func Build(handler string, params []Parameter, opts ...Option) (*Model, error) {
	cfg := &config{
		dependencies: map[string]bool{},
		pathParams:   map[string]bool{},
		registry:     coerce.Default,
		partLimit:    extract.DefaultPartLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	b := &builder{handler: handler, cfg: cfg}

	params = mergeLayered(params, cfg.layered)
	if err := b.validateKeys(params); err != nil {
		return nil, err
	}

	m := &Model{
		name:       handler,
		route:      cfg.route,
		returnType: cfg.returnType,
		byName:     make(map[string]int, len(params)),
	}
	for _, p := range params {
		if _, dup := m.byName[p.Name]; dup {
			return nil, b.errorf("parameter %q is declared twice", p.Name)
		}
		f, err := b.field(p)
		if err != nil {
			return nil, err
		}
		m.byName[p.Name] = len(m.fields)
		m.fields = append(m.fields, f)
	}
	if err := b.checkAliases(m.fields); err != nil {
		return nil, err
	}
	if err := b.checkBodies(m.fields); err != nil {
		return nil, err
	}
	m.compile(cfg.partLimit)
	return m, nil
}

func (b *builder) errorf(format string, args ...any) error {
	return kwargs.NewConfigurationError(b.handler, format, args...)
}

func mergeLayered(params, layered []Parameter) []Parameter {
	if len(layered) == 0 {
		return params
	}
	byName := make(map[string]Parameter, len(layered))
	for _, l := range layered {
		byName[l.Name] = l
	}
	seen := make(map[string]bool, len(params))
	out := make([]Parameter, 0, len(params)+len(layered))
	for _, p := range params {
		if l, ok := byName[p.Name]; ok {
			p = mergeParameter(p, l)
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	for _, l := range layered {
		if !seen[l.Name] {
			out = append(out, l)
		}
	}
	return out
}

// mergeParameter prefers the handler's marker and default, falling back to the layered ones
func mergeParameter(p, l Parameter) Parameter {
	marker := p.marker()
	if marker == nil {
		marker = l.marker()
	}
	def := p.defaultOf()
	if def == kwargs.Empty {
		def = l.defaultOf()
	}
	merged := Parameter{Name: p.Name, Annotation: p.Annotation}
	if merged.Annotation.IsAny() && !l.Annotation.IsAny() {
		merged.Annotation = l.Annotation
	}
	if marker != nil {
		m := *marker
		m.Default = def
		merged.Default = &m
	} else if def != kwargs.Empty {
		merged.Default = def
	}
	return merged
}

// validateKeys rejects names claimed by more than one of path parameters,
// dependencies and aliased parameters, and reserved names used as keys
func (b *builder) validateKeys(params []Parameter) error {
	path := b.cfg.pathParams
	deps := b.cfg.dependencies
	named := map[string]bool{}
	for _, p := range params {
		if p.aliased() {
			named[p.Name] = true
		}
	}
	for _, l := range b.cfg.layered {
		named[l.Name] = true
	}

	for _, overlap := range [][]string{intersect(path, deps), intersect(path, named), intersect(deps, named)} {
		if len(overlap) > 0 {
			return b.errorf("Kwarg resolution ambiguity detected for the following keys: %s. "+
				"Make sure to use distinct keys for your dependencies, path parameters and aliased parameters.",
				strings.Join(overlap, ", "))
		}
	}

	var used []string
	for _, set := range []map[string]bool{named, path, deps} {
		for name := range set {
			if isReservedKey(name) {
				used = append(used, name)
			}
		}
	}
	for _, p := range params {
		if p.marker() != nil && extract.IsReserved(p.Name) {
			used = append(used, p.Name)
		}
	}
	if len(used) > 0 {
		return b.errorf("Reserved kwargs (%s) cannot be used for dependencies and parameter arguments. "+
			"The following kwargs have been used: %s", strings.Join(reservedKeys(), ", "), strings.Join(dedupe(used), ", "))
	}
	return nil
}

func isReservedKey(name string) bool {
	return name == DataName || extract.IsReserved(name)
}

func reservedKeys() []string {
	return []string{
		extract.StateName, extract.HeadersName, extract.CookiesName, extract.RequestName,
		extract.SocketName, DataName, extract.QueryName, extract.ScopeName, extract.BodyName,
	}
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func dedupe(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}

// classify selects the source of a parameter
func (b *builder) classify(p Parameter) (kwargs.ParamType, error) {
	marker := p.marker()
	switch {
	case extract.IsReserved(p.Name):
		return extract.ReservedSource(p.Name), nil
	case b.cfg.dependencies[p.Name]:
		if marker != nil && marker.Source != kwargs.DependencyParam {
			return 0, b.errorf("parameter %q is provided as a dependency but declared as a %s parameter", p.Name, marker.Source)
		}
		return kwargs.DependencyParam, nil
	case marker == nil && p.Name == DataName:
		return kwargs.BodyParam, nil
	case b.cfg.pathParams[p.Name] && (marker == nil || marker.Source != kwargs.BodyParam && marker.Source != kwargs.DependencyParam):
		return kwargs.PathParam, nil
	case marker == nil:
		return kwargs.QueryParam, nil
	case marker.Source == kwargs.PathParam:
		return 0, b.errorf("path parameter %q is not part of the route %q", p.Name, b.cfg.route)
	case marker.Source == kwargs.DependencyParam:
		if kwargs.IsEmpty(marker.Default) || marker.Default == nil {
			return 0, b.errorf("Explicit dependency %q has no default value, or provided dependency", p.Name)
		}
	}
	return marker.Source, nil
}

func (b *builder) field(p Parameter) (field, error) {
	source, err := b.classify(p)
	if err != nil {
		return field{}, err
	}

	annotation := p.Annotation
	if source == kwargs.PathParam && annotation.IsAny() {
		if t, ok := b.cfg.route.ParameterType(p.Name); ok {
			annotation = kwargs.Of(t)
		}
	}

	var marker *kwargs.Kwarg
	if m := p.marker(); m != nil {
		marker = m
		if source == kwargs.PathParam && m.Alias != "" {
			// path values are always looked up by field name
			copied := *m
			copied.Alias = ""
			marker = &copied
		}
	}
	def := kwargs.NewParameterDefinition(p.Name, annotation, source, marker)
	if marker == nil {
		def = def.WithDefault(p.defaultOf())
	}

	f := field{def: def}
	switch source {
	case kwargs.InjectedParam, kwargs.StateParam:
		return f, nil
	case kwargs.DependencyParam:
		if def.SkipValidation {
			return f, nil
		}
	case kwargs.BodyParam:
		if def.MediaType == kwargs.Protobuf && !annotation.IsAny() && !annotation.IsUnion() && !coerce.IsProtoMessage(annotation.Type) {
			return field{}, b.errorf("body parameter %q uses %s but %s is not a protobuf message", p.Name, def.MediaType, annotation)
		}
	}

	fn, err := b.cfg.registry.Build(annotation)
	if err != nil {
		return field{}, b.errorf("parameter %q: %v", p.Name, err)
	}
	check, err := coerce.Constraints(def.Constraints)
	if err != nil {
		return field{}, b.errorf("parameter %q: %v", p.Name, err)
	}
	f.coerce = coerce.Chain(fn, check)
	return f, nil
}

// checkAliases rejects two fields of one source sharing a wire alias
func (b *builder) checkAliases(fields []field) error {
	seen := map[kwargs.ParamType]map[string]string{}
	for _, f := range fields {
		switch f.def.ParamType {
		case kwargs.PathParam, kwargs.QueryParam, kwargs.HeaderParam, kwargs.CookieParam:
		default:
			continue
		}
		alias := f.def.FieldAlias
		if f.def.ParamType == kwargs.HeaderParam {
			alias = strings.ToLower(alias)
		}
		group := seen[f.def.ParamType]
		if group == nil {
			group = map[string]string{}
			seen[f.def.ParamType] = group
		}
		if other, dup := group[alias]; dup {
			return b.errorf("%s parameters %q and %q share the alias %q", f.def.ParamType, other, f.def.FieldName, f.def.FieldAlias)
		}
		group[alias] = f.def.FieldName
	}
	return nil
}

// checkBodies requires every body field to decode the same media type
func (b *builder) checkBodies(fields []field) error {
	var first *kwargs.ParameterDefinition
	for i := range fields {
		def := &fields[i].def
		if def.ParamType != kwargs.BodyParam {
			continue
		}
		if first == nil {
			first = def
			continue
		}
		if def.MediaType != first.MediaType {
			return b.errorf("body parameters %q (%s) and %q (%s) use incompatible media types",
				first.FieldName, first.MediaType, def.FieldName, def.MediaType)
		}
	}
	return nil
}
