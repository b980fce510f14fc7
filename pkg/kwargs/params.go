// Package kwargs provides the public contracts of the kwargs runtime: parameter
// markers, annotations, the connection abstraction and the error taxonomy used
// when extracting and validating handler parameters.
package kwargs

import "strings"

// ParamType identifies which part of a connection a parameter is read from
type ParamType int

const (
	PathParam ParamType = iota
	QueryParam
	HeaderParam
	CookieParam
	BodyParam
	DependencyParam
	StateParam
	InjectedParam
)

// String returns the lower-case name of the source
func (p ParamType) String() string {
	switch p {
	case PathParam:
		return "path"
	case QueryParam:
		return "query"
	case HeaderParam:
		return "header"
	case CookieParam:
		return "cookie"
	case BodyParam:
		return "body"
	case DependencyParam:
		return "dependency"
	case StateParam:
		return "state"
	case InjectedParam:
		return "injected"
	default:
		return "unknown"
	}
}

// ParseParamType resolves a source name as written in struct tags
func ParseParamType(name string) (ParamType, bool) {
	switch strings.ToLower(name) {
	case "path":
		return PathParam, true
	case "query":
		return QueryParam, true
	case "header":
		return HeaderParam, true
	case "cookie":
		return CookieParam, true
	case "body", "data":
		return BodyParam, true
	case "dependency", "dep":
		return DependencyParam, true
	}
	return 0, false
}

type emptyType struct{}

func (emptyType) String() string { return "<empty>" }

type requiredType struct{}

func (requiredType) String() string { return "<required>" }

var (
	// Empty marks a parameter that declares no default value.
	Empty = emptyType{}

	// Required marks a parameter that must be supplied even if its type is optional.
	Required = requiredType{}
)

// IsEmpty reports whether v is one of the "no default" sentinels
func IsEmpty(v any) bool {
	switch v.(type) {
	case emptyType, requiredType:
		return true
	}
	return false
}

// RequestEncoding selects how a body parameter is decoded
type RequestEncoding int

const (
	JSON RequestEncoding = iota
	MessagePack
	YAML
	Protobuf
	URLEncoded
	MultiPart
)

// String returns the media type for the encoding
func (e RequestEncoding) String() string {
	switch e {
	case MessagePack:
		return "application/x-msgpack"
	case YAML:
		return "application/yaml"
	case Protobuf:
		return "application/x-protobuf"
	case URLEncoded:
		return "application/x-www-form-urlencoded"
	case MultiPart:
		return "multipart/form-data"
	default:
		return "application/json"
	}
}

// IsForm reports whether the encoding is one of the form encodings
func (e RequestEncoding) IsForm() bool {
	return e == URLEncoded || e == MultiPart
}

// ParseRequestEncoding resolves a short name or media type
func ParseRequestEncoding(name string) (RequestEncoding, bool) {
	switch strings.ToLower(name) {
	case "json", "application/json":
		return JSON, true
	case "msgpack", "messagepack", "application/x-msgpack", "application/msgpack":
		return MessagePack, true
	case "yaml", "application/yaml", "application/x-yaml":
		return YAML, true
	case "protobuf", "proto", "application/x-protobuf", "application/protobuf":
		return Protobuf, true
	case "form", "urlencoded", "application/x-www-form-urlencoded":
		return URLEncoded, true
	case "multipart", "multipart/form-data":
		return MultiPart, true
	}
	return JSON, false
}

// Constraints are the declared bounds checked after a value has been coerced
type Constraints struct {
	Gt *float64
	Ge *float64
	Lt *float64
	Le *float64

	MinLength *int
	MaxLength *int
	MinItems  *int
	MaxItems  *int

	Pattern string
}

// IsZero reports whether no constraint is declared
func (c Constraints) IsZero() bool {
	return c.Gt == nil && c.Ge == nil && c.Lt == nil && c.Le == nil &&
		c.MinLength == nil && c.MaxLength == nil && c.MinItems == nil && c.MaxItems == nil &&
		c.Pattern == ""
}

// Kwarg is the marker placed as a parameter default to declare where the value
// comes from and how it is constrained.
type Kwarg struct {
	Source   ParamType
	Alias    string
	Default  any
	Required bool

	Constraints Constraints

	// Body only
	MediaType          RequestEncoding
	MultipartPartLimit int

	// Dependency only
	SkipValidation bool

	Title       string
	Description string
}

// Option configures a Kwarg marker
type Option func(*Kwarg)

func newKwarg(source ParamType, alias string, opts []Option) *Kwarg {
	k := &Kwarg{Source: source, Alias: alias, Default: Empty}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Query declares a query string parameter. An empty alias uses the field name.
func Query(alias string, opts ...Option) *Kwarg {
	return newKwarg(QueryParam, alias, opts)
}

// Header declares a header parameter; the alias is matched case-insensitively.
func Header(alias string, opts ...Option) *Kwarg {
	return newKwarg(HeaderParam, alias, opts)
}

// Cookie declares a cookie parameter
func Cookie(alias string, opts ...Option) *Kwarg {
	return newKwarg(CookieParam, alias, opts)
}

// PathParameter declares a path parameter. The alias is always the field name.
func PathParameter(opts ...Option) *Kwarg {
	return newKwarg(PathParam, "", opts)
}

// Body declares the request body parameter
func Body(opts ...Option) *Kwarg {
	return newKwarg(BodyParam, "", opts)
}

// Dependency declares a parameter supplied by a dependency provider
func Dependency(opts ...Option) *Kwarg {
	return newKwarg(DependencyParam, "", opts)
}

// Default sets the value used when the parameter is absent
func Default(v any) Option {
	return func(k *Kwarg) { k.Default = v }
}

// IsRequired forces the parameter to be present
func IsRequired() Option {
	return func(k *Kwarg) { k.Required = true }
}

func Gt(v float64) Option { return func(k *Kwarg) { k.Constraints.Gt = &v } }
func Ge(v float64) Option { return func(k *Kwarg) { k.Constraints.Ge = &v } }
func Lt(v float64) Option { return func(k *Kwarg) { k.Constraints.Lt = &v } }
func Le(v float64) Option { return func(k *Kwarg) { k.Constraints.Le = &v } }

func MinLength(n int) Option { return func(k *Kwarg) { k.Constraints.MinLength = &n } }
func MaxLength(n int) Option { return func(k *Kwarg) { k.Constraints.MaxLength = &n } }
func MinItems(n int) Option  { return func(k *Kwarg) { k.Constraints.MinItems = &n } }
func MaxItems(n int) Option  { return func(k *Kwarg) { k.Constraints.MaxItems = &n } }

// Pattern requires string values to match the regular expression
func Pattern(expr string) Option {
	return func(k *Kwarg) { k.Constraints.Pattern = expr }
}

// MediaType selects the body decoding strategy
func MediaType(enc RequestEncoding) Option {
	return func(k *Kwarg) { k.MediaType = enc }
}

// MultipartPartLimit overrides the application-wide multipart part limit
func MultipartPartLimit(n int) Option {
	return func(k *Kwarg) { k.MultipartPartLimit = n }
}

// SkipValidation accepts dependency values as-is
func SkipValidation() Option {
	return func(k *Kwarg) { k.SkipValidation = true }
}

func Title(s string) Option       { return func(k *Kwarg) { k.Title = s } }
func Description(s string) Option { return func(k *Kwarg) { k.Description = s } }
