package kwargs

// ParameterDefinition is the immutable description of one declared handler
// parameter.
type ParameterDefinition struct {
	FieldName    string
	FieldAlias   string
	ParamType    ParamType
	Annotation   Annotation
	DefaultValue any
	IsRequired   bool
	IsSequence   bool
	Constraints  Constraints

	// Body only
	MediaType          RequestEncoding
	MultipartPartLimit int

	SkipValidation bool
	Title          string
	Description    string
}

// HasDefault reports whether a concrete default value was declared
func (d ParameterDefinition) HasDefault() bool {
	return !IsEmpty(d.DefaultValue)
}

// NewParameterDefinition derives a definition from a field name, its
// annotation and its marker. A nil marker means no explicit source.
func NewParameterDefinition(name string, annotation Annotation, source ParamType, marker *Kwarg) ParameterDefinition {
	def := ParameterDefinition{
		FieldName:    name,
		FieldAlias:   name,
		ParamType:    source,
		Annotation:   annotation,
		DefaultValue: Empty,
		IsSequence:   annotation.IsSequence(),
	}
	if marker != nil {
		if marker.Alias != "" {
			def.FieldAlias = marker.Alias
		}
		if marker.Default != nil {
			def.DefaultValue = marker.Default
		}
		def.Constraints = marker.Constraints
		def.MediaType = marker.MediaType
		def.MultipartPartLimit = marker.MultipartPartLimit
		def.SkipValidation = marker.SkipValidation
		def.Title = marker.Title
		def.Description = marker.Description
	}
	if _, forced := def.DefaultValue.(requiredType); forced || (marker != nil && marker.Required) {
		def.IsRequired = true
		def.DefaultValue = Required
	} else {
		def.IsRequired = IsEmpty(def.DefaultValue) && !annotation.IsOptional() && !annotation.IsAny()
	}
	return def
}

// WithDefault returns a copy of d using v as its default value
func (d ParameterDefinition) WithDefault(v any) ParameterDefinition {
	d.DefaultValue = v
	d.IsRequired = IsEmpty(v) && !d.Annotation.IsOptional() && !d.Annotation.IsAny()
	if _, forced := v.(requiredType); forced {
		d.IsRequired = true
	}
	return d
}
