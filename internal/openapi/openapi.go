// Package openapi describes compiled handler signatures as OpenAPI 3 operations
package openapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/swaggest/openapi-go/openapi3"

	"github.com/toyz/kwargs/internal/signature"
	"github.com/toyz/kwargs/pkg/kwargs"
)

// Route is one registered handler
type Route struct {
	Method  string
	Path    kwargs.RoutePath
	Summary string
	Model   *signature.Model
}

// NewSpec creates an empty document
func NewSpec(title, version string) *openapi3.Spec {
	return &openapi3.Spec{
		Openapi: "3.0.3",
		Info:    openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.Paths{MapOfPathItemValues: map[string]openapi3.PathItem{}},
	}
}

// Document builds a document describing routes
func Document(title, version string, routes []Route) *openapi3.Spec {
	spec := NewSpec(title, version)
	for _, r := range routes {
		AddOperation(spec, r.Method, r.Path, Operation(r))
	}
	return spec
}

// AddOperation stores op under the templated path and lower-cased method
func AddOperation(spec *openapi3.Spec, method string, path kwargs.RoutePath, op openapi3.Operation) {
	key := TemplatePath(path)
	item := spec.Paths.MapOfPathItemValues[key]
	if item.MapOfOperationValues == nil {
		item.MapOfOperationValues = map[string]openapi3.Operation{}
	}
	item.MapOfOperationValues[strings.ToLower(method)] = op
	spec.Paths.MapOfPathItemValues[key] = item
}

// TemplatePath drops placeholder types: /users/{id:int} becomes /users/{id}
func TemplatePath(path kwargs.RoutePath) string {
	var b strings.Builder
	for _, part := range path.Parts() {
		switch part.Kind {
		case kwargs.ParameterPart:
			b.WriteString("{" + part.Value + "}")
		case kwargs.WildcardPart:
			b.WriteString("{wildcard}")
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// Operation describes the parameters, body and default response of one route
func Operation(r Route) openapi3.Operation {
	op := openapi3.Operation{
		Responses: openapi3.Responses{MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{}},
	}
	if r.Summary != "" {
		op.WithSummary(r.Summary)
	}
	if r.Model != nil {
		op.WithID(r.Model.Name())
		for _, def := range r.Model.Fields() {
			switch def.ParamType {
			case kwargs.PathParam, kwargs.QueryParam, kwargs.HeaderParam, kwargs.CookieParam:
				op.Parameters = append(op.Parameters, openapi3.ParameterOrRef{Parameter: parameter(def)})
			case kwargs.BodyParam:
				if op.RequestBody == nil {
					op.RequestBody = &openapi3.RequestBodyOrRef{RequestBody: requestBody(def)}
				}
			}
		}
	}

	status := kwargs.DefaultStatusCode(r.Method)
	response := openapi3.Response{Description: http.StatusText(status)}
	if r.Model != nil && status != http.StatusNoContent {
		if t := r.Model.ReturnType(); t != nil && t != responseType {
			response.Content = map[string]openapi3.MediaType{
				"application/json": {Schema: schemaOrRef(TypeSchema(t))},
			}
		}
	}
	op.Responses.MapOfResponseOrRefValues[strconv.Itoa(status)] = openapi3.ResponseOrRef{Response: &response}

	failure := openapi3.Response{Description: "Validation failed"}
	failure.Content = map[string]openapi3.MediaType{
		"application/json": {Schema: schemaOrRef(TypeSchema(httpErrorType))},
	}
	op.Responses.MapOfResponseOrRefValues[strconv.Itoa(http.StatusBadRequest)] = openapi3.ResponseOrRef{Response: &failure}
	return op
}

func parameter(def kwargs.ParameterDefinition) *openapi3.Parameter {
	p := &openapi3.Parameter{Name: def.FieldAlias, In: parameterIn(def.ParamType)}
	p.WithRequired(def.IsRequired || def.ParamType == kwargs.PathParam)
	if def.Description != "" {
		p.WithDescription(def.Description)
	}
	p.Schema = schemaOrRef(DefinitionSchema(def))
	return p
}

func parameterIn(source kwargs.ParamType) openapi3.ParameterIn {
	switch source {
	case kwargs.PathParam:
		return openapi3.ParameterInPath
	case kwargs.HeaderParam:
		return openapi3.ParameterInHeader
	case kwargs.CookieParam:
		return openapi3.ParameterInCookie
	default:
		return openapi3.ParameterInQuery
	}
}

func requestBody(def kwargs.ParameterDefinition) *openapi3.RequestBody {
	body := &openapi3.RequestBody{
		Content: map[string]openapi3.MediaType{
			def.MediaType.String(): {Schema: schemaOrRef(DefinitionSchema(def))},
		},
	}
	body.WithRequired(def.IsRequired)
	if def.Description != "" {
		body.WithDescription(def.Description)
	}
	return body
}

func schemaOrRef(s *openapi3.Schema) *openapi3.SchemaOrRef {
	return &openapi3.SchemaOrRef{Schema: s}
}
