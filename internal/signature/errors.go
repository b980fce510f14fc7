package signature

import (
	"fmt"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// aggregator collects field failures of one request in declaration order
type aggregator struct {
	model  *Model
	method string
	url    string

	client     []kwargs.ErrorMessage
	dependency []kwargs.ErrorMessage
}

func newAggregator(m *Model, conn kwargs.Connection) *aggregator {
	a := &aggregator{model: m}
	if conn != nil {
		a.method = conn.Method()
		if u := conn.URL(); u != nil {
			a.url = u.String()
		}
	}
	return a
}

func (a *aggregator) add(name string, kind kwargs.FailureKind, message string) {
	if a.model.IsDependency(name) {
		a.dependency = append(a.dependency, kwargs.ErrorMessage{Key: name, Message: message, Kind: kwargs.DependencyValidationFailure})
		return
	}
	a.client = append(a.client, kwargs.ErrorMessage{Key: name, Message: message, Kind: kind})
}

func (a *aggregator) missing(def kwargs.ParameterDefinition) {
	a.add(def.FieldName, kwargs.MissingRequiredParameter,
		fmt.Sprintf("Missing required parameter %s for url %s", def.FieldAlias, a.url))
}

func (a *aggregator) empty() bool {
	return len(a.client) == 0 && len(a.dependency) == 0
}

// err classifies the collected failures. Any client failure makes the request
// a client error carrying only client failures; dependency failures alone make
// it a server error.
func (a *aggregator) err() *kwargs.ValidationError {
	if a.empty() {
		return nil
	}
	return &kwargs.ValidationError{
		Method:             a.method,
		URL:                a.url,
		Failures:           a.client,
		DependencyFailures: a.dependency,
		Server:             len(a.client) == 0,
	}
}
