package kwargs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HttpError represents an HTTP error with a specific status code and message
type HttpError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NewHttpError creates a new HttpError with the given status code and message
func NewHttpError(statusCode int, message string) *HttpError {
	return &HttpError{StatusCode: statusCode, Message: message}
}

// NewHttpErrorWithDetails creates a new HttpError with additional details
func NewHttpErrorWithDetails(statusCode int, message string, details any) *HttpError {
	return &HttpError{StatusCode: statusCode, Message: message, Details: details}
}

// ErrBadRequest creates a 400 Bad Request error
func ErrBadRequest(message string) *HttpError {
	return NewHttpError(http.StatusBadRequest, message)
}

// ErrNotFound creates a 404 Not Found error
func ErrNotFound(message string) *HttpError {
	return NewHttpError(http.StatusNotFound, message)
}

// ErrInternalServerError creates a 500 Internal Server Error
func ErrInternalServerError(message string) *HttpError {
	return NewHttpError(http.StatusInternalServerError, message)
}

// FailureKind classifies a single field failure
type FailureKind int

const (
	MissingRequiredParameter FailureKind = iota
	CoercionFailure
	ConstraintViolation
	DependencyValidationFailure
	TooManyMultipartParts
)

// String returns the string representation of the failure kind
func (k FailureKind) String() string {
	switch k {
	case MissingRequiredParameter:
		return "MissingRequiredParameter"
	case CoercionFailure:
		return "CoercionFailure"
	case ConstraintViolation:
		return "ConstraintViolation"
	case DependencyValidationFailure:
		return "DependencyValidationFailure"
	case TooManyMultipartParts:
		return "TooManyMultipartParts"
	default:
		return "Unknown"
	}
}

// MarshalText renders the kind by name on the wire
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsClientError reports whether the kind is caused by client input
func (k FailureKind) IsClientError() bool {
	return k != DependencyValidationFailure
}

// ErrorMessage is one field's failure
type ErrorMessage struct {
	Key     string      `json:"key"`
	Message string      `json:"message"`
	Kind    FailureKind `json:"kind"`
}

// ValidationError is the aggregated failure report of one request
type ValidationError struct {
	Method string
	URL    string

	// Failures is the client-visible list in declaration order
	Failures []ErrorMessage

	// DependencyFailures are kept for logging and never sent on the wire
	DependencyFailures []ErrorMessage

	// Server is set when every failure came from a dependency
	Server bool
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Server {
		fmt.Fprintf(&b, "A dependency failed validation for %s %s", e.Method, e.URL)
	} else {
		fmt.Fprintf(&b, "Validation failed for %s %s", e.Method, e.URL)
	}
	for _, list := range [][]ErrorMessage{e.Failures, e.DependencyFailures} {
		for _, f := range list {
			fmt.Fprintf(&b, "\n  %s: %s (%s)", f.Key, f.Message, f.Kind)
		}
	}
	return b.String()
}

// StatusCode returns 500 for dependency failures and 400 otherwise
func (e *ValidationError) StatusCode() int {
	if e.Server {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// HTTPError returns the wire form of the error
func (e *ValidationError) HTTPError() *HttpError {
	if e.Server {
		return ErrInternalServerError(fmt.Sprintf("A dependency failed validation for %s %s", e.Method, e.URL))
	}
	return NewHttpErrorWithDetails(http.StatusBadRequest,
		fmt.Sprintf("Validation failed for %s %s", e.Method, e.URL), e.Failures)
}

// Keys returns the keys of all client-visible failures
func (e *ValidationError) Keys() []string {
	keys := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		keys[i] = f.Key
	}
	return keys
}

// ConfigurationError is raised while building a signature model. It is fatal.
type ConfigurationError struct {
	Handler string
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Handler == "" {
		return "improperly configured: " + e.Message
	}
	return fmt.Sprintf("improperly configured handler %s: %s", e.Handler, e.Message)
}

// NewConfigurationError creates a ConfigurationError with a formatted message
func NewConfigurationError(handler, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Handler: handler, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// AsHttpError converts any error into its wire form. Unknown errors become an
// opaque 500.
func AsHttpError(err error) *HttpError {
	var he *HttpError
	if errors.As(err, &he) {
		return he
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.HTTPError()
	}
	return ErrInternalServerError(http.StatusText(http.StatusInternalServerError))
}
