package kwargs

import (
	"net/http"
	"time"
)

// Response represents an HTTP response with custom status code and body.
// Handlers return it when they need to control the status code, headers or
// media type; any other return value is translated into one.
//
// Example usage:
//
//	func createUser(kw kwargs.Kwargs) (any, error) {
//		return kwargs.Created(user), nil
//	}
type Response struct {
	// StatusCode is the HTTP status code; zero selects the method default
	StatusCode int `json:"-"`

	// Body is encoded according to MediaType. []byte and string bodies are written as-is.
	Body any `json:"body,omitempty"`

	Headers   map[string]string `json:"-"`
	Cookies   []ResponseCookie  `json:"-"`
	MediaType string            `json:"-"`
}

// NewResponse creates a new Response with the specified status code and body
func NewResponse(statusCode int, body any) *Response {
	return &Response{StatusCode: statusCode, Body: body}
}

// OK creates a 200 OK response with the given body
func OK(body any) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created creates a 201 Created response with the given body
func Created(body any) *Response {
	return NewResponse(http.StatusCreated, body)
}

// NoContent creates a 204 No Content response
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// WithHeader sets a response header and returns the response
func (r *Response) WithHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// WithCookie appends a cookie and returns the response
func (r *Response) WithCookie(c ResponseCookie) *Response {
	r.Cookies = append(r.Cookies, c)
	return r
}

// ResponseCookie represents an HTTP cookie set on a response
type ResponseCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// HTTP converts the cookie to its net/http form
func (c ResponseCookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
}

// DefaultStatusCode returns the status used when a handler does not choose one
func DefaultStatusCode(method string) int {
	switch method {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}
