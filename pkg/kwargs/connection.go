package kwargs

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// Connection is the read-only view of one inbound request consumed by the
// extraction pipeline. Implementations live in the adapters package.
type Connection interface {
	// Context is the request context; it is cancelled when the request ends.
	Context() context.Context

	Method() string
	URL() *url.URL

	// Headers returns the raw header pairs in arrival order.
	Headers() []HeaderPair
	QueryString() []byte
	Cookies() map[string]string
	PathParams() map[string]string

	// ReadBody performs a size-bounded read of the transport body. The pipeline
	// calls it at most once per request through Cache().
	ReadBody(ctx context.Context) ([]byte, error)

	// ContentType returns the media type and its parameters.
	ContentType() (string, map[string]string)

	// Cache is the request-scoped cache slot. It must not be shared across requests.
	Cache() *RequestCache

	// State is the application state.
	State() *State
}

// HeaderPair is a single raw header line
type HeaderPair struct {
	Name  string
	Value string
}

// Headers maps lower-cased header names to their values in arrival order
type Headers map[string][]string

// Get returns the first value for name, matched case-insensitively
func (h Headers) Get(name string) string {
	if values := h[strings.ToLower(name)]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Values returns all values for name
func (h Headers) Values(name string) []string {
	return h[strings.ToLower(name)]
}

// Has reports whether the header was sent
func (h Headers) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// QueryPair is one key/value pair of the query string in arrival order
type QueryPair struct {
	Key   string
	Value string
}

// Kwargs maps field names to values. Before validation values are raw wire
// values or Deferred computations; after validation they are typed.
type Kwargs map[string]any

// Deferred is a body-derived value that is resolved during validation
type Deferred func(ctx context.Context) (any, error)

// State is the application state shared by all requests
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates a state holding a copy of initial
func NewState(initial map[string]any) *State {
	s := &State{values: make(map[string]any, len(initial))}
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

// Get returns the value stored under key
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// Delete removes key
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Copy returns a snapshot of the state
func (s *State) Copy() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// FilePath is a path-like value wrapped from its string form
type FilePath string

// String returns the path
func (p FilePath) String() string {
	return string(p)
}
