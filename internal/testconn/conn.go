// Package testconn provides an in-memory kwargs.Connection for tests
package testconn

import (
	"context"
	"mime"
	"net/url"
	"sync/atomic"

	"github.com/toyz/kwargs/pkg/kwargs"
)

// Conn is an in-memory connection that counts body reads
type Conn struct {
	ctx     context.Context
	method  string
	url     *url.URL
	headers []kwargs.HeaderPair
	cookies map[string]string
	params  map[string]string
	body    []byte
	state   *kwargs.State
	cache   *kwargs.RequestCache

	// BeforeRead runs before each body read; returning an error fails the read
	BeforeRead func(ctx context.Context) error

	reads atomic.Int32
}

// New creates a connection for method and target, which may carry a query string
func New(method, target string) *Conn {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: target}
	}
	return &Conn{
		ctx:     context.Background(),
		method:  method,
		url:     u,
		cookies: map[string]string{},
		params:  map[string]string{},
		state:   kwargs.NewState(nil),
		cache:   kwargs.NewRequestCache(),
	}
}

// WithContext sets the request context
func (c *Conn) WithContext(ctx context.Context) *Conn {
	c.ctx = ctx
	return c
}

// WithHeader appends a raw header
func (c *Conn) WithHeader(name, value string) *Conn {
	c.headers = append(c.headers, kwargs.HeaderPair{Name: name, Value: value})
	return c
}

// WithCookie sets a cookie
func (c *Conn) WithCookie(name, value string) *Conn {
	c.cookies[name] = value
	return c
}

// WithPathParam sets a matched path parameter
func (c *Conn) WithPathParam(name, value string) *Conn {
	c.params[name] = value
	return c
}

// WithBody sets the body and its content type
func (c *Conn) WithBody(contentType string, body []byte) *Conn {
	c.body = body
	return c.WithHeader("Content-Type", contentType)
}

// WithState replaces the application state
func (c *Conn) WithState(state *kwargs.State) *Conn {
	c.state = state
	return c
}

// Reads returns how many times the transport body was read
func (c *Conn) Reads() int {
	return int(c.reads.Load())
}

func (c *Conn) Context() context.Context { return c.ctx }
func (c *Conn) Method() string { return c.method }
func (c *Conn) URL() *url.URL { return c.url }
func (c *Conn) Headers() []kwargs.HeaderPair { return c.headers }
func (c *Conn) QueryString() []byte { return []byte(c.url.RawQuery) }
func (c *Conn) Cookies() map[string]string { return c.cookies }
func (c *Conn) PathParams() map[string]string { return c.params }
func (c *Conn) Cache() *kwargs.RequestCache { return c.cache }
func (c *Conn) State() *kwargs.State { return c.state }

func (c *Conn) ReadBody(ctx context.Context) ([]byte, error) {
	c.reads.Add(1)
	if c.BeforeRead != nil {
		if err := c.BeforeRead(ctx); err != nil {
			return nil, err
		}
	}
	return c.body, nil
}

func (c *Conn) ContentType() (string, map[string]string) {
	for _, h := range c.headers {
		if h.Name == "Content-Type" {
			mediaType, params, err := mime.ParseMediaType(h.Value)
			if err != nil {
				return h.Value, map[string]string{}
			}
			return mediaType, params
		}
	}
	return "", map[string]string{}
}
