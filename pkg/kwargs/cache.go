package kwargs

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RequestCache is the request-scoped cache slot of a connection. Each slot is
// populated once; the first successful writer wins and later readers observe
// its value. A RequestCache must never be shared across requests.
type RequestCache struct {
	query   slot[[]QueryPair]
	headers slot[Headers]
	body    slot[[]byte]
	form    slot[*Form]

	mu     sync.RWMutex
	values map[string]any
}

// NewRequestCache creates an empty cache
func NewRequestCache() *RequestCache {
	return &RequestCache{}
}

// Query returns the parsed query pairs, parsing them on first use
func (c *RequestCache) Query(parse func() []QueryPair) []QueryPair {
	return c.query.sync(parse)
}

// Headers returns the parsed headers, parsing them on first use
func (c *RequestCache) Headers(parse func() Headers) Headers {
	return c.headers.sync(parse)
}

// Body returns the raw body. read is invoked at most once per request unless
// the in-flight read was cancelled, in which case a live caller retries.
func (c *RequestCache) Body(ctx context.Context, read func(context.Context) ([]byte, error)) ([]byte, error) {
	return c.body.load(ctx, read)
}

// Form returns the parsed form body, parsing it on first use
func (c *RequestCache) Form(ctx context.Context, parse func(context.Context) (*Form, error)) (*Form, error) {
	return c.form.load(ctx, parse)
}

// BodyCached reports whether the body has been read
func (c *RequestCache) BodyCached() bool {
	_, ok := c.body.peek()
	return ok
}

// Get returns a value stored in the scope
func (c *RequestCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value in the scope
func (c *RequestCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

type slot[T any] struct {
	mu     sync.Mutex
	value  T
	filled bool
	flight singleflight.Group
}

func (s *slot[T]) peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.filled
}

// store keeps the first value written and returns the winner
func (s *slot[T]) store(v T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filled {
		s.value, s.filled = v, true
	}
	return s.value
}

func (s *slot[T]) sync(fill func() T) T {
	if v, ok := s.peek(); ok {
		return v
	}
	return s.store(fill())
}

func (s *slot[T]) load(ctx context.Context, fill func(context.Context) (T, error)) (T, error) {
	var zero T
	retried := false
	for {
		if v, ok := s.peek(); ok {
			return v, nil
		}
		ch := s.flight.DoChan("fill", func() (any, error) {
			if v, ok := s.peek(); ok {
				return v, nil
			}
			v, err := fill(ctx)
			if err != nil {
				return nil, err
			}
			return s.store(v), nil
		})
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(T), nil
			}
			// the leader's request went away; nothing was stored so a live caller may retry
			if isCancellation(res.Err) && ctx.Err() == nil && !retried {
				retried = true
				continue
			}
			return zero, res.Err
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
