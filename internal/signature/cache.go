package signature

import (
	"reflect"
	"sync"
)

// Key identifies a handler. Handler is the function's code pointer and Route
// disambiguates one function mounted on several routes.
type Key struct {
	Handler uintptr
	Route   string
}

// KeyOf derives the key of a handler function
func KeyOf(handler any, route string) Key {
	var ptr uintptr
	if v := reflect.ValueOf(handler); v.Kind() == reflect.Func && !v.IsNil() {
		ptr = v.Pointer()
	}
	return Key{Handler: ptr, Route: route}
}

// Cache memoizes models per handler. Concurrent first uses may build twice;
// the last write wins and both results are equivalent.
type Cache struct {
	items map[Key]*Model
	mutex sync.RWMutex
}

// NewCache creates an empty model cache
func NewCache() *Cache {
	return &Cache{items: make(map[Key]*Model)}
}

// Get retrieves a model from the cache
func (c *Cache) Get(key Key) (*Model, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	m, ok := c.items[key]
	return m, ok
}

// Set stores a model in the cache
func (c *Cache) Set(key Key, m *Model) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = m
}

// GetOrBuild returns the cached model or builds and stores a new one
func (c *Cache) GetOrBuild(key Key, build func() (*Model, error)) (*Model, error) {
	if m, ok := c.Get(key); ok {
		return m, nil
	}
	m, err := build()
	if err != nil {
		return nil, err
	}
	c.Set(key, m)
	return m, nil
}

// Delete removes a model from the cache
func (c *Cache) Delete(key Key) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Size returns the number of cached models
func (c *Cache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}
