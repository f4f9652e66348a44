package model

import "reflect"

// Context is a type-indexed bag of auxiliary data handed to Score.
// Models may read from it; only the caller populates it.
type Context struct {
	vals map[reflect.Type]any
}

// NewContext returns an empty Context.
func NewContext() *Context { return &Context{vals: make(map[reflect.Type]any)} }

// Put stores v under its static type T, replacing any previous value.
func Put[T any](c *Context, v T) {
	if c.vals == nil {
		c.vals = make(map[reflect.Type]any)
	}
	c.vals[reflect.TypeFor[T]()] = v
}

// Get returns the value stored under T. A nil Context holds nothing.
func Get[T any](c *Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.vals[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}
