package vellum

import (
	"errors"
	"fmt"
	"strings"
)

// Context travels through a nested encode/decode call tree. It accumulates
// the diagnostic path (field names, element indices, map keys, variant
// discriminants) and decides what happens on error: fail fast (default) or
// collect recoverable diagnostics and keep going.
//
// A Context belongs to a single call; it is never shared across concurrent
// encodes or decodes.
type Context struct {
	path      []string
	depth     int
	maxDepth  int
	collect   bool
	collected []error
}

func newContext(maxDepth int, collect bool) *Context {
	return &Context{maxDepth: maxDepth, collect: collect}
}

func (c *Context) pushField(name string) {
	c.path = append(c.path, "."+name)
}

func (c *Context) pushIndex(i int) {
	c.path = append(c.path, fmt.Sprintf("[%d]", i))
}

func (c *Context) pushKey(k string) {
	c.path = append(c.path, fmt.Sprintf("[%q]", k))
}

func (c *Context) pushVariant(disc uint64) {
	c.path = append(c.path, fmt.Sprintf(":%d", disc))
}

func (c *Context) pop() {
	c.path = c.path[:len(c.path)-1]
}

// enter guards one level of composite recursion. Depth tracks nesting of the
// data, not the schema, so this is the policy hook against pathological
// deeply-nested input.
func (c *Context) enter() error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return c.fail(fmt.Errorf("%w: %d", ErrMaxDepth, c.maxDepth))
	}
	return nil
}

func (c *Context) leave() {
	c.depth--
}

func (c *Context) pathString() string {
	if len(c.path) == 0 {
		return ""
	}
	return strings.TrimPrefix(strings.Join(c.path, ""), ".")
}

// fail wraps err with the current path. Errors already carrying a path pass
// through unchanged so the innermost location wins.
func (c *Context) fail(err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	return &Error{Path: c.pathString(), Err: err}
}

// note records a locally-recovered condition as a diagnostic in collect
// mode. Outside collect mode the condition is handled in place and never
// surfaces.
func (c *Context) note(err error) {
	if err == nil || !c.collect {
		return
	}
	c.collected = append(c.collected, c.fail(err))
}

// finish merges collected diagnostics into the terminal result.
func (c *Context) finish(err error) error {
	if err != nil {
		return c.fail(err)
	}
	if len(c.collected) > 0 {
		return errors.Join(c.collected...)
	}
	return nil
}
