// Package bind implements path resolution against the layered
// namespaces and the placeholder passes that rewrite a card tree.
package bind

import (
	"strconv"
	"strings"
)

// Namespaces, in precedence order for unqualified lookups.
var namespaces = []string{"payload", "session", "state", "params"}

// Context is the lookup surface for one render: four namespaces
// merged with fixed precedence.  A Context is immutable for the
// duration of the render.
type Context struct {
	Payload map[string]interface{}
	Session map[string]interface{}
	State   map[string]interface{}
	Params  map[string]interface{}
}

// NewContext builds a Context from raw trees.  Anything that isn't
// an object becomes an empty namespace.
func NewContext(payload, session, state interface{}, params map[string]interface{}) *Context {
	if params == nil {
		params = map[string]interface{}{}
	}
	return &Context{
		Payload: asObject(payload),
		Session: asObject(session),
		State:   asObject(state),
		Params:  params,
	}
}

func asObject(x interface{}) map[string]interface{} {
	if m, is := x.(map[string]interface{}); is {
		return m
	}
	return map[string]interface{}{}
}

func (c *Context) namespace(name string) (map[string]interface{}, bool) {
	switch name {
	case "payload":
		return c.Payload, true
	case "session":
		return c.Session, true
	case "state":
		return c.State, true
	case "params", "template":
		return c.Params, true
	}
	return nil, false
}

// Resolve looks up a dotted path (array indexes as .N or [N]).
//
// A path starting with a namespace name addresses that namespace
// directly.  Otherwise the namespaces are tried in precedence order
// and the first one in which the full path resolves wins.  The
// boolean reports whether the path resolved at all; a missing key and
// an out-of-range index are both just "not found", never an error.
func (c *Context) Resolve(path string) (interface{}, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	if ns, is := c.namespace(segs[0]); is {
		return lookupIn(ns, segs[1:])
	}
	for _, name := range namespaces {
		ns, _ := c.namespace(name)
		if v, found := lookupIn(ns, segs); found {
			return v, true
		}
	}
	return nil, false
}

// splitPath normalizes a.b[0].c to ["a" "b" "0" "c"].
func splitPath(path string) []string {
	normalized := strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(normalized, ".")
	segs := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

func lookupIn(root interface{}, segs []string) (interface{}, bool) {
	current := root
	for _, seg := range segs {
		switch vv := current.(type) {
		case map[string]interface{}:
			next, have := vv[seg]
			if !have {
				return nil, false
			}
			current = next
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || len(vv) <= i {
				return nil, false
			}
			current = vv[i]
		default:
			return nil, false
		}
	}
	return current, true
}
