// Package tmpl implements the {{...}} template-block pass: variable
// interpolation plus a small, policy-gated control-flow subset
// (conditionals and loops) in the Handlebars manner.
//
// This pass is a text templater.  It runs before the typed
// placeholder passes and its output is ordinary text; it never
// injects non-string values.
package tmpl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path to a value.
type Lookup func(path string) (interface{}, bool)

// Policy selects which template constructs are enabled.  The exact
// control-flow subset is deliberately configurable; variable
// interpolation is the floor.
type Policy struct {
	Conditionals bool
	Loops        bool
}

// DefaultPolicy enables the whole subset.
var DefaultPolicy = &Policy{
	Conditionals: true,
	Loops:        true,
}

// Render expands the template blocks in src.  It returns the
// rendered text and the number of tags expanded.  A malformed
// template or a construct disabled by policy is an error; the caller
// decides containment.
func Render(src string, lookup Lookup, policy *Policy) (string, int, error) {
	if policy == nil {
		policy = DefaultPolicy
	}
	nodes, err := parse(src, policy)
	if err != nil {
		return "", 0, err
	}
	var buf strings.Builder
	n, err := renderNodes(&buf, nodes, &frame{lookup: lookup})
	if err != nil {
		return "", 0, err
	}
	return buf.String(), n, nil
}

type node struct {
	// Exactly one of these is meaningful.
	text string
	path string    // {{path}}
	cond *condNode // {{#if ...}}
	loop *loopNode // {{#each ...}}
}

type condNode struct {
	path string
	then []*node
	els  []*node
}

type loopNode struct {
	path string
	body []*node
}

// frame is the evaluation scope: the outer lookup plus, inside an
// {{#each}}, the current item and index.
type frame struct {
	lookup Lookup
	item   interface{}
	index  int
	inEach bool
}

func (f *frame) resolve(path string) (interface{}, bool) {
	if f.inEach {
		if path == "this" {
			return f.item, true
		}
		if path == "@index" {
			return float64(f.index), true
		}
		if rest, is := cutPrefix(path, "this."); is {
			return lookupIn(f.item, rest)
		}
	}
	return f.lookup(path)
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func lookupIn(root interface{}, path string) (interface{}, bool) {
	current := root
	for _, seg := range strings.Split(path, ".") {
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

// parse splits src into nodes, matching up block open/close tags.
func parse(src string, policy *Policy) ([]*node, error) {
	type scope struct {
		nodes  []*node
		cond   *condNode
		loop   *loopNode
		inElse bool
	}
	var (
		stack = []*scope{{}}
		top   = func() *scope { return stack[len(stack)-1] }
		emit  = func(n *node) {
			s := top()
			switch {
			case s.cond != nil && s.inElse:
				s.cond.els = append(s.cond.els, n)
			case s.cond != nil:
				s.cond.then = append(s.cond.then, n)
			case s.loop != nil:
				s.loop.body = append(s.loop.body, n)
			default:
				s.nodes = append(s.nodes, n)
			}
		}
	)

	for {
		open := strings.Index(src, "{{")
		if open < 0 {
			break
		}
		close := strings.Index(src[open:], "}}")
		if close < 0 {
			break
		}
		if 0 < open {
			emit(&node{text: src[:open]})
		}
		tag := strings.TrimSpace(src[open+2 : open+close])
		src = src[open+close+2:]

		switch {
		case strings.HasPrefix(tag, "#if "):
			if !policy.Conditionals {
				return nil, errors.New("template conditionals are disabled")
			}
			stack = append(stack, &scope{cond: &condNode{path: strings.TrimSpace(tag[4:])}})
		case tag == "else":
			s := top()
			if s.cond == nil || s.inElse {
				return nil, errors.New("unexpected {{else}}")
			}
			s.inElse = true
		case tag == "/if":
			s := top()
			if s.cond == nil {
				return nil, errors.New("unexpected {{/if}}")
			}
			stack = stack[:len(stack)-1]
			emit(&node{cond: s.cond})
		case strings.HasPrefix(tag, "#each "):
			if !policy.Loops {
				return nil, errors.New("template loops are disabled")
			}
			stack = append(stack, &scope{loop: &loopNode{path: strings.TrimSpace(tag[6:])}})
		case tag == "/each":
			s := top()
			if s.loop == nil {
				return nil, errors.New("unexpected {{/each}}")
			}
			stack = stack[:len(stack)-1]
			emit(&node{loop: s.loop})
		case strings.HasPrefix(tag, "#"):
			return nil, fmt.Errorf("unknown template helper '%s'", tag)
		case tag == "":
			return nil, errors.New("empty template tag")
		default:
			emit(&node{path: tag})
		}
	}
	if src != "" {
		emit(&node{text: src})
	}
	if 1 < len(stack) {
		return nil, errors.New("unclosed template block")
	}
	return stack[0].nodes, nil
}

func renderNodes(buf *strings.Builder, nodes []*node, f *frame) (int, error) {
	count := 0
	for _, n := range nodes {
		switch {
		case n.path != "":
			v, found := f.resolve(n.path)
			if found {
				buf.WriteString(stringify(v))
			}
			count++
		case n.cond != nil:
			v, found := f.resolve(n.cond.path)
			body := n.cond.els
			if found && truthy(v) {
				body = n.cond.then
			}
			m, err := renderNodes(buf, body, f)
			if err != nil {
				return count, err
			}
			count += m + 1
		case n.loop != nil:
			v, _ := f.resolve(n.loop.path)
			items, _ := v.([]interface{})
			for i, item := range items {
				inner := &frame{lookup: f.lookup, item: item, index: i, inEach: true}
				m, err := renderNodes(buf, n.loop.body, inner)
				if err != nil {
					return count, err
				}
				count += m
			}
			count++
		default:
			buf.WriteString(n.text)
		}
	}
	return count, nil
}

// truthy is Handlebars-style truthiness, used only by this text
// pass.  The typed ${...} language has no implicit coercion.
func truthy(x interface{}) bool {
	switch vv := x.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case float64:
		return vv != 0
	case []interface{}:
		return 0 < len(vv)
	case map[string]interface{}:
		return 0 < len(vv)
	default:
		return true
	}
}

func stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
