package bind

import (
	"sort"
	"strconv"
	"strings"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/expr"
	"github.com/flowcard/flowcard/tmpl"
)

// Summary counts what the placeholder passes did during one render.
// It feeds telemetry; nothing in the pipeline branches on it.
type Summary struct {
	TemplateExpansions      int `json:"templateExpansions"`
	PlaceholderReplacements int `json:"placeholderReplacements"`
	ExpressionEvaluations   int `json:"expressionEvaluations"`
	MissingPaths            int `json:"missingPaths"`
}

// Render walks the card tree and rewrites its string leaves: first
// the {{...}} template pass, then whole-string @{...} replacement,
// then ${...} expression evaluation, with embedded tokens handled as
// text substitution.  The input tree is never mutated; the result is
// a new tree.
//
// Failures are contained to their leaves: a bad expression degrades
// that leaf to null and records a diagnostic, and the rest of the
// tree still renders.
func Render(tree interface{}, ctx *Context, policy *tmpl.Policy) (interface{}, []card.Issue, Summary) {
	r := &renderer{ctx: ctx, policy: policy}
	out := r.walk(tree, "")
	return out, r.diags, r.summary
}

type renderer struct {
	ctx     *Context
	policy  *tmpl.Policy
	diags   []card.Issue
	summary Summary
}

func (r *renderer) diag(code, message, path string) {
	r.diags = append(r.diags, card.Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: card.Warning,
	})
}

// walk visits nodes in document order.  Object keys are visited
// sorted so diagnostics come out deterministically.
func (r *renderer) walk(x interface{}, path string) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			m[k] = r.walk(vv[k], path+"/"+k)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(vv))
		for i, y := range vv {
			s[i] = r.walk(y, path+"/"+strconv.Itoa(i))
		}
		return s
	case string:
		return r.leaf(vv, path)
	default:
		return x
	}
}

// leaf applies the three passes, in order, to one string.  Each
// pass's output feeds the next, and no pass re-scans its own output.
func (r *renderer) leaf(s, path string) interface{} {
	// Pass 1: template blocks.
	if strings.Contains(s, "{{") {
		rendered, n, err := tmpl.Render(s, r.ctx.Resolve, r.policy)
		if err != nil {
			r.diag("template-error", err.Error(), path)
		} else {
			s = rendered
			r.summary.TemplateExpansions += n
		}
	}

	// Pass 2: whole-string @{path} replacement, typed.
	if inner, is := wholeToken(s, "@{"); is {
		r.summary.PlaceholderReplacements++
		return r.replaceRef(inner, path)
	}

	// Pass 3: whole-string ${expr} evaluation, typed.
	if inner, is := wholeToken(s, "${"); is {
		r.summary.ExpressionEvaluations++
		return r.evalExpr(inner, path)
	}

	// Embedded tokens are text substitution only.
	if strings.Contains(s, "@{") || strings.Contains(s, "${") {
		in := expr.ParseInterp(s)
		out, misses := expr.EvalInterp(in, r.ctx)
		for _, miss := range misses {
			if miss.Err != nil {
				r.diag(codeFor(miss.Err), miss.Err.Error(), path)
			} else {
				r.summary.MissingPaths++
				r.diag("missing-path", "no value at '"+miss.Path+"'", path)
			}
		}
		r.summary.PlaceholderReplacements++
		return out
	}

	return s
}

// replaceRef handles a whole-string @{path||default}: the leaf takes
// the resolved value's native type, so a placeholder can inject a
// whole sub-object.
func (r *renderer) replaceRef(inner, path string) interface{} {
	n, err := expr.Parse(inner)
	if err != nil {
		r.diag(codeFor(err), err.Error(), path)
		return nil
	}
	ref, is := n.(*expr.Ref)
	if !is {
		r.diag("expression-parse-error", "'"+inner+"' is not a path reference", path)
		return nil
	}
	v, err := expr.Eval(ref, r.ctx)
	if err != nil {
		r.diag(codeFor(err), err.Error(), path)
		return nil
	}
	if expr.IsAbsent(v) {
		r.summary.MissingPaths++
		r.diag("missing-path", "no value at '"+ref.Path+"'", path)
		return nil
	}
	return card.Copy(v)
}

// evalExpr handles a whole-string ${expr}.  A parse or type failure
// degrades the leaf to null with a diagnostic; it never aborts the
// render.
func (r *renderer) evalExpr(inner, path string) interface{} {
	n, err := expr.Parse(inner)
	if err != nil {
		r.diag(codeFor(err), err.Error(), path)
		return nil
	}
	v, err := expr.Eval(n, r.ctx)
	if err != nil {
		r.diag(codeFor(err), err.Error(), path)
		return nil
	}
	if expr.IsAbsent(v) {
		r.summary.MissingPaths++
		r.diag("missing-path", "no value at '"+strings.TrimSpace(inner)+"'", path)
		return nil
	}
	return card.Copy(v)
}

func codeFor(err error) string {
	switch err.(type) {
	case *expr.ParseError:
		return "expression-parse-error"
	case *expr.TypeError:
		return "expression-type-error"
	default:
		return "expression-error"
	}
}

// wholeToken reports whether the trimmed string is exactly one
// marker{...} token and returns the content.
func wholeToken(s, marker string) (string, bool) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, marker) || !strings.HasSuffix(t, "}") {
		return "", false
	}
	inner := t[len(marker) : len(t)-1]
	if strings.Contains(inner, "}") || strings.Contains(inner, "@{") || strings.Contains(inner, "${") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}
