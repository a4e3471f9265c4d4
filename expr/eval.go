package expr

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// absent is the type of Absent.
type absent struct{}

// Absent is the value of a path that doesn't resolve.  It is a
// legitimate evaluation result, distinct from JSON null.
var Absent = absent{}

// IsAbsent reports whether x is Absent.
func IsAbsent(x interface{}) bool {
	_, is := x.(absent)
	return is
}

// Resolver resolves a dotted path (brackets allowed: a.b[0].c) to a
// value.  The boolean reports whether the full path resolved.
type Resolver interface {
	Resolve(path string) (interface{}, bool)
}

// Eval evaluates the AST against the Resolver.
//
// A missing path gives Absent.  The only errors are *TypeError (bad
// operator application); Eval never panics.
func Eval(n Node, r Resolver) (interface{}, error) {
	switch vv := n.(type) {
	case *Lit:
		return vv.Val, nil
	case *Ref:
		return evalRef(vv, r), nil
	case *Eq:
		left, err := Eval(vv.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := Eval(vv.Right, r)
		if err != nil {
			return nil, err
		}
		return Equal(left, right), nil
	case *Cond:
		cond, err := Eval(vv.If, r)
		if err != nil {
			return nil, err
		}
		b, is := cond.(bool)
		if !is {
			return nil, &TypeError{Msg: "ternary condition is not a boolean"}
		}
		// Short-circuit: evaluate exactly one branch.
		if b {
			return Eval(vv.Then, r)
		}
		return Eval(vv.Else, r)
	case *Interp:
		s, _ := EvalInterp(vv, r)
		return s, nil
	default:
		return nil, &TypeError{Msg: "unknown expression node"}
	}
}

func evalRef(ref *Ref, r Resolver) interface{} {
	v, found := r.Resolve(ref.Path)
	if (!found || v == nil) && ref.Default != nil {
		return ref.Default.Val
	}
	if !found {
		return Absent
	}
	return v
}

// Equal compares two evaluated values structurally, normalizing
// numeric representations first.  Absent equals only Absent.
func Equal(a, b interface{}) bool {
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}
	return reflect.DeepEqual(fudge(a), fudge(b))
}

// fudge casts numbers to float64, recursively.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float64:
		return vv
	case float32:
		return float64(vv)
	case int:
		return float64(vv)
	case int32:
		return float64(vv)
	case int64:
		return float64(vv)
	case json.Number:
		if f, err := vv.Float64(); err == nil {
			return f
		}
		return vv.String()
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			acc[i] = fudge(y)
		}
		return acc
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, y := range vv {
			acc[k] = fudge(y)
		}
		return acc
	default:
		return x
	}
}

// Stringify renders a value for interpolation into a larger string.
// Strings pass through; Absent and null render empty; everything
// else gets its JSON encoding.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case absent:
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
		js, err := json.Marshal(&x)
		if err != nil {
			return ""
		}
		return string(js)
	}
}

// Miss records one embedded segment that didn't resolve cleanly
// during interpolation.
type Miss struct {
	// Path is the path that was absent (if that's what happened).
	Path string

	// Err is a parse or type error for the segment (if any).
	Err error
}

// ParseInterp splits text containing embedded @{...} and ${...}
// tokens into an interpolation.  Parsing is total: an unterminated
// token is literal text, and a malformed embedded expression becomes
// an Err part (which renders empty).
func ParseInterp(text string) *Interp {
	in := &Interp{}
	for {
		at := strings.Index(text, "@{")
		dollar := strings.Index(text, "${")
		pos, marker := at, "@{"
		if pos < 0 || (0 <= dollar && dollar < pos) {
			pos, marker = dollar, "${"
		}
		if pos < 0 {
			break
		}
		end := strings.Index(text[pos:], "}")
		if end < 0 {
			break
		}
		if 0 < pos {
			in.Parts = append(in.Parts, Part{Text: text[:pos]})
		}
		inner := strings.TrimSpace(text[pos+2 : pos+end])
		if marker == "@{" {
			in.Parts = append(in.Parts, parseRefPart(inner))
		} else {
			if n, err := Parse(inner); err != nil {
				in.Parts = append(in.Parts, Part{Err: err})
			} else {
				in.Parts = append(in.Parts, Part{Expr: n})
			}
		}
		text = text[pos+end+1:]
	}
	if text != "" {
		in.Parts = append(in.Parts, Part{Text: text})
	}
	return in
}

// parseRefPart parses @{...} content: a path with an optional
// ||default.
func parseRefPart(inner string) Part {
	path, def := inner, ""
	if i := strings.Index(inner, "||"); 0 <= i {
		path, def = strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+2:])
	}
	ref := &Ref{Path: path}
	if def != "" {
		ref.Default = parseDefault(def)
	}
	return Part{Ref: ref}
}

// parseDefault parses a ||default literal: a quoted string, a
// JSON-ish scalar, or a bare token taken as a string.
func parseDefault(text string) *Lit {
	switch text {
	case "true":
		return &Lit{Val: true}
	case "false":
		return &Lit{Val: false}
	case "null":
		return &Lit{Val: nil}
	}
	if 2 <= len(text) && text[0] == '"' && text[len(text)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return &Lit{Val: s}
		}
		return &Lit{Val: strings.Trim(text, `"`)}
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return &Lit{Val: f}
	}
	return &Lit{Val: text}
}

// EvalInterp renders the interpolation as a string.  Absent segments
// without defaults render empty and are reported as Misses, as are
// segments whose embedded expressions failed.
func EvalInterp(in *Interp, r Resolver) (string, []Miss) {
	var (
		buf    strings.Builder
		misses []Miss
	)
	for _, part := range in.Parts {
		switch {
		case part.Err != nil:
			misses = append(misses, Miss{Err: part.Err})
		case part.Ref != nil:
			v := evalRef(part.Ref, r)
			if IsAbsent(v) {
				misses = append(misses, Miss{Path: part.Ref.Path})
			}
			buf.WriteString(Stringify(v))
		case part.Expr != nil:
			v, err := Eval(part.Expr, r)
			if err != nil {
				misses = append(misses, Miss{Err: err})
				continue
			}
			if IsAbsent(v) {
				if ref, is := part.Expr.(*Ref); is {
					misses = append(misses, Miss{Path: ref.Path})
				}
			}
			buf.WriteString(Stringify(v))
		default:
			buf.WriteString(part.Text)
		}
	}
	return buf.String(), misses
}
