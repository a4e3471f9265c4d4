// Package expr implements the little expression language that lives
// inside ${...} placeholders: dotted-path references, literals,
// equality, ternary selection, and string interpolation.
//
// Parsing is total: any input yields either a Node or a *ParseError.
// Evaluation never panics; a missing path evaluates to Absent, which
// is a first-class value, not a failure.
package expr

// Node is an expression AST node.
type Node interface {
	node()
}

// Lit is a literal: string, float64, bool, or nil.
type Lit struct {
	Val interface{}
}

// Ref is a dotted-path reference like user.tiers[0].name, with an
// optional ||default fallback literal.
type Ref struct {
	// Path is the raw path text (brackets included).
	Path string

	// Default, if non-nil, substitutes when the path is absent
	// (or resolves to null).
	Default *Lit
}

// Eq compares two evaluated operands by structural equality.
type Eq struct {
	Left, Right Node
}

// Cond is ternary selection.  The condition must evaluate to a
// boolean; exactly one branch is evaluated.
type Cond struct {
	If, Then, Else Node
}

// Interp is string interpolation: literal text concatenated with
// embedded placeholder values.
type Interp struct {
	Parts []Part
}

// Part is one segment of an Interp: literal Text, a path Ref, an
// embedded expression, or a recorded parse failure for that segment
// (which renders as empty text).
type Part struct {
	Text string
	Ref  *Ref
	Expr Node
	Err  error
}

func (*Lit) node()    {}
func (*Ref) node()    {}
func (*Eq) node()     {}
func (*Cond) node()   {}
func (*Interp) node() {}
