package expr

import "fmt"

// ParseError occurs when expression text is malformed.  Offset is the
// byte offset into the expression source.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expression parse error at %d: %s", e.Offset, e.Msg)
}

// TypeError occurs when an operator is applied to a value of the
// wrong type, such as a ternary with a non-boolean condition.  There
// is deliberately no implicit coercion.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return "expression type error: " + e.Msg
}
