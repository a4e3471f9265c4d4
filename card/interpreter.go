package card

import "context"

// Scope is the environment handed to an Interpreter: the invocation's
// namespaces ("payload", "session", "state", "params") plus anything
// the host wants to expose.
type Scope map[string]interface{}

// Copy makes a shallow copy of the Scope.
func (s Scope) Copy() Scope {
	acc := make(Scope, len(s))
	for k, v := range s {
		acc[k] = v
	}
	return acc
}

// Interpreter can optionally compile and then execute code for
// computed template params.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code in the given scope and returns the
	// computed value.  The result of a previous Compile() might
	// be provided.
	Exec(ctx context.Context, scope Scope, code interface{}, compiled interface{}) (interface{}, error)
}

// DefaultInterpreters is consulted by ParamSource.Compute when the
// caller provides no interpreter map.  Importing
// interpreters/ecmascript registers "ecmascript" (and "goja") here.
var DefaultInterpreters = make(map[string]Interpreter)

// Compute compiles and runs the ParamSource with the named
// interpreter.
func (p *ParamSource) Compute(ctx context.Context, interpreters map[string]Interpreter, scope Scope) (interface{}, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}
	name := p.Interpreter
	if name == "" {
		name = "ecmascript"
	}
	interpreter, have := interpreters[name]
	if !have {
		return nil, ErrInterpreterNotFound
	}
	compiled, err := interpreter.Compile(ctx, p.Source)
	if err != nil {
		return nil, err
	}
	return interpreter.Exec(ctx, scope, p.Source, compiled)
}
