// Package interpreters assembles the standard interpreter map for
// computed params.
package interpreters

import (
	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/interpreters/ecmascript"
	"github.com/flowcard/flowcard/interpreters/noop"
)

func Standard() map[string]card.Interpreter {
	is := make(map[string]card.Interpreter)

	es := ecmascript.NewInterpreter()
	is["ecmascript"] = es
	is["ecmascript-5.1"] = es
	is["goja"] = es

	is["noop"] = noop.NewInterpreter()

	return is
}
