// Package noop provides a card.Interpreter that returns the param
// source unevaluated, for specs whose "computed" params are really
// constants.
package noop

import (
	"context"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/util"
)

type Interpreter struct {
	// Silent suppresses warning log messages.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logf("warning: using noop interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, scope card.Scope, code interface{}, compiled interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logf("warning: using noop interpreter for execution")
	}
	return card.Canonicalize(code)
}
