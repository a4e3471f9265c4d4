// Package ecmascript provides a card.Interpreter backed by Goja, a
// Go implementation of ECMAScript 5.1+, for computing template
// params.
//
// See https://github.com/dop251/goja.
package ecmascript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/util"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

func init() {
	i := NewInterpreter()
	card.DefaultInterpreters["ecmascript"] = i
	card.DefaultInterpreters["goja"] = i
}

// Interpreter computes param values with Goja.  The param source must
// evaluate to a JSON-representable value.
type Interpreter struct {

	// Testing exposes sleep() to scripts.
	Testing bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// AsSource accepts either a plain code string or a {"code": ...}
// object (the shape YAML-loaded specs produce).
func AsSource(src interface{}) (string, error) {
	switch vv := src.(type) {
	case string:
		return vv, nil
	case map[string]interface{}:
		code, is := vv["code"].(string)
		if !is {
			return "", errors.New("bad param source code")
		}
		return code, nil
	default:
		return "", fmt.Errorf("bad param source (%T)", src)
	}
}

// Compile parses the source up front so scripts with syntax errors
// fail at spec load rather than at render.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, err := AsSource(src)
	if err != nil {
		return nil, err
	}
	return goja.Compile("", wrapSrc(code), true)
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec runs the param source in the given scope and returns the
// computed value, canonicalized.
//
// The scope is available from the runtime at _: typically
// _.payload, _.session, _.state, and _.params.
//
// Utilities:
//
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next firing time of a cron expression,
//	  as an RFC3339 string.
//	log(x): log x as JSON (subject to util.Logging).
//
// The Testing flag must be set to see sleep().
func (i *Interpreter) Exec(ctx context.Context, scope card.Scope, src interface{}, compiled interface{}) (interface{}, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return nil, fmt.Errorf("bad compilation: %T %#v", compiled, compiled)
	}

	env := map[string]interface{}{
		"ctx": ctx,
	}
	if scope != nil {
		for k, v := range scope.Copy() {
			env[k] = v
		}
	}

	o := goja.New()
	o.Set("_", env)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return gensym(32)
	}

	env["esc"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		s, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["log"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			util.Logf("ecmascript.log (can't marshal: %s)", err)
		} else {
			util.Logf("%s", js)
		}
		return x
	}

	// Terminate the script promptly if the invocation's context
	// ends first.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	return card.Canonicalize(v.Export())
}

var alphabet = []byte("0123456789abcdefghjkmnpqrstvwxyz")

func gensym(n int) string {
	bs := make([]byte, n)
	for i := 0; i < len(bs); i++ {
		bs[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(bs)
}
