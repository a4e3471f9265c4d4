package ecmascript

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/flowcard/flowcard/card"
	. "github.com/flowcard/flowcard/util/testutil"
)

func TestExec(t *testing.T) {
	i := NewInterpreter()
	ctx := context.Background()

	scope := card.Scope{
		"payload": Dwimjs(`{"user": {"name": "ada", "tags": ["a","b"]}}`),
		"params":  Dwimjs(`{"greeting": "Hello"}`),
	}

	tests := []struct {
		name string
		src  string
		want interface{}
	}{
		{
			"scalar",
			`return 1 + 2;`,
			float64(3),
		},
		{
			"scope access",
			`return _.params.greeting + ", " + _.payload.user.name + "!";`,
			"Hello, ada!",
		},
		{
			"object result",
			`return {n: _.payload.user.tags.length};`,
			Dwimjs(`{"n": 2}`),
		},
		{
			"no return",
			`var x = 1;`,
			nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := i.Exec(ctx, scope, test.src, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Fatalf("got %#v, wanted %#v", got, test.want)
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	i := NewInterpreter()
	if _, err := i.Compile(context.Background(), `return «nope»;`); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestCompileOnce(t *testing.T) {
	i := NewInterpreter()
	ctx := context.Background()

	compiled, err := i.Compile(ctx, `return _.params.n;`)
	if err != nil {
		t.Fatal(err)
	}

	for n := 1; n <= 3; n++ {
		scope := card.Scope{"params": map[string]interface{}{"n": n}}
		got, err := i.Exec(ctx, scope, nil, compiled)
		if err != nil {
			t.Fatal(err)
		}
		if got != float64(n) {
			t.Fatalf("got %#v, wanted %d", got, n)
		}
	}
}

func TestUtilities(t *testing.T) {
	i := NewInterpreter()
	ctx := context.Background()

	got, err := i.Exec(ctx, nil, `return _.esc("a b&c");`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a+b%26c" {
		t.Fatalf("esc gave %#v", got)
	}

	got, err = i.Exec(ctx, nil, `return _.gensym();`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s, is := got.(string); !is || len(s) != 32 {
		t.Fatalf("gensym gave %#v", got)
	}

	got, err = i.Exec(ctx, nil, `return _.cronNext("0 0 * * *");`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := time.Parse(time.RFC3339Nano, got.(string)); err != nil {
		t.Fatalf("cronNext gave %#v: %s", got, err)
	}
}

func TestInterrupt(t *testing.T) {
	i := NewInterpreter()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := i.Exec(ctx, nil, `for (;;) {}`, nil)
	if err != Interrupted {
		t.Fatalf("got %v, wanted Interrupted", err)
	}
}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"ecmascript", "goja"} {
		if _, have := card.DefaultInterpreters[name]; !have {
			t.Fatalf("'%s' not registered", name)
		}
	}
}
