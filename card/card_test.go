package card

import (
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	type point struct {
		X int    `json:"x"`
		Y string `json:"y"`
	}

	got, err := Canonicalize(point{X: 1, Y: "a"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"x": float64(1), "y": "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
}

func TestCopy(t *testing.T) {
	orig := map[string]interface{}{
		"a": []interface{}{float64(1), map[string]interface{}{"b": "c"}},
	}
	copied := Copy(orig).(map[string]interface{})

	if !reflect.DeepEqual(orig, copied) {
		t.Fatal("copy differs")
	}
	copied["a"].([]interface{})[1].(map[string]interface{})["b"] = "changed"
	if orig["a"].([]interface{})[1].(map[string]interface{})["b"] != "c" {
		t.Fatal("copy shares structure with the original")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		typ   string
		class KindClass
	}{
		{"TextBlock", KindElement},
		{"Container", KindElement},
		{"Input.Text", KindInput},
		{"Action.Submit", KindAction},
		{"Action.Dance", KindUnknown},
		{"Input.Mood", KindUnknown},
		{"Blink", KindUnknown},
		{"", KindNone},
	}

	for _, test := range tests {
		node := map[string]interface{}{}
		if test.typ != "" {
			node["type"] = test.typ
		}
		if got := KindOf(node); got.Class != test.class {
			t.Fatalf("KindOf(%q).Class = %v, wanted %v", test.typ, got.Class, test.class)
		}
	}

	if !KindOf(map[string]interface{}{"type": "Action.Dance"}).IsAction() {
		t.Fatal("unknown Action.* should still be an action")
	}
	if !KindOf(map[string]interface{}{"type": "Input.Mood"}).IsInput() {
		t.Fatal("unknown Input.* should still be an input")
	}
}

func TestParseInteractionType(t *testing.T) {
	for _, s := range []string{"Submit", "Execute", "OpenUrl", "ShowCard", "ToggleVisibility"} {
		if _, ok := ParseInteractionType(s); !ok {
			t.Fatalf("'%s' should parse", s)
		}
	}
	for _, s := range []string{"", "submit", "Wave"} {
		if _, ok := ParseInteractionType(s); ok {
			t.Fatalf("'%s' should not parse", s)
		}
	}
}
