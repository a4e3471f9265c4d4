package validate

import (
	"testing"

	"github.com/flowcard/flowcard/card"
	. "github.com/flowcard/flowcard/util/testutil"
)

func codes(issues []card.Issue) map[string]int {
	acc := map[string]int{}
	for _, issue := range issues {
		acc[issue.Code]++
	}
	return acc
}

func TestCheckValidCard(t *testing.T) {
	tree := Dwimjs(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [
			{"type": "TextBlock", "text": "hi"},
			{"type": "Input.Text", "id": "name"},
			{"type": "Input.ChoiceSet", "id": "color", "choices": [
				{"title": "Red", "value": "r"}
			]},
			{"type": "Image", "url": "https://example.com/x.png"}
		],
		"actions": [
			{"type": "Action.Submit", "id": "go", "title": "Go"},
			{"type": "Action.OpenUrl", "url": "https://example.com"}
		]
	}`)

	if issues := Check(tree); len(issues) != 0 {
		t.Fatalf("unexpected issues: %s", JS(issues))
	}
}

func TestCheckRoot(t *testing.T) {
	tests := []struct {
		name string
		tree interface{}
		code string
	}{
		{"non-object root", Dwimjs(`[1,2]`), "invalid-root"},
		{"wrong type", Dwimjs(`{"type":"Hero","version":"1.5"}`), "invalid-type"},
		{"no version", Dwimjs(`{"type":"AdaptiveCard"}`), "missing-version"},
		{"non-string version", Dwimjs(`{"type":"AdaptiveCard","version":1.5}`), "missing-version"},
		{"odd version", Dwimjs(`{"type":"AdaptiveCard","version":"9.9"}`), "unsupported-version"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			issues := Check(test.tree)
			if codes(issues)[test.code] == 0 {
				t.Fatalf("wanted %s in %s", test.code, JS(issues))
			}
		})
	}

	// Unsupported version is a warning, not an error.
	issues := Check(Dwimjs(`{"type":"AdaptiveCard","version":"9.9"}`))
	for _, issue := range issues {
		if issue.Code == "unsupported-version" && issue.Severity != card.Warning {
			t.Fatalf("unsupported-version severity = %s", issue.Severity)
		}
	}
}

func TestCheckElements(t *testing.T) {
	wrap := func(body string) interface{} {
		return Dwimjs(`{"type":"AdaptiveCard","version":"1.5","body":` + body + `}`)
	}

	tests := []struct {
		name string
		tree interface{}
		code string
	}{
		{"body not array", Dwimjs(`{"type":"AdaptiveCard","version":"1.5","body":{}}`), "invalid-body"},
		{"element not object", wrap(`["x"]`), "invalid-type"},
		{"element no type", wrap(`[{}]`), "invalid-type"},
		{"unknown element", wrap(`[{"type":"Blink"}]`), "unknown-type"},
		{"input no id", wrap(`[{"type":"Input.Text"}]`), "missing-id"},
		{"duplicate input id", wrap(`[{"type":"Input.Text","id":"a"},{"type":"Input.Toggle","id":"a"}]`), "duplicate-id"},
		{"choiceset no choices", wrap(`[{"type":"Input.ChoiceSet","id":"c"}]`), "missing-choices"},
		{"choiceset empty choices", wrap(`[{"type":"Input.ChoiceSet","id":"c","choices":[]}]`), "empty-choices"},
		{"choiceset bad choices", wrap(`[{"type":"Input.ChoiceSet","id":"c","choices":{}}]`), "invalid-choices"},
		{"bad choice", wrap(`[{"type":"Input.ChoiceSet","id":"c","choices":[{"title":"x"}]}]`), "invalid-choice"},
		{"number range", wrap(`[{"type":"Input.Number","id":"n","min":10,"max":1}]`), "invalid-range"},
		{"date range", wrap(`[{"type":"Input.Date","id":"d","min":"2026-12-01","max":"2026-01-01"}]`), "invalid-range"},
		{"columnset bad columns", wrap(`[{"type":"ColumnSet","columns":"x"}]`), "invalid-columns"},
		{"columnset empty columns", wrap(`[{"type":"ColumnSet","columns":[]}]`), "empty-columns"},
		{"factset no title", wrap(`[{"type":"FactSet","facts":[{"value":"v"}]}]`), "missing-title"},
		{"media no sources", wrap(`[{"type":"Media"}]`), "missing-sources"},
		{"media empty sources", wrap(`[{"type":"Media","sources":[]}]`), "invalid-sources"},
		{"media source no url", wrap(`[{"type":"Media","sources":[{"mimeType":"video/mp4"}]}]`), "missing-url"},
		{"image no url", wrap(`[{"type":"Image"}]`), "missing-url"},
		{"nested container", wrap(`[{"type":"Container","items":[{"type":"Input.Text"}]}]`), "missing-id"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			issues := Check(test.tree)
			if codes(issues)[test.code] == 0 {
				t.Fatalf("wanted %s in %s", test.code, JS(issues))
			}
		})
	}
}

func TestCheckActions(t *testing.T) {
	wrap := func(actions string) interface{} {
		return Dwimjs(`{"type":"AdaptiveCard","version":"1.5","actions":` + actions + `}`)
	}

	tests := []struct {
		name string
		tree interface{}
		code string
	}{
		{"actions not array", Dwimjs(`{"type":"AdaptiveCard","version":"1.5","actions":{}}`), "invalid-actions"},
		{"not an action", wrap(`[{"type":"TextBlock"}]`), "invalid-type"},
		{"unknown action", wrap(`[{"type":"Action.Dance"}]`), "unknown-type"},
		{"duplicate action id", wrap(`[{"type":"Action.Submit","id":"a"},{"type":"Action.Submit","id":"a"}]`), "duplicate-action-id"},
		{"openurl no url", wrap(`[{"type":"Action.OpenUrl"}]`), "missing-url"},
		{"execute no verb", wrap(`[{"type":"Action.Execute"}]`), "missing-verb"},
		{"submit bad data", wrap(`[{"type":"Action.Submit","data":[1]}]`), "invalid-data"},
		{"showcard no card", wrap(`[{"type":"Action.ShowCard"}]`), "missing-card"},
		{"showcard bad card", wrap(`[{"type":"Action.ShowCard","card":"x"}]`), "invalid-card"},
		{"toggle no targets", wrap(`[{"type":"Action.ToggleVisibility"}]`), "missing-target-elements"},
		{"toggle empty targets", wrap(`[{"type":"Action.ToggleVisibility","targetElements":[]}]`), "empty-target-elements"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			issues := Check(test.tree)
			if codes(issues)[test.code] == 0 {
				t.Fatalf("wanted %s in %s", test.code, JS(issues))
			}
		})
	}
}

func TestDuplicateIDAcrossShowCard(t *testing.T) {
	// Ids are global across the card, sub-cards included.
	tree := Dwimjs(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "Input.Text", "id": "name"}],
		"actions": [{
			"type": "Action.ShowCard",
			"card": {"body": [{"type": "Input.Text", "id": "name"}]}
		}]
	}`)

	if codes(Check(tree))["duplicate-id"] == 0 {
		t.Fatalf("wanted duplicate-id across sub-card: %s", JS(Check(tree)))
	}
}

func TestCheckKeepsGoing(t *testing.T) {
	// Several problems, one pass: validation never stops early.
	tree := Dwimjs(`{
		"type": "AdaptiveCard",
		"body": [
			{"type": "Input.Text"},
			{"type": "Image"}
		]
	}`)

	got := codes(Check(tree))
	for _, code := range []string{"missing-version", "missing-id", "missing-url"} {
		if got[code] == 0 {
			t.Fatalf("missing %s in %v", code, got)
		}
	}
}

func TestSortIssues(t *testing.T) {
	issues := []card.Issue{
		{Code: "b", Path: "/body/10"},
		{Code: "a", Path: "/body/2"},
		{Code: "c", Path: ""},
	}
	Sort(issues)
	if issues[0].Path != "" || issues[1].Path != "/body/2" || issues[2].Path != "/body/10" {
		t.Fatalf("bad order: %s", JS(issues))
	}
}
