package render

import (
	"context"
	"reflect"
	"testing"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/interpreters"
	"github.com/flowcard/flowcard/store"
	. "github.com/flowcard/flowcard/util/testutil"
)

func engine() *Engine {
	return &Engine{Interpreters: interpreters.Standard()}
}

func inline(js string) card.Invocation {
	return card.Invocation{
		Source: card.SourceInline,
		Spec:   card.Spec{InlineJSON: js},
	}
}

func text(t *testing.T, result *card.Result, i int) interface{} {
	t.Helper()
	root, is := result.RenderedCard.(map[string]interface{})
	if !is {
		t.Fatalf("no rendered card in %s", JS(result))
	}
	body, is := root["body"].([]interface{})
	if !is || len(body) <= i {
		t.Fatalf("bad body in %s", JS(root))
	}
	return body[i].(map[string]interface{})["text"]
}

func TestRenderGreeting(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [
			{"type": "TextBlock", "text": "Hello @{user.name||\"Guest\"}, step ${step}"}
		]
	}`)
	inv.Payload = Dwimjs(`{"user": {"name": "Ada"}}`)
	inv.Session = Dwimjs(`{"step": 2}`)

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "Hello Ada, step 2" {
		t.Fatalf("got %#v", got)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %s", JS(result.Diagnostics))
	}
}

func TestRenderDefaultAndTernary(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [
			{"type": "TextBlock", "text": "Hi @{user.name||\"Guest\"}"},
			{"type": "TextBlock", "text": "${step == 2 ? \"almost done\" : \"keep going\"}"}
		]
	}`)
	inv.Session = Dwimjs(`{"step": 1}`)

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "Hi Guest" {
		t.Fatalf("got %#v", got)
	}
	if got := text(t, result, 1); got != "keep going" {
		t.Fatalf("got %#v", got)
	}
}

func TestRenderParamsPrecedence(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "TextBlock", "text": "@{title}"}]
	}`)
	inv.Payload = Dwimjs(`{"title": "from payload"}`)
	inv.Spec.TemplateParams = map[string]interface{}{"title": "from params"}

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	// Unqualified lookup prefers the payload...
	if got := text(t, result, 0); got != "from payload" {
		t.Fatalf("got %#v", got)
	}

	// ...but the params namespace is directly addressable.
	inv = inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "TextBlock", "text": "@{params.title}"}]
	}`)
	inv.Payload = Dwimjs(`{"title": "from payload"}`)
	inv.Spec.TemplateParams = map[string]interface{}{"title": "from params"}

	result, err = engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "from params" {
		t.Fatalf("got %#v", got)
	}
}

func TestRenderComputedParams(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "TextBlock", "text": "@{shout}"}]
	}`)
	inv.Payload = Dwimjs(`{"user": {"name": "ada"}}`)
	inv.Spec.ComputedParams = map[string]*card.ParamSource{
		"shout": {
			Interpreter: "ecmascript",
			Source:      `return _.payload.user.name.toUpperCase();`,
		},
	}

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "ADA" {
		t.Fatalf("got %#v", got)
	}
}

func TestRenderComputedNeverOverridesExplicit(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "TextBlock", "text": "@{params.title}"}]
	}`)
	inv.Spec.TemplateParams = map[string]interface{}{"title": "explicit"}
	inv.Spec.ComputedParams = map[string]*card.ParamSource{
		"title": {Interpreter: "ecmascript", Source: `return "computed";`},
	}

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "explicit" {
		t.Fatalf("got %#v", got)
	}
}

func TestValidateMode(t *testing.T) {
	inv := inline(`{"type": "AdaptiveCard", "body": [{"type": "Input.Text"}]}`)
	inv.Mode = card.ModeValidate

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if result.RenderedCard != nil {
		t.Fatal("validate mode should not render")
	}

	got := map[string]bool{}
	for _, issue := range result.Issues {
		got[issue.Code] = true
	}
	if !got["missing-version"] || !got["missing-id"] {
		t.Fatalf("issues: %s", JS(result.Issues))
	}
}

func TestValidateModeSeesRenderedTree(t *testing.T) {
	// Validation runs on the rendered tree, so placeholder-valued
	// fields resolve before the checks see them.
	inv := inline(`{"type": "AdaptiveCard", "version": "@{v}", "body": []}`)
	inv.Payload = Dwimjs(`{"v": "1.5"}`)
	inv.Mode = card.ModeValidate

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	for _, issue := range result.Issues {
		if issue.Code == "unsupported-version" || issue.Code == "missing-version" {
			t.Fatalf("issues: %s", JS(result.Issues))
		}
	}
}

func TestRenderModeReportsIssues(t *testing.T) {
	inv := inline(`{"type": "AdaptiveCard", "version": "1.5", "body": [{"type": "Input.Text"}]}`)

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]bool{}
	for _, issue := range result.Issues {
		got[issue.Code] = true
	}
	if !got["missing-id"] {
		t.Fatalf("issues: %s", JS(result.Issues))
	}
}

func TestValidationModeError(t *testing.T) {
	inv := inline(`{"type": "AdaptiveCard", "body": [{"type": "Input.Text"}]}`)
	inv.Mode = card.ModeRenderAndValidate
	inv.ValidationMode = card.ValidationError

	result, err := engine().HandleInvocation(context.Background(), &inv)
	if err == nil {
		t.Fatal("expected a validation failure")
	}
	if _, is := err.(*ValidationFailed); !is {
		t.Fatalf("expected *ValidationFailed, got %T: %s", err, err)
	}
	// The result still comes back alongside the error.
	if result == nil || result.RenderedCard == nil {
		t.Fatal("expected a result with the failure")
	}
}

func TestValidationModeOff(t *testing.T) {
	inv := inline(`{"type": "AdaptiveCard", "body": [{"type": "Input.Text"}]}`)
	inv.Mode = card.ModeRenderAndValidate
	inv.ValidationMode = card.ValidationOff

	result, err := engine().HandleInvocation(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("issues survived off mode: %s", JS(result.Issues))
	}
}

func TestSubmitInteraction(t *testing.T) {
	e := engine()
	e.Store = store.NewMem()

	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [
			{"type": "Input.Text", "id": "name"},
			{"type": "TextBlock", "text": "Welcome @{state.form_data.name||there}"}
		],
		"actions": [{"type": "Action.Submit", "id": "go"}]
	}`)
	inv.NodeID = "node-1"
	inv.Interaction = &card.Interaction{
		Type:           "Submit",
		ActionID:       "go",
		CardInstanceID: "inst-1",
		RawInputs:      map[string]interface{}{"name": "Ada"},
	}

	result, err := e.HandleInvocation(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}

	if result.Event == nil || result.Event.Type != card.Submit {
		t.Fatalf("event: %s", JS(result.Event))
	}
	want := map[string]interface{}{"name": "Ada"}
	if !reflect.DeepEqual(result.Event.Inputs, want) {
		t.Fatalf("inputs: %s", JS(result.Event.Inputs))
	}

	// The re-render sees the merged form data.
	if got := text(t, result, 1); got != "Welcome Ada" {
		t.Fatalf("got %#v", got)
	}

	// And the store kept it for the next invocation.
	state, err := e.Store.Load(store.Key("node-1", ""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(state, Dwimjs(`{"form_data":{"name":"Ada"}}`)) {
		t.Fatalf("state: %s", JS(state))
	}
}

func TestToggleInteractionRoundTrip(t *testing.T) {
	e := engine()
	e.Store = store.NewMem()

	cardJS := `{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [
			{"type": "TextBlock", "text": "${state.ui.visibility.flip || true ? \"shown\" : \"hidden\"}"}
		],
		"actions": [{
			"type": "Action.ToggleVisibility", "id": "flip", "targetElements": ["x"]
		}]
	}`

	inv := inline(cardJS)
	inv.NodeID = "node-2"
	inv.Interaction = &card.Interaction{
		Type:           "ToggleVisibility",
		ActionID:       "flip",
		CardInstanceID: "inst-2",
		Metadata:       map[string]interface{}{"visible": "false"},
	}

	result, err := e.HandleInvocation(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.StateUpdates) != 1 {
		t.Fatalf("updates: %s", JS(result.StateUpdates))
	}
	u := result.StateUpdates[0]
	if u.Path != "ui.visibility.flip" || u.Value != false {
		t.Fatalf("update: %s", JS(u))
	}
	if got := text(t, result, 0); got != "hidden" {
		t.Fatalf("got %#v", got)
	}
}

func TestHandleInvocationCopiesInlineState(t *testing.T) {
	e := engine()

	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [],
		"actions": [{
			"type": "Action.ToggleVisibility", "id": "flip", "targetElements": ["x"]
		}]
	}`)
	callers := Dwimjs(`{"form_data":{"name":"Ada"}}`).(map[string]interface{})
	inv.State = callers
	inv.Interaction = &card.Interaction{
		Type:           "ToggleVisibility",
		ActionID:       "flip",
		CardInstanceID: "inst-9",
	}

	if _, err := e.HandleInvocation(context.Background(), &inv); err != nil {
		t.Fatal(err)
	}
	// The updates landed on a copy, not the caller's tree.
	if !reflect.DeepEqual(callers, Dwimjs(`{"form_data":{"name":"Ada"}}`)) {
		t.Fatalf("caller state mutated: %s", JS(callers))
	}
}

func TestFeatureSummaryInResult(t *testing.T) {
	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "Input.Text", "id": "n"}],
		"actions": [{"type": "Action.ShowCard", "card": {"body": []}}]
	}`)

	result, err := engine().Render(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Features.UsesInputs || !result.Features.UsesShowCard {
		t.Fatalf("features: %s", JS(result.Features))
	}
}

func TestSessionState(t *testing.T) {
	// Inline state wins over the store.
	e := engine()
	e.Store = store.NewMem()
	key := store.Key("node-3", "")
	e.Store.Save(key, Dwimjs(`{"form_data":{"name":"FromStore"}}`).(map[string]interface{}))

	inv := inline(`{
		"type": "AdaptiveCard",
		"version": "1.5",
		"body": [{"type": "TextBlock", "text": "@{form_data.name}"}]
	}`)
	inv.NodeID = "node-3"
	inv.State = Dwimjs(`{"form_data":{"name":"Inline"}}`)

	result, err := e.HandleInvocation(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "Inline" {
		t.Fatalf("got %#v", got)
	}

	// Without inline state, the store supplies it.
	inv.State = nil
	result, err = e.HandleInvocation(context.Background(), &inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, result, 0); got != "FromStore" {
		t.Fatalf("got %#v", got)
	}
}
