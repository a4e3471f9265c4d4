// Package render runs the card pipeline: resolve the definition,
// compute params, bind placeholders, validate, and summarize.
package render

import (
	"context"
	"fmt"

	"github.com/flowcard/flowcard/asset"
	"github.com/flowcard/flowcard/bind"
	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/feature"
	"github.com/flowcard/flowcard/store"
	"github.com/flowcard/flowcard/tmpl"
	"github.com/flowcard/flowcard/trace"
	"github.com/flowcard/flowcard/validate"
)

// Engine holds the pluggable pieces of the pipeline.  The zero value
// works: assets come from the default registry, params from the
// default interpreters, and state only from the invocation itself.
type Engine struct {
	Assets       *asset.Registry
	Interpreters map[string]card.Interpreter

	// Store, when set, loads state before rendering and persists
	// state updates after interactions.
	Store store.Store

	// Policy controls which template-block constructs are enabled.
	Policy *tmpl.Policy
}

func (e *Engine) assets() *asset.Registry {
	if e.Assets != nil {
		return e.Assets
	}
	return &defaultRegistry
}

var defaultRegistry asset.Registry

// BadInvocation reports an invocation the engine cannot start on.
type BadInvocation struct {
	Reason string
}

func (e *BadInvocation) Error() string {
	return fmt.Sprintf("bad invocation: %s", e.Reason)
}

// ValidationFailed is returned (along with the full result) when
// ValidationError mode sees error-severity issues.
type ValidationFailed struct {
	Errors []card.Issue
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("card validation failed with %d error(s): %s",
		len(e.Errors), e.Errors[0].Code)
}

// Render resolves and renders the invocation's card without touching
// interactions or stores.
func (e *Engine) Render(ctx context.Context, inv *card.Invocation) (*card.Result, error) {
	state, _ := inv.State.(map[string]interface{})
	result, _, err := e.render(ctx, inv, state)
	return result, err
}

// render always runs the full pipeline on the rendered tree:
// bindings, feature summary, validation.  Mode only shapes the
// result: validate mode omits the rendered card.  Validating the
// unrendered tree would flag placeholder-valued fields, so the
// validator never sees one.
func (e *Engine) render(ctx context.Context, inv *card.Invocation, state map[string]interface{}) (*card.Result, bind.Summary, error) {
	tree, err := e.assets().Resolve(sourceOf(inv), &inv.Spec)
	if err != nil {
		return nil, bind.Summary{}, err
	}

	params, err := e.params(ctx, inv)
	if err != nil {
		return nil, bind.Summary{}, err
	}

	bctx := bind.NewContext(inv.Payload, inv.Session, stateTree(state), params)

	result := &card.Result{}

	rendered, diags, summary := bind.Render(tree, bctx, e.Policy)
	result.Diagnostics = diags
	result.Features = feature.Summarize(rendered)
	if inv.Mode != card.ModeValidate {
		result.RenderedCard = rendered
	}

	issues := validate.Check(rendered)
	validate.Sort(issues)
	result.Issues = issues

	result.Telemetry = append(result.Telemetry,
		card.TelemetryEvent{
			Name:       "card.render",
			Properties: summary,
		},
		card.TelemetryEvent{
			Name:       "card.validate",
			Properties: map[string]interface{}{"issues": len(issues)},
		})

	trace.New("render", inv.NodeID, inv.Payload, inv.Session, state).
		Field("cardHash", trace.Hash(rendered)).
		Field("diagnostics", len(diags)).
		Emit()

	return result, summary, nil
}

// params merges explicit template params over computed ones.  An
// explicit param always wins, and the computing scripts see the
// invocation's namespaces.
func (e *Engine) params(ctx context.Context, inv *card.Invocation) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(inv.Spec.TemplateParams))

	if len(inv.Spec.ComputedParams) != 0 {
		scope := card.Scope{
			"payload": inv.Payload,
			"session": inv.Session,
			"state":   inv.State,
			"params":  inv.Spec.TemplateParams,
		}
		for name, src := range inv.Spec.ComputedParams {
			v, err := src.Compute(ctx, e.Interpreters, scope)
			if err != nil {
				return nil, fmt.Errorf("computed param '%s': %w", name, err)
			}
			params[name] = v
		}
	}

	for k, v := range inv.Spec.TemplateParams {
		params[k] = v
	}
	return params, nil
}

// sourceOf infers a missing Source from which Spec field is set.
func sourceOf(inv *card.Invocation) card.Source {
	if inv.Source != "" {
		return inv.Source
	}
	switch {
	case inv.Spec.AssetPath != "":
		return card.SourceAsset
	case inv.Spec.CatalogName != "":
		return card.SourceCatalog
	}
	return card.SourceInline
}

func stateTree(state map[string]interface{}) interface{} {
	if state == nil {
		return nil
	}
	return state
}
