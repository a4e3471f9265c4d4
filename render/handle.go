package render

import (
	"context"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/interact"
	"github.com/flowcard/flowcard/store"
	"github.com/flowcard/flowcard/trace"
)

// HandleInvocation is the full entry point: load state, translate any
// interaction, apply and persist its updates, render, and enforce the
// validation mode.
//
// State precedence: state given inline on the invocation wins over
// the store.  Updates are applied to a copy, never to the caller's
// tree, and persisted only when a store is configured.
func (e *Engine) HandleInvocation(ctx context.Context, inv *card.Invocation) (*card.Result, error) {
	if inv == nil {
		return nil, &BadInvocation{Reason: "no invocation"}
	}

	instanceID := ""
	if inv.Interaction != nil {
		instanceID = inv.Interaction.CardInstanceID
	}
	key := store.Key(inv.NodeID, instanceID)

	state, _ := inv.State.(map[string]interface{})
	if state != nil {
		if copied, is := card.Copy(state).(map[string]interface{}); is {
			state = copied
		}
	} else if e.Store != nil {
		loaded, err := e.Store.Load(key)
		if err != nil {
			return nil, err
		}
		state = loaded
	}

	var (
		event     *card.ActionEvent
		states    []card.StateUpdate
		sessions  []card.SessionUpdate
		readHash  string
		writeHash string
	)
	if inv.Interaction != nil {
		if state != nil {
			readHash = trace.Hash(state)
		}

		// The interaction is translated against the rendered
		// tree, so the user's view and the translator agree.
		pre, _, err := e.render(ctx, &card.Invocation{
			Source:  inv.Source,
			Spec:    inv.Spec,
			NodeID:  inv.NodeID,
			Payload: inv.Payload,
			Session: inv.Session,
			State:   stateTree(state),
			Mode:    card.ModeRender,
		}, state)
		if err != nil {
			return nil, err
		}

		event, states, sessions, err = interact.Translate(inv.Interaction, pre.RenderedCard)
		if err != nil {
			return nil, err
		}

		if len(states) != 0 {
			state, err = store.Apply(state, states)
			if err != nil {
				return nil, err
			}
			if e.Store != nil {
				if err := e.Store.Save(key, state); err != nil {
					return nil, err
				}
			}
		}
		writeHash = trace.Hash(state)

		trace.New("interaction", inv.NodeID, inv.Payload, inv.Session, state).
			Field("interactionType", inv.Interaction.Type).
			Field("actionId", inv.Interaction.ActionID).
			Field("stateUpdates", len(states)).
			Emit()
	}

	result, summary, err := e.render(ctx, inv, state)
	if err != nil {
		return nil, err
	}
	result.Event = event
	result.StateUpdates = states
	result.SessionUpdates = sessions

	if inv.Interaction != nil && trace.Enabled() {
		result.Telemetry = append(result.Telemetry,
			trace.BuildEvent(inv, summary, key, readHash, writeHash))
	}

	if err := checkValidation(inv, result); err != nil {
		return result, err
	}
	return result, nil
}

// checkValidation applies the invocation's ValidationMode to the
// collected issues.  Off drops them, warn reports them, and error
// fails the invocation while still returning the result.
func checkValidation(inv *card.Invocation, result *card.Result) error {
	switch inv.ValidationMode {
	case card.ValidationOff:
		result.Issues = nil
		return nil
	case card.ValidationError:
		var errs []card.Issue
		for _, issue := range result.Issues {
			if issue.Severity == card.Error {
				errs = append(errs, issue)
			}
		}
		if len(errs) != 0 {
			return &ValidationFailed{Errors: errs}
		}
	}
	return nil
}
