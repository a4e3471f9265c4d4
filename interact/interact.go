// Package interact translates a host-reported card interaction into
// the action event and state mutations the card's owner should apply.
package interact

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/flowcard/flowcard/card"
)

// InvalidInteraction reports an interaction that cannot be translated.
type InvalidInteraction struct {
	Reason string
}

func (e *InvalidInteraction) Error() string {
	return fmt.Sprintf("invalid interaction: %s", e.Reason)
}

// Translate maps one interaction against the rendered tree it came
// from.  The interaction and the tree are consulted read-only; all
// effects come back as explicit updates.
//
// The returned event carries the interaction's metadata verbatim,
// along with the card id (metadata "cardId", defaulting to the card
// instance id) and any metadata "subcardId".
func Translate(in *card.Interaction, tree interface{}) (*card.ActionEvent, []card.StateUpdate, []card.SessionUpdate, error) {
	if in == nil {
		return nil, nil, nil, &InvalidInteraction{Reason: "no interaction given"}
	}
	if in.Enabled != nil && !*in.Enabled {
		return nil, nil, nil, nil
	}
	typ, known := card.ParseInteractionType(in.Type)
	if !known {
		return nil, nil, nil, &InvalidInteraction{
			Reason: fmt.Sprintf("unknown interaction type '%s'", in.Type),
		}
	}
	if strings.TrimSpace(in.ActionID) == "" {
		return nil, nil, nil, &InvalidInteraction{Reason: "interaction has no action id"}
	}
	if strings.TrimSpace(in.CardInstanceID) == "" {
		return nil, nil, nil, &InvalidInteraction{Reason: "interaction has no card instance id"}
	}

	t := &translator{
		in:     in,
		tree:   tree,
		verb:   in.Verb,
		inputs: normalizeInputs(in.RawInputs),
	}

	switch typ {
	case card.Submit, card.Execute:
		t.submit()
	case card.OpenURL:
		// The url rides in the metadata (or on the action node);
		// the host acts on the event.
	case card.ShowCard:
		t.showCard()
	case card.ToggleVisibility:
		t.toggle()
	}

	subcard, _ := in.Meta("subcardId")
	t.event = &card.ActionEvent{
		Type:           typ,
		ActionID:       in.ActionID,
		Verb:           t.verb,
		CardID:         cardID(in),
		CardInstanceID: in.CardInstanceID,
		SubcardID:      subcard,
		Inputs:         t.inputs,
		Metadata:       copyMetadata(in.Metadata),
	}

	t.sessionFromMetadata()
	return t.event, t.states, t.sessions, nil
}

// cardID is the metadata "cardId", defaulting to the instance id.
func cardID(in *card.Interaction) string {
	if id, ok := in.Meta("cardId"); ok && id != "" {
		return id
	}
	return in.CardInstanceID
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return nil
	}
	out, _ := card.Copy(md).(map[string]interface{})
	return out
}

type translator struct {
	in   *card.Interaction
	tree interface{}

	verb   string
	inputs map[string]interface{}

	event    *card.ActionEvent
	states   []card.StateUpdate
	sessions []card.SessionUpdate
}

// submit handles Submit and Execute: merge the collected inputs into
// form_data.  The merge happens even when the inputs are empty, so
// downstream consumers always see the target object.
func (t *translator) submit() {
	if t.verb == "" {
		if verb, ok := t.actionField("verb"); ok {
			t.verb = verb
		}
	}

	// Action-declared data rides along under the inputs.
	if action := t.findAction(); action != nil {
		switch data := action["data"].(type) {
		case map[string]interface{}:
			merged := map[string]interface{}{}
			for k, v := range data {
				merged[k] = card.Copy(v)
			}
			for k, v := range t.inputs {
				merged[k] = v
			}
			t.inputs = merged
		case string:
			if _, taken := t.inputs["actionData"]; !taken {
				t.inputs["actionData"] = data
			}
		}
	}

	t.states = append(t.states, card.StateUpdate{
		Op:    card.OpMerge,
		Path:  "form_data",
		Value: t.inputs,
	})
}

// showCard records which sub-card is now active for this card
// instance.  The event is informational; the state update is what a
// re-render reads.
func (t *translator) showCard() {
	sub, _ := t.in.Meta("subcardId")
	if sub == "" {
		sub = t.in.ActionID
	}
	t.states = append(t.states, card.StateUpdate{
		Op:    card.OpSet,
		Path:  "ui.active_show_card." + t.in.CardInstanceID,
		Value: sub,
	})
}

// toggle flips the recorded visibility for the toggling action.  The
// host owns actual element visibility; the engine just remembers the
// last state so re-renders agree with what the user sees.
func (t *translator) toggle() {
	visible := true
	switch raw := t.in.Metadata["visible"].(type) {
	case bool:
		visible = raw
	case string:
		visible = raw == "true"
	}
	t.states = append(t.states, card.StateUpdate{
		Op:    card.OpSet,
		Path:  "ui.visibility." + t.in.ActionID,
		Value: visible,
	})
}

// sessionFromMetadata turns routing metadata into a session update.
func (t *translator) sessionFromMetadata() {
	if route, ok := t.in.Meta("route"); ok && route != "" {
		t.sessions = append(t.sessions, card.SessionUpdate{
			Op:    card.SessionSetRoute,
			Value: route,
		})
		if t.event != nil {
			t.event.Route = route
		}
	}
}

// findAction locates the action node the interaction names, walking
// actions, selectActions, and ShowCard sub-cards.
func (t *translator) findAction() map[string]interface{} {
	if t.in.ActionID == "" {
		return nil
	}
	return findActionByID(t.tree, t.in.ActionID)
}

func (t *translator) actionField(field string) (string, bool) {
	action := t.findAction()
	if action == nil {
		return "", false
	}
	s, ok := action[field].(string)
	return s, ok
}

func findActionByID(x interface{}, id string) map[string]interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		if card.KindOf(vv).IsAction() {
			if got, _ := vv["id"].(string); got == id {
				return vv
			}
		}
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found := findActionByID(vv[k], id); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, y := range vv {
			if found := findActionByID(y, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// normalizeInputs canonicalizes raw host input values into an object.
// An object keeps its entries (blank keys dropped); a string is
// parsed as JSON when possible; anything else lands under "value".
func normalizeInputs(raw interface{}) map[string]interface{} {
	switch vv := raw.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		out := map[string]interface{}{}
		for k, v := range vv {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			c, err := card.Canonicalize(v)
			if err != nil {
				continue
			}
			out[k] = c
		}
		return out
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(vv), &parsed); err == nil {
			if m, is := parsed.(map[string]interface{}); is {
				return normalizeInputs(m)
			}
			return map[string]interface{}{"value": parsed}
		}
		return map[string]interface{}{"value": vv}
	default:
		c, err := card.Canonicalize(vv)
		if err != nil {
			return map[string]interface{}{}
		}
		return map[string]interface{}{"value": c}
	}
}
