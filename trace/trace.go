// Package trace emits structured events describing what the render
// pipeline did, for offline debugging.  Tracing is off unless
// FLOWCARD_TRACE is set.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/util"
)

// Event is one trace record.  Input hashes identify the trees an
// invocation saw without capturing them; CaptureInputs adds the trees
// themselves.
type Event struct {
	Time   string `json:"time"`
	Name   string `json:"event"`
	NodeID string `json:"nodeId,omitempty"`

	PayloadHash string `json:"payloadHash,omitempty"`
	SessionHash string `json:"sessionHash,omitempty"`
	StateHash   string `json:"stateHash,omitempty"`
	CardHash    string `json:"cardHash,omitempty"`

	Inputs map[string]interface{} `json:"inputs,omitempty"`

	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Enabled reports whether tracing is on.  Naming an output file
// turns tracing on by itself.
func Enabled() bool {
	return envTrue("FLOWCARD_TRACE") || os.Getenv("FLOWCARD_TRACE_OUT") != ""
}

// CaptureInputs reports whether traces should embed full input trees
// rather than just their hashes.
func CaptureInputs() bool {
	return envTrue("FLOWCARD_TRACE_CAPTURE_INPUTS")
}

func envTrue(name string) bool {
	switch os.Getenv(name) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// Out is where Emit writes.  FLOWCARD_TRACE_OUT can point it at a
// file; otherwise stderr.
var Out io.Writer

func output() io.Writer {
	if Out != nil {
		return Out
	}
	if filename := os.Getenv("FLOWCARD_TRACE_OUT"); filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			util.Logf("trace: cannot open %s: %s", filename, err)
			Out = os.Stderr
			return Out
		}
		Out = f
		return Out
	}
	Out = os.Stderr
	return Out
}

// Hash returns a stable content hash of a canonical tree, as
// "sha256:<hex>".  Map keys are sorted by the JSON encoder, so equal
// trees hash equal.
func Hash(tree interface{}) string {
	js, err := json.Marshal(&tree)
	if err != nil {
		return "sha256:unhashable"
	}
	sum := sha256.Sum256(js)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// New starts an event with the common identifying fields filled in.
func New(name, nodeID string, payload, session, state interface{}) *Event {
	e := &Event{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Name:        name,
		NodeID:      nodeID,
		PayloadHash: Hash(payload),
		SessionHash: Hash(session),
		StateHash:   Hash(state),
	}
	if CaptureInputs() {
		e.Inputs = map[string]interface{}{
			"payload": payload,
			"session": session,
			"state":   state,
		}
	}
	return e
}

// Field attaches an extra field and returns the event for chaining.
func (e *Event) Field(key string, val interface{}) *Event {
	if e.Fields == nil {
		e.Fields = map[string]interface{}{}
	}
	e.Fields[key] = val
	return e
}

// BuildEvent assembles the invocation-level telemetry record: card
// source, binding summary, interaction summary, and state hashes.
// Unlike Emit's side-channel events, this one travels back to the
// caller on the result.
func BuildEvent(inv *card.Invocation, bindingSummary interface{}, stateKey, readHash, writeHash string) card.TelemetryEvent {
	props := map[string]interface{}{
		"cardSource":     string(inv.Source),
		"bindingSummary": bindingSummary,
		"stateSummary": map[string]interface{}{
			"stateKey":       stateKey,
			"stateReadHash":  readHash,
			"stateWriteHash": writeHash,
		},
	}

	if in := inv.Interaction; in != nil {
		route, _ := in.Meta("route")
		props["interactionSummary"] = map[string]interface{}{
			"type":           in.Type,
			"actionId":       in.ActionID,
			"cardInstanceId": in.CardInstanceID,
			"route":          route,
		}
	}

	if CaptureInputs() {
		inputs := map[string]interface{}{
			"payload": inv.Payload,
			"session": inv.Session,
			"state":   inv.State,
		}
		if inv.Interaction != nil {
			inputs["interactionRawInputs"] = inv.Interaction.RawInputs
		}
		props["inputs"] = inputs
	}

	return card.TelemetryEvent{Name: "card.trace", Properties: props}
}

// Emit writes the event as one JSON line, when tracing is enabled.
func (e *Event) Emit() {
	if !Enabled() {
		return
	}
	js, err := json.Marshal(e)
	if err != nil {
		util.Logf("trace: %s", err)
		return
	}
	js = append(js, '\n')
	if _, err := output().Write(js); err != nil {
		util.Logf("trace: %s", err)
	}
}
