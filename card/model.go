// Package card defines the data model shared by the rendering
// pipeline: invocations, interactions, update operations, validation
// issues, feature summaries, and results.
//
// A card tree is just an interface{} holding what encoding/json
// produces: nil, bool, float64, string, []interface{}, or
// map[string]interface{}.  See Canonicalize.
package card

import (
	"encoding/json"
	"errors"
)

// Source says where a card tree comes from.
type Source string

const (
	// SourceInline means the card is embedded in the Spec.
	SourceInline Source = "inline"

	// SourceAsset means the card is loaded from a file path.
	SourceAsset Source = "asset"

	// SourceCatalog means the card is loaded by catalog name.
	SourceCatalog Source = "catalog"
)

// Spec describes how to obtain a card and what template parameters to
// render it with.
type Spec struct {
	// InlineJSON is the card itself (for SourceInline).
	InlineJSON interface{} `json:"inlineJson,omitempty"`

	// AssetPath is a file path or registry key (for SourceAsset).
	AssetPath string `json:"assetPath,omitempty"`

	// CatalogName is a catalog key (for SourceCatalog).
	CatalogName string `json:"catalogName,omitempty"`

	// TemplateParams populates the "params" namespace.
	TemplateParams map[string]interface{} `json:"templateParams,omitempty"`

	// ComputedParams gives params that are computed by an
	// Interpreter before rendering.  A computed param never
	// overrides an explicit TemplateParam.
	ComputedParams map[string]*ParamSource `json:"computedParams,omitempty"`

	// AssetRegistry optionally maps asset/catalog names to paths.
	AssetRegistry map[string]string `json:"assetRegistry,omitempty"`
}

// ParamSource is code that an Interpreter can run to produce a
// template parameter.
type ParamSource struct {
	Interpreter string      `json:"interpreter,omitempty"`
	Source      interface{} `json:"source"`
}

// Mode selects what an invocation should do.
type Mode string

const (
	ModeRender            Mode = "render"
	ModeValidate          Mode = "validate"
	ModeRenderAndValidate Mode = "renderAndValidate"
)

// ValidationMode says how the invocation layer treats error-severity
// validation issues.  The core always just reports them.
type ValidationMode string

const (
	ValidationOff   ValidationMode = "off"
	ValidationWarn  ValidationMode = "warn"
	ValidationError ValidationMode = "error"
)

// Invocation is one complete render (or interaction) request.
//
// Payload, Session, and State are trees handed in by the caller.  The
// core never fetches or persists anything on its own.
type Invocation struct {
	Source Source `json:"cardSource,omitempty"`
	Spec   Spec   `json:"cardSpec,omitempty"`

	// NodeID optionally names the flow node this card belongs to.
	NodeID string `json:"nodeId,omitempty"`

	Payload interface{} `json:"payload,omitempty"`
	Session interface{} `json:"session,omitempty"`
	State   interface{} `json:"state,omitempty"`

	Interaction *Interaction `json:"interaction,omitempty"`

	Mode           Mode           `json:"mode,omitempty"`
	ValidationMode ValidationMode `json:"validationMode,omitempty"`
}

// InteractionType enumerates the recognized interaction types.
type InteractionType string

const (
	Submit           InteractionType = "Submit"
	Execute          InteractionType = "Execute"
	OpenURL          InteractionType = "OpenUrl"
	ShowCard         InteractionType = "ShowCard"
	ToggleVisibility InteractionType = "ToggleVisibility"
)

// ParseInteractionType reports whether s names a recognized
// interaction type.  Unrecognized types are a hard failure for the
// translator, so there is no "unknown" variant here.
func ParseInteractionType(s string) (InteractionType, bool) {
	switch InteractionType(s) {
	case Submit, Execute, OpenURL, ShowCard, ToggleVisibility:
		return InteractionType(s), true
	}
	return "", false
}

// Interaction is a user action against a rendered card.
type Interaction struct {
	// Enabled, when explicitly false, makes the invocation layer
	// ignore this interaction entirely.
	Enabled *bool `json:"enabled,omitempty"`

	// Type is the raw interaction type string.  See
	// ParseInteractionType.
	Type string `json:"interactionType"`

	ActionID       string `json:"actionId"`
	Verb           string `json:"verb,omitempty"`
	CardInstanceID string `json:"cardInstanceId"`

	// RawInputs holds the submitted input values (usually an
	// object keyed by input id).
	RawInputs interface{} `json:"rawInputs,omitempty"`

	// Metadata carries extra routing data ("route", "cardId",
	// "subcardId", "visible", ...).
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Meta fetches a string-valued metadata property.
func (i *Interaction) Meta(key string) (string, bool) {
	if i.Metadata == nil {
		return "", false
	}
	s, is := i.Metadata[key].(string)
	return s, is
}

// ActionEvent is the routing event the caller acts on after an
// interaction is translated.
type ActionEvent struct {
	Type           InteractionType        `json:"actionType"`
	ActionID       string                 `json:"actionId"`
	Verb           string                 `json:"verb,omitempty"`
	Route          string                 `json:"route,omitempty"`
	Inputs         interface{}            `json:"inputs,omitempty"`
	CardID         string                 `json:"cardId"`
	CardInstanceID string                 `json:"cardInstanceId"`
	SubcardID      string                 `json:"subcardId,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateOp is the kind of a declarative update operation.
type UpdateOp string

const (
	OpSet    UpdateOp = "set"
	OpMerge  UpdateOp = "merge"
	OpDelete UpdateOp = "delete"
)

// StateUpdate describes a mutation the caller should apply to its
// state store.  The core never applies these itself; see store.Apply
// for the reference semantics.
type StateUpdate struct {
	Op    UpdateOp    `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// SessionOp is the kind of a session update.
type SessionOp string

const (
	SessionSetRoute     SessionOp = "setRoute"
	SessionSetAttribute SessionOp = "setAttribute"
	SessionDelAttribute SessionOp = "deleteAttribute"
)

// SessionUpdate describes a mutation to the caller's session.
type SessionUpdate struct {
	Op    SessionOp   `json:"op"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// Severity of a validation issue.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Issue is one validation (or rendering) diagnostic.  Issues are
// data, not errors: they are collected and returned, never thrown.
type Issue struct {
	// Code is a stable identifier like "missing-id".
	Code string `json:"code"`

	Message string `json:"message"`

	// Path is a JSON-pointer-style location like "/body/0".
	Path string `json:"path"`

	Severity Severity `json:"severity"`
}

// FeatureSummary tallies the optional card features a rendered tree
// uses.  Downstream channel adapters use it to decide how to
// downsample a card for less-capable channels.
type FeatureSummary struct {
	Version string `json:"version,omitempty"`

	// UsedElements and UsedActions are sorted.
	UsedElements []string `json:"usedElements"`
	UsedActions  []string `json:"usedActions"`

	ElementCounts map[string]int `json:"elementCounts,omitempty"`
	ActionCounts  map[string]int `json:"actionCounts,omitempty"`

	UsesShowCard         bool `json:"usesShowCard"`
	UsesToggleVisibility bool `json:"usesToggleVisibility"`
	UsesMedia            bool `json:"usesMedia"`
	UsesInputs           bool `json:"usesInputs"`
	UsesAuth             bool `json:"usesAuth"`

	// Requires merges any "requires" declarations found in the
	// card.  First declaration of a feature wins.
	Requires map[string]interface{} `json:"requiresFeatures,omitempty"`
}

// TelemetryEvent is an opaque named event for the host's telemetry
// sink.
type TelemetryEvent struct {
	Name       string      `json:"name"`
	Properties interface{} `json:"properties,omitempty"`
}

// Result is what an invocation returns to the caller.
type Result struct {
	RenderedCard interface{}  `json:"renderedCard,omitempty"`
	Event        *ActionEvent `json:"event,omitempty"`

	StateUpdates   []StateUpdate   `json:"stateUpdates,omitempty"`
	SessionUpdates []SessionUpdate `json:"sessionUpdates,omitempty"`

	Features FeatureSummary `json:"cardFeatures"`

	// Issues are structural validation issues (always non-fatal).
	Issues []Issue `json:"validationIssues,omitempty"`

	// Diagnostics are rendering diagnostics: missing paths, bad
	// expressions contained to their leaves.
	Diagnostics []Issue `json:"renderDiagnostics,omitempty"`

	Telemetry []TelemetryEvent `json:"telemetryEvents,omitempty"`
}

// ErrInterpreterNotFound occurs when a ComputedParam names an
// interpreter that isn't registered.
var ErrInterpreterNotFound = errors.New("interpreter not found")

// Canonicalize forces x into the universal JSON tree shape via an
// encode/decode round trip.
func Canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// Copy makes a deep copy of a canonical tree.  Scalars are shared
// (they're immutable); maps and slices are rebuilt.
func Copy(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = Copy(v)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(vv))
		for i, v := range vv {
			s[i] = Copy(v)
		}
		return s
	default:
		return x
	}
}
