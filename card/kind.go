package card

import "strings"

// KindClass is a coarse classification of a node's "type"
// discriminator.
type KindClass int

const (
	// KindNone means the node has no "type" property.
	KindNone KindClass = iota

	// KindElement is a body element ("TextBlock", "Container", ...).
	KindElement

	// KindInput is an input element ("Input.Text", ...).
	KindInput

	// KindAction is an action ("Action.Submit", ...).
	KindAction

	// KindUnknown is a discriminator we don't recognize.  The raw
	// string is preserved so callers can report it without
	// rejecting the node.
	KindUnknown
)

// Kind is a classified "type" discriminator.
type Kind struct {
	Raw   string
	Class KindClass
}

// knownElements are the element discriminators this package
// recognizes.  Anything else with a type is KindUnknown, which the
// validator reports (and tolerates) rather than rejects.
var knownElements = map[string]bool{
	"AdaptiveCard":  true,
	"TextBlock":     true,
	"RichTextBlock": true,
	"TextRun":       true,
	"Image":         true,
	"ImageSet":      true,
	"Media":         true,
	"MediaSource":   true,
	"Container":     true,
	"ColumnSet":     true,
	"Column":        true,
	"FactSet":       true,
	"Fact":          true,
	"Table":         true,
	"TableRow":      true,
	"TableCell":     true,
	"ActionSet":     true,
}

var knownActions = map[string]bool{
	"Action.Submit":           true,
	"Action.Execute":          true,
	"Action.OpenUrl":          true,
	"Action.ShowCard":         true,
	"Action.ToggleVisibility": true,
}

var knownInputs = map[string]bool{
	"Input.Text":      true,
	"Input.Number":    true,
	"Input.Date":      true,
	"Input.Time":      true,
	"Input.Toggle":    true,
	"Input.ChoiceSet": true,
	"Choice":          true,
}

// KindOf classifies the "type" property (if any) of a tree node.
func KindOf(node map[string]interface{}) Kind {
	s, is := node["type"].(string)
	if !is || s == "" {
		return Kind{Class: KindNone}
	}
	switch {
	case strings.HasPrefix(s, "Action."):
		if knownActions[s] {
			return Kind{Raw: s, Class: KindAction}
		}
		return Kind{Raw: s, Class: KindUnknown}
	case strings.HasPrefix(s, "Input."):
		if knownInputs[s] {
			return Kind{Raw: s, Class: KindInput}
		}
		return Kind{Raw: s, Class: KindUnknown}
	default:
		if knownElements[s] || knownInputs[s] {
			return Kind{Raw: s, Class: KindElement}
		}
		return Kind{Raw: s, Class: KindUnknown}
	}
}

// IsAction reports whether the raw discriminator is in the action
// category (recognized or not).
func (k Kind) IsAction() bool {
	return strings.HasPrefix(k.Raw, "Action.")
}

// IsInput reports whether the raw discriminator is in the input
// category (recognized or not).
func (k Kind) IsInput() bool {
	return strings.HasPrefix(k.Raw, "Input.")
}
