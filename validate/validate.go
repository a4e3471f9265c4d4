// Package validate checks the structure of a rendered card tree.
//
// Validation is best-effort and total: it never stops at the first
// problem, and a malformed subtree only suppresses the checks that
// depend on the malformed part.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flowcard/flowcard/card"
)

var supportedVersions = map[string]bool{
	"1.0": true, "1.1": true, "1.2": true,
	"1.3": true, "1.4": true, "1.5": true, "1.6": true,
}

// Check validates a card tree against the AdaptiveCard structural
// rules and returns every issue found, in document order (object keys
// walked sorted).
func Check(tree interface{}) []card.Issue {
	v := &validator{
		inputIDs:  map[string]string{},
		actionIDs: map[string]string{},
	}

	root, is := tree.(map[string]interface{})
	if !is {
		v.issue(card.Error, "invalid-root", "", "card root must be an object")
		return v.issues
	}
	if t, _ := root["type"].(string); t != "AdaptiveCard" {
		v.issue(card.Error, "invalid-type", "/type",
			"card root must have type 'AdaptiveCard'")
	}
	switch ver := root["version"].(type) {
	case nil:
		v.issue(card.Error, "missing-version", "", "card root must declare a version")
	case string:
		if !supportedVersions[ver] {
			v.issue(card.Warning, "unsupported-version", "/version",
				fmt.Sprintf("version '%s' is outside the supported 1.0-1.6 range", ver))
		}
	default:
		v.issue(card.Error, "missing-version", "/version", "version must be a string")
	}

	v.checkBody(root, "")
	v.checkActions(root, "")

	return v.issues
}

type validator struct {
	issues []card.Issue

	// first-seen id -> path, for duplicate reporting
	inputIDs  map[string]string
	actionIDs map[string]string
}

func (v *validator) issue(sev card.Severity, code, path, message string) {
	v.issues = append(v.issues, card.Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: sev,
	})
}

func (v *validator) checkBody(node map[string]interface{}, path string) {
	body, present := node["body"]
	if !present {
		return
	}
	items, is := body.([]interface{})
	if !is {
		v.issue(card.Error, "invalid-body", path+"/body", "body must be an array")
		return
	}
	for i, item := range items {
		v.element(item, path+"/body/"+strconv.Itoa(i))
	}
}

func (v *validator) checkActions(node map[string]interface{}, path string) {
	acts, present := node["actions"]
	if !present {
		return
	}
	items, is := acts.([]interface{})
	if !is {
		v.issue(card.Error, "invalid-actions", path+"/actions", "actions must be an array")
		return
	}
	for i, item := range items {
		v.action(item, path+"/actions/"+strconv.Itoa(i))
	}
}

// element validates one body element and recurses into its children.
func (v *validator) element(x interface{}, path string) {
	node, is := x.(map[string]interface{})
	if !is {
		v.issue(card.Error, "invalid-type", path, "element must be an object")
		return
	}
	kind := card.KindOf(node)
	if kind.Raw == "" {
		v.issue(card.Error, "invalid-type", path, "element has no type")
		return
	}
	if kind.Class == card.KindUnknown && !kind.IsAction() {
		v.issue(card.Warning, "unknown-type", path+"/type",
			fmt.Sprintf("unknown element type '%s'", kind.Raw))
	}

	if kind.IsInput() {
		v.inputID(node, path)
	}

	switch kind.Raw {
	case "Input.ChoiceSet":
		v.choiceSet(node, path)
	case "Input.Number", "Input.Date", "Input.Time":
		v.rangeBounds(node, path)
	case "ColumnSet":
		v.columnSet(node, path)
	case "ImageSet":
		v.itemArray(node, path, "images", "invalid-images", "empty-images")
	case "FactSet":
		v.factSet(node, path)
	case "Media":
		v.media(node, path)
	case "Image":
		if _, ok := node["url"].(string); !ok {
			v.issue(card.Error, "missing-url", path, "Image requires a url")
		}
	case "Container":
		v.containerItems(node, path)
	case "Table":
		v.table(node, path)
	}

	// Any element may carry a selectAction or nested actions.
	if sa, present := node["selectAction"]; present {
		v.action(sa, path+"/selectAction")
	}
	v.checkActions(node, path)
}

func (v *validator) inputID(node map[string]interface{}, path string) {
	id, ok := node["id"].(string)
	if !ok || id == "" {
		v.issue(card.Error, "missing-id", path, "input element requires an id")
		return
	}
	if prev, seen := v.inputIDs[id]; seen {
		v.issue(card.Error, "duplicate-id", path,
			fmt.Sprintf("input id '%s' already used at %s", id, diagPath(prev)))
		return
	}
	v.inputIDs[id] = path
}

func (v *validator) choiceSet(node map[string]interface{}, path string) {
	raw, present := node["choices"]
	if !present {
		v.issue(card.Error, "missing-choices", path, "Input.ChoiceSet requires choices")
		return
	}
	choices, is := raw.([]interface{})
	if !is {
		v.issue(card.Error, "invalid-choices", path+"/choices", "choices must be an array")
		return
	}
	if len(choices) == 0 {
		v.issue(card.Error, "empty-choices", path+"/choices", "choices must not be empty")
		return
	}
	for i, c := range choices {
		cp := path + "/choices/" + strconv.Itoa(i)
		choice, is := c.(map[string]interface{})
		if !is {
			v.issue(card.Error, "invalid-choice", cp, "choice must be an object")
			continue
		}
		if _, ok := choice["title"].(string); !ok {
			v.issue(card.Error, "invalid-choice", cp, "choice requires a title")
		}
		if _, ok := choice["value"].(string); !ok {
			v.issue(card.Error, "invalid-choice", cp, "choice requires a value")
		}
	}
}

// rangeBounds flags min > max on numeric and date/time inputs.
// String bounds compare lexically, which is correct for the ISO
// formats these inputs carry.
func (v *validator) rangeBounds(node map[string]interface{}, path string) {
	lo, hasLo := node["min"]
	hi, hasHi := node["max"]
	if !hasLo || !hasHi {
		return
	}
	bad := false
	switch a := lo.(type) {
	case float64:
		b, is := hi.(float64)
		bad = is && a > b
	case string:
		b, is := hi.(string)
		bad = is && a > b
	}
	if bad {
		v.issue(card.Error, "invalid-range", path, "min must not exceed max")
	}
}

func (v *validator) columnSet(node map[string]interface{}, path string) {
	raw, present := node["columns"]
	if !present {
		return
	}
	cols, is := raw.([]interface{})
	if !is {
		v.issue(card.Error, "invalid-columns", path+"/columns", "columns must be an array")
		return
	}
	if len(cols) == 0 {
		v.issue(card.Error, "empty-columns", path+"/columns", "columns must not be empty")
		return
	}
	for i, c := range cols {
		cp := path + "/columns/" + strconv.Itoa(i)
		col, is := c.(map[string]interface{})
		if !is {
			v.issue(card.Error, "invalid-columns", cp, "column must be an object")
			continue
		}
		v.containerItems(col, cp)
	}
}

func (v *validator) itemArray(node map[string]interface{}, path, field, badCode, emptyCode string) {
	raw, present := node[field]
	if !present {
		return
	}
	items, is := raw.([]interface{})
	if !is {
		v.issue(card.Error, badCode, path+"/"+field, field+" must be an array")
		return
	}
	if len(items) == 0 {
		v.issue(card.Error, emptyCode, path+"/"+field, field+" must not be empty")
		return
	}
	for i, item := range items {
		v.element(item, path+"/"+field+"/"+strconv.Itoa(i))
	}
}

func (v *validator) factSet(node map[string]interface{}, path string) {
	facts, is := node["facts"].([]interface{})
	if !is {
		return
	}
	for i, f := range facts {
		fp := path + "/facts/" + strconv.Itoa(i)
		fact, is := f.(map[string]interface{})
		if !is {
			continue
		}
		if _, ok := fact["title"].(string); !ok {
			v.issue(card.Error, "missing-title", fp, "fact requires a title")
		}
	}
}

func (v *validator) media(node map[string]interface{}, path string) {
	raw, present := node["sources"]
	if !present {
		v.issue(card.Error, "missing-sources", path, "Media requires sources")
		return
	}
	sources, is := raw.([]interface{})
	if !is || len(sources) == 0 {
		v.issue(card.Error, "invalid-sources", path+"/sources",
			"sources must be a non-empty array")
		return
	}
	for i, s := range sources {
		sp := path + "/sources/" + strconv.Itoa(i)
		src, is := s.(map[string]interface{})
		if !is {
			v.issue(card.Error, "invalid-source", sp, "source must be an object")
			continue
		}
		if _, ok := src["url"].(string); !ok {
			v.issue(card.Error, "missing-url", sp, "source requires a url")
		}
	}
}

func (v *validator) containerItems(node map[string]interface{}, path string) {
	items, is := node["items"].([]interface{})
	if !is {
		return
	}
	for i, item := range items {
		v.element(item, path+"/items/"+strconv.Itoa(i))
	}
}

func (v *validator) table(node map[string]interface{}, path string) {
	rows, is := node["rows"].([]interface{})
	if !is {
		return
	}
	for i, r := range rows {
		rp := path + "/rows/" + strconv.Itoa(i)
		row, is := r.(map[string]interface{})
		if !is {
			continue
		}
		cells, is := row["cells"].([]interface{})
		if !is {
			continue
		}
		for j, c := range cells {
			cp := rp + "/cells/" + strconv.Itoa(j)
			cell, is := c.(map[string]interface{})
			if !is {
				continue
			}
			v.containerItems(cell, cp)
		}
	}
}

// action validates one action and recurses into ShowCard sub-cards.
func (v *validator) action(x interface{}, path string) {
	node, is := x.(map[string]interface{})
	if !is {
		v.issue(card.Error, "invalid-type", path, "action must be an object")
		return
	}
	kind := card.KindOf(node)
	if kind.Raw == "" {
		v.issue(card.Error, "invalid-type", path, "action has no type")
		return
	}
	if !kind.IsAction() {
		v.issue(card.Error, "invalid-type", path+"/type",
			fmt.Sprintf("'%s' is not an action type", kind.Raw))
		return
	}
	if kind.Class == card.KindUnknown {
		v.issue(card.Warning, "unknown-type", path+"/type",
			fmt.Sprintf("unknown action type '%s'", kind.Raw))
	}

	if id, ok := node["id"].(string); ok && id != "" {
		if prev, seen := v.actionIDs[id]; seen {
			v.issue(card.Error, "duplicate-action-id", path,
				fmt.Sprintf("action id '%s' already used at %s", id, diagPath(prev)))
		} else {
			v.actionIDs[id] = path
		}
	}

	switch kind.Raw {
	case "Action.OpenUrl":
		if _, ok := node["url"].(string); !ok {
			v.issue(card.Error, "missing-url", path, "Action.OpenUrl requires a url")
		}
	case "Action.Execute":
		if _, ok := node["verb"].(string); !ok {
			v.issue(card.Error, "missing-verb", path, "Action.Execute requires a verb")
		}
		v.checkData(node, path)
	case "Action.Submit":
		v.checkData(node, path)
	case "Action.ShowCard":
		raw, present := node["card"]
		if !present {
			v.issue(card.Error, "missing-card", path, "Action.ShowCard requires a card")
			return
		}
		sub, is := raw.(map[string]interface{})
		if !is {
			v.issue(card.Error, "invalid-card", path+"/card", "card must be an object")
			return
		}
		v.checkBody(sub, path+"/card")
		v.checkActions(sub, path+"/card")
	case "Action.ToggleVisibility":
		v.targetElements(node, path)
	}
}

func (v *validator) checkData(node map[string]interface{}, path string) {
	data, present := node["data"]
	if !present {
		return
	}
	switch data.(type) {
	case map[string]interface{}, string:
	default:
		v.issue(card.Error, "invalid-data", path+"/data",
			"data must be an object or a string")
	}
}

func (v *validator) targetElements(node map[string]interface{}, path string) {
	raw, present := node["targetElements"]
	if !present {
		v.issue(card.Error, "missing-target-elements", path,
			"Action.ToggleVisibility requires targetElements")
		return
	}
	targets, is := raw.([]interface{})
	if !is {
		v.issue(card.Error, "missing-target-elements", path+"/targetElements",
			"targetElements must be an array")
		return
	}
	if len(targets) == 0 {
		v.issue(card.Error, "empty-target-elements", path+"/targetElements",
			"targetElements must not be empty")
	}
}

// diagPath renders a path for message text, naming the root.
func diagPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// Sort orders issues by path, then code, for stable output.
func Sort(issues []card.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return pathLess(issues[i].Path, issues[j].Path)
		}
		return issues[i].Code < issues[j].Code
	})
}

func pathLess(a, b string) bool {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}
