// Package feature summarizes what a rendered card uses, so hosts can
// decide up front whether they can display it.
package feature

import (
	"sort"

	"github.com/flowcard/flowcard/card"
)

// Summarize walks a card tree and reports the element and action
// types in use, capability flags, and any host requirements the card
// declares.  Walk order is deterministic: object keys are visited
// sorted, arrays in order.
func Summarize(tree interface{}) card.FeatureSummary {
	s := &scanner{
		sum: card.FeatureSummary{
			ElementCounts: map[string]int{},
			ActionCounts:  map[string]int{},
			Requires:      map[string]interface{}{},
		},
	}

	if root, is := tree.(map[string]interface{}); is {
		if ver, ok := root["version"].(string); ok {
			s.sum.Version = ver
		}
	}
	s.walk(tree)

	s.sum.UsedElements = sortedKeys(s.sum.ElementCounts)
	s.sum.UsedActions = sortedKeys(s.sum.ActionCounts)
	return s.sum
}

type scanner struct {
	sum card.FeatureSummary
}

func (s *scanner) walk(x interface{}) {
	switch vv := x.(type) {
	case map[string]interface{}:
		s.node(vv)
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.walk(vv[k])
		}
	case []interface{}:
		for _, y := range vv {
			s.walk(y)
		}
	}
}

func (s *scanner) node(node map[string]interface{}) {
	kind := card.KindOf(node)

	switch kind.Class {
	case card.KindElement, card.KindInput:
		s.sum.ElementCounts[kind.Raw]++
	case card.KindAction:
		s.sum.ActionCounts[kind.Raw]++
	case card.KindUnknown:
		// Unknown types still count: a host that whitelists types
		// needs to see them.
		if kind.IsAction() {
			s.sum.ActionCounts[kind.Raw]++
		} else {
			s.sum.ElementCounts[kind.Raw]++
		}
	}

	switch kind.Raw {
	case "Action.ShowCard":
		s.sum.UsesShowCard = true
	case "Action.ToggleVisibility":
		s.sum.UsesToggleVisibility = true
	case "Media":
		s.sum.UsesMedia = true
	}
	if kind.Class == card.KindInput {
		s.sum.UsesInputs = true
	}

	if _, present := node["authentication"]; present {
		s.sum.UsesAuth = true
	}
	if _, present := node["refresh"]; present {
		s.sum.UsesAuth = true
	}

	if req, is := node["requires"].(map[string]interface{}); is {
		for k, v := range req {
			if _, seen := s.sum.Requires[k]; !seen {
				s.sum.Requires[k] = v
			}
		}
	}
}

func sortedKeys(m map[string]int) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
