// Package store holds card state between invocations and defines the
// reference semantics for applying state updates.
package store

import (
	"fmt"
	"strings"

	"github.com/flowcard/flowcard/card"
)

// Store persists per-card state documents.  Keys follow the
// card:node:<id> / card:instance:<id> / card:default scheme; see
// Key.
type Store interface {
	Load(key string) (map[string]interface{}, error)
	Save(key string, state map[string]interface{}) error
	Delete(key string) error
}

// Key picks the storage key for an invocation: the node id when
// given, then the card instance id, then a shared default slot.
func Key(nodeID, cardInstanceID string) string {
	switch {
	case nodeID != "":
		return "card:node:" + nodeID
	case cardInstanceID != "":
		return "card:instance:" + cardInstanceID
	}
	return "card:default"
}

// BadUpdate reports a state update that cannot be applied.
type BadUpdate struct {
	Update card.StateUpdate
	Reason string
}

func (e *BadUpdate) Error() string {
	return fmt.Sprintf("cannot apply %s at '%s': %s", e.Update.Op, e.Update.Path, e.Reason)
}

// Apply applies updates to a state document in order, in place, and
// returns the document.  A nil document is allocated on first use.
// Paths are dotted; intermediate objects are created on set and
// merge, and a delete of a missing path is a no-op.  A merge into an
// existing object is a key-wise overlay; anything else degenerates
// to set.
func Apply(state map[string]interface{}, updates []card.StateUpdate) (map[string]interface{}, error) {
	if state == nil {
		state = map[string]interface{}{}
	}
	for _, u := range updates {
		if err := apply1(state, u); err != nil {
			return state, err
		}
	}
	return state, nil
}

func apply1(state map[string]interface{}, u card.StateUpdate) error {
	segs := strings.Split(u.Path, ".")
	for _, s := range segs {
		if s == "" {
			return &BadUpdate{Update: u, Reason: "empty path segment"}
		}
	}

	switch u.Op {
	case card.OpSet:
		parent := descend(state, segs[:len(segs)-1])
		parent[segs[len(segs)-1]] = card.Copy(u.Value)
	case card.OpMerge:
		obj, is := u.Value.(map[string]interface{})
		if !is {
			// Merging a non-object degenerates to set.
			parent := descend(state, segs[:len(segs)-1])
			parent[segs[len(segs)-1]] = card.Copy(u.Value)
			return nil
		}
		target := descend(state, segs)
		for k, v := range obj {
			target[k] = card.Copy(v)
		}
	case card.OpDelete:
		parent := lookup(state, segs[:len(segs)-1])
		if parent == nil {
			return nil
		}
		delete(parent, segs[len(segs)-1])
	default:
		return &BadUpdate{Update: u, Reason: "unknown op"}
	}
	return nil
}

// descend walks the objects along a path, creating them as needed.
// A non-object in the way is overwritten: set and merge always win
// over whatever scalar was there before.
func descend(state map[string]interface{}, segs []string) map[string]interface{} {
	at := state
	for _, s := range segs {
		m, is := at[s].(map[string]interface{})
		if !is {
			m = map[string]interface{}{}
			at[s] = m
		}
		at = m
	}
	return at
}

// lookup walks the objects along a path without creating anything.
func lookup(state map[string]interface{}, segs []string) map[string]interface{} {
	at := state
	for _, s := range segs {
		m, is := at[s].(map[string]interface{})
		if !is {
			return nil
		}
		at = m
	}
	return at
}

// Mem is an in-process Store for tests and single-shot CLI use.
type Mem struct {
	states map[string]map[string]interface{}
}

func NewMem() *Mem {
	return &Mem{states: map[string]map[string]interface{}{}}
}

func (m *Mem) Load(key string) (map[string]interface{}, error) {
	state, have := m.states[key]
	if !have {
		return nil, nil
	}
	out, is := card.Copy(state).(map[string]interface{})
	if !is {
		return nil, nil
	}
	return out, nil
}

func (m *Mem) Save(key string, state map[string]interface{}) error {
	copied, is := card.Copy(state).(map[string]interface{})
	if !is {
		copied = map[string]interface{}{}
	}
	m.states[key] = copied
	return nil
}

func (m *Mem) Delete(key string) error {
	delete(m.states, key)
	return nil
}
