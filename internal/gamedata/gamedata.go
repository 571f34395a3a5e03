// Package gamedata provides the read-only ability and status lookup tables
// the analysis modules query by numeric id.
//
// Tables are authored in CUE. The embedded default table can be extended or
// overridden by unifying additional CUE sources; the #Action and #Status
// schemas apply to every entry, so malformed overrides fail at load time.
package gamedata

import (
	"errors"
	"fmt"
	"sort"
)

// Action is static metadata for an ability.
type Action struct {
	Key      string `json:"-"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	OnGCD    bool   `json:"onGCD"`
	Cooldown int64  `json:"cooldown"` // ms
	Pet      bool   `json:"pet"`
}

// Status is static metadata for a buff or debuff.
type Status struct {
	Key      string `json:"-"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Duration int64  `json:"duration"` // ms
}

var (
	// ErrUnknownAction is returned when a key or id has no action entry.
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnknownStatus is returned when a key or id has no status entry.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrDuplicateID is returned when two entries of one table share an id.
	ErrDuplicateID = errors.New("duplicate id")
)

// Table is an immutable index of actions and statuses.
type Table struct {
	actions    map[int]Action
	statuses   map[int]Status
	actionKeys map[string]int
	statusKeys map[string]int
}

// NewTable indexes keyed entries. Keys are copied onto the entries.
func NewTable(actions map[string]Action, statuses map[string]Status) (*Table, error) {
	t := &Table{
		actions:    make(map[int]Action, len(actions)),
		statuses:   make(map[int]Status, len(statuses)),
		actionKeys: make(map[string]int, len(actions)),
		statusKeys: make(map[string]int, len(statuses)),
	}
	for _, key := range sortedKeys(actions) {
		a := actions[key]
		a.Key = key
		if prev, dup := t.actions[a.ID]; dup {
			return nil, fmt.Errorf("action %s: %w %d (also %s)", key, ErrDuplicateID, a.ID, prev.Key)
		}
		t.actions[a.ID] = a
		t.actionKeys[key] = a.ID
	}
	for _, key := range sortedKeys(statuses) {
		s := statuses[key]
		s.Key = key
		if prev, dup := t.statuses[s.ID]; dup {
			return nil, fmt.Errorf("status %s: %w %d (also %s)", key, ErrDuplicateID, s.ID, prev.Key)
		}
		t.statuses[s.ID] = s
		t.statusKeys[key] = s.ID
	}
	return t, nil
}

// Action looks up an action by id.
func (t *Table) Action(id int) (Action, bool) {
	a, ok := t.actions[id]
	return a, ok
}

// Status looks up a status by id.
func (t *Table) Status(id int) (Status, bool) {
	s, ok := t.statuses[id]
	return s, ok
}

// ActionByKey looks up an action by its stable key, e.g. "WILDFIRE".
func (t *Table) ActionByKey(key string) (Action, error) {
	id, ok := t.actionKeys[key]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, key)
	}
	return t.actions[id], nil
}

// StatusByKey looks up a status by its stable key.
func (t *Table) StatusByKey(key string) (Status, error) {
	id, ok := t.statusKeys[key]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownStatus, key)
	}
	return t.statuses[id], nil
}

// ActionIDs resolves several keys at once, failing on the first unknown key.
func (t *Table) ActionIDs(keys ...string) ([]int, error) {
	ids := make([]int, 0, len(keys))
	for _, key := range keys {
		a, err := t.ActionByKey(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// OnGCD reports whether the action is on the global cooldown. Unknown ids
// are treated as off-GCD.
func (t *Table) OnGCD(id int) bool {
	return t.actions[id].OnGCD
}

// Actions returns all actions ordered by id.
func (t *Table) Actions() []Action {
	out := make([]Action, 0, len(t.actions))
	for _, a := range t.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Statuses returns all statuses ordered by id.
func (t *Table) Statuses() []Status {
	out := make([]Status, 0, len(t.statuses))
	for _, s := range t.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
