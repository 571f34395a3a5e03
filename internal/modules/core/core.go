// Package core holds the analysis modules every job registry shares:
// status tracking, cooldown usage and player deaths.
package core

import (
	"errors"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
)

// Module handles.
const (
	HandleStatuses  engine.Handle = "statuses"
	HandleCooldowns engine.Handle = "cooldowns"
	HandleDeaths    engine.Handle = "deaths"
)

var (
	// ErrNoRoster is returned by constructors that need the selected player.
	ErrNoRoster = errors.New("module requires a participant roster")

	// ErrNoStaticData is returned by constructors that need ability tables.
	ErrNoStaticData = errors.New("module requires static data")
)

// Descriptors returns the core modules in registration order.
func Descriptors() []engine.Descriptor {
	return []engine.Descriptor{
		{Handle: HandleStatuses, New: NewStatuses},
		{Handle: HandleCooldowns, New: NewCooldowns},
		{Handle: HandleDeaths, New: NewDeaths},
	}
}

// PlayerID returns the selected player's id from the run roster.
func PlayerID(ctx *engine.Context) (int64, error) {
	r := ctx.Roster()
	if r == nil {
		return 0, ErrNoRoster
	}
	return r.PlayerID(), nil
}

// Player is the filter for events cast by the selected player.
func Player() event.Filter {
	return event.Filter{By: event.Roles(event.RolePlayer)}
}

// ModifierKey identifies a gauge modifier by event type and ability id.
type ModifierKey struct {
	Type    event.Type
	Ability int
}

// Modifiers maps (event type, ability) to a gauge delta.
type Modifiers map[ModifierKey]int

// Lookup returns the delta for ev, or 0.
func (m Modifiers) Lookup(ev event.Event) int {
	id, ok := ev.Ability()
	if !ok {
		return 0
	}
	return m[ModifierKey{Type: ev.Type, Ability: id}]
}

// Abilities returns every ability id with a modifier.
func (m Modifiers) Abilities() event.IDSet {
	ids := make(event.IDSet, len(m))
	for k := range m {
		ids[k.Ability] = struct{}{}
	}
	return ids
}

// Types returns the distinct event types with a modifier, in a fixed order.
func (m Modifiers) Types() []event.Type {
	seen := make(map[event.Type]bool)
	var types []event.Type
	for _, t := range []event.Type{event.TypeCast, event.TypeDamage, event.TypeHeal} {
		for k := range m {
			if k.Type == t && !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types
}
