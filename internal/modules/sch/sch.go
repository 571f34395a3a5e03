// Package sch holds the Scholar analysis modules: the Aetherflow and Faerie
// gauges.
package sch

import (
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/modules/core"
)

// Module handles.
const (
	HandleAetherflow engine.Handle = "aetherflow"
	HandleFaerie     engine.Handle = "faerie"
)

// Descriptors returns the Scholar modules in registration order.
func Descriptors() []engine.Descriptor {
	return []engine.Descriptor{
		{Handle: HandleAetherflow, Dependencies: []engine.Handle{core.HandleStatuses, core.HandleCooldowns}, New: NewAetherflow},
		{Handle: HandleFaerie, Dependencies: []engine.Handle{core.HandleStatuses}, New: NewFaerie},
	}
}

// castModifiers resolves action keys into cast modifiers.
func castModifiers(data *gamedata.Table, deltas map[string]int, into core.Modifiers) error {
	for key, delta := range deltas {
		a, err := data.ActionByKey(key)
		if err != nil {
			return err
		}
		into[core.ModifierKey{Type: event.TypeCast, Ability: a.ID}] = delta
	}
	return nil
}
