// Package mch holds the Machinist analysis modules: the heat gauge and
// Wildfire window quality.
package mch

import (
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/modules/core"
)

// Module handles.
const (
	HandleHeat     engine.Handle = "heat"
	HandleWildfire engine.Handle = "wildfire"
)

// Descriptors returns the Machinist modules in registration order.
func Descriptors() []engine.Descriptor {
	return []engine.Descriptor{
		{Handle: HandleHeat, Dependencies: []engine.Handle{core.HandleStatuses}, New: NewHeat},
		{Handle: HandleWildfire, Dependencies: []engine.Handle{core.HandleStatuses, HandleHeat}, New: NewWildfire},
	}
}
