package engine

import (
	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/suggest"
)

// Handle is the stable unique key of a module.
type Handle string

// Module is any analysis unit value. Behaviour beyond subscriptions is
// discovered through the optional interfaces below.
type Module any

// Constructor builds a module. It may subscribe to events and look up its
// declared dependencies through ctx.
type Constructor func(ctx *Context) (Module, error)

// Descriptor declares a module to the registry.
type Descriptor struct {
	Handle       Handle
	Dependencies []Handle
	New          Constructor
}

// Initializer is called right after construction, before any dependent
// module is constructed.
type Initializer interface {
	Init() error
}

// Prescanner receives a read-only copy of the whole stream before dispatch.
// Prescanners run in construction order.
type Prescanner interface {
	Prescan(events []event.Event) error
}

// Summarizer exposes a module's structured output.
type Summarizer interface {
	Summary() any
}

// Handler processes one matched event.
//
// Returning an error that wraps *MalformedEventError skips this invocation
// only. Any other error (or a panic) is a fault that disables the module.
type Handler func(ev event.Event) error

// Environment is the read-only collaborator set shared by one run.
type Environment struct {
	Data   *gamedata.Table
	Roster *actor.Roster

	// Sinks default to fresh instances when nil.
	Suggestions *suggest.Sink
	Checklist   *suggest.Checklist
}
