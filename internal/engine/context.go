package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/suggest"
)

// Context is a module's view of its run. It is handed to the constructor and
// may be retained by the module.
type Context struct {
	run  *Run
	inst *instance
	deps map[Handle]bool
}

// Handle returns the module's own handle.
func (c *Context) Handle() Handle { return c.inst.handle }

// Dep returns an already-built dependency. Only handles listed in the
// module's descriptor are reachable.
func (c *Context) Dep(h Handle) (Module, error) {
	if !c.deps[h] {
		return nil, fmt.Errorf("module %s requested %s: %w", c.inst.handle, h, ErrUndeclaredDependency)
	}
	i, ok := c.run.index[h]
	if !ok {
		// Unreachable after a successful Resolve.
		return nil, &MissingDependencyError{Module: c.inst.handle, Dependency: h}
	}
	return c.run.instances[i].module, nil
}

// Dep is the typed form of Context.Dep.
func Dep[T any](c *Context, h Handle) (T, error) {
	var zero T
	m, err := c.Dep(h)
	if err != nil {
		return zero, err
	}
	t, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("module %s dependency %s: %w: %T", c.inst.handle, h, ErrDependencyType, m)
	}
	return t, nil
}

// Data returns the static ability/status tables.
func (c *Context) Data() *gamedata.Table { return c.run.env.Data }

// Roster returns the participant roster.
func (c *Context) Roster() *actor.Roster { return c.run.env.Roster }

// Suggestions returns the module's write-only suggestion scope.
func (c *Context) Suggestions() *suggest.Suggestions {
	return c.run.suggestions.Scope(string(c.inst.handle))
}

// Checklist returns the module's write-only checklist scope.
func (c *Context) Checklist() *suggest.Rules {
	return c.run.checklist.Scope(string(c.inst.handle))
}

// Logger returns the run logger tagged with the module handle.
func (c *Context) Logger() *slog.Logger {
	return c.run.logger.With("module", string(c.inst.handle))
}

// SubOption configures a subscription.
type SubOption func(*subscription)

// Requires declares fields the handler needs. Matched events missing any of
// them are skipped for this subscription only.
func Requires(fields event.Field) SubOption {
	return func(s *subscription) {
		s.requires |= fields
	}
}

// On subscribes h to events of the given types that match f. Subscriptions
// are dispatched in the order they are registered.
func (c *Context) On(types []event.Type, f event.Filter, h Handler, opts ...SubOption) error {
	if c.run.closed {
		return fmt.Errorf("module %s: %w", c.inst.handle, ErrSubscriptionsClosed)
	}
	if len(types) == 0 {
		return fmt.Errorf("module %s: %w", c.inst.handle, ErrNoEventTypes)
	}
	if h == nil {
		return fmt.Errorf("module %s: %w", c.inst.handle, ErrNilHandler)
	}

	sub := subscription{
		types:   append([]event.Type(nil), types...),
		filter:  f,
		handler: h,
	}
	for _, opt := range opts {
		opt(&sub)
	}
	c.inst.subs = append(c.inst.subs, sub)
	return nil
}

// OnComplete subscribes h to the synthesised terminal event.
func (c *Context) OnComplete(h Handler) error {
	return c.On([]event.Type{event.TypeComplete}, event.Filter{}, h)
}

type subscription struct {
	types    []event.Type
	filter   event.Filter
	requires event.Field
	handler  Handler
}

func (s *subscription) accepts(t event.Type) bool {
	for _, st := range s.types {
		if st == t {
			return true
		}
	}
	return false
}
