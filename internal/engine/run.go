package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/suggest"
)

// Status is a module's health at the end of (or during) a run.
type Status string

const (
	// StatusOK means the module received every event it subscribed to.
	StatusOK Status = "ok"

	// StatusFailed means the module's own handler faulted.
	StatusFailed Status = "failed"

	// StatusDegraded means a dependency failed or degraded; the module stopped
	// receiving events at that point.
	StatusDegraded Status = "degraded"
)

// ModuleStatus describes one module's outcome.
type ModuleStatus struct {
	Handle Handle
	Status Status
	Fault  *HandlerFault // set when Status is StatusFailed
	Cause  Handle        // failed module behind a StatusDegraded
}

type instance struct {
	handle Handle
	deps   []Handle
	module Module
	subs   []subscription
	status Status
	fault  *HandlerFault
	cause  Handle
}

// Run is one analysis of one stream: an arena of constructed modules plus the
// sinks they write to. A Run is executed at most once and then discarded.
//
// CRITICAL: A Run is not safe for concurrent use. Distinct runs share nothing
// and may execute on different goroutines.
type Run struct {
	env         Environment
	logger      *slog.Logger
	observer    Observer
	suggestions *suggest.Sink
	checklist   *suggest.Checklist

	instances []*instance    // construction order
	index     map[Handle]int // handle → position in instances

	closed   bool // no more subscriptions
	executed bool
}

// Build resolves the registry and constructs every module in order.
//
// No module is constructed when resolution fails. A constructor or Init
// failure aborts the build with a *SetupError.
func Build(reg *Registry, env Environment, opts ...Option) (*Run, error) {
	order, err := reg.Resolve()
	if err != nil {
		return nil, err
	}

	r := &Run{
		env:         env,
		logger:      slog.Default(),
		observer:    NopObserver{},
		suggestions: env.Suggestions,
		checklist:   env.Checklist,
		instances:   make([]*instance, 0, len(order)),
		index:       make(map[Handle]int, len(order)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.suggestions == nil {
		r.suggestions = suggest.NewSink()
	}
	if r.checklist == nil {
		r.checklist = suggest.NewChecklist()
	}

	for _, h := range order {
		desc, _ := reg.Descriptor(h)
		if err := r.construct(desc); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("modules built", "count", len(r.instances))
	return r, nil
}

func (r *Run) construct(desc Descriptor) error {
	inst := &instance{
		handle: desc.Handle,
		deps:   desc.Dependencies,
		status: StatusOK,
	}
	deps := make(map[Handle]bool, len(desc.Dependencies))
	for _, d := range desc.Dependencies {
		deps[d] = true
	}
	ctx := &Context{run: r, inst: inst, deps: deps}

	// Registered before the constructor runs so it can subscribe.
	r.index[inst.handle] = len(r.instances)
	r.instances = append(r.instances, inst)

	m, err := desc.New(ctx)
	if err != nil {
		return &SetupError{Module: desc.Handle, Phase: "construct", Err: err}
	}
	inst.module = m

	if in, ok := m.(Initializer); ok {
		if err := in.Init(); err != nil {
			return &SetupError{Module: desc.Handle, Phase: "init", Err: err}
		}
	}
	return nil
}

// Execute dispatches the stream and then the synthesised complete event.
// The caller's events are never modified.
//
// The stream is validated first; an invalid stream is returned as an error
// before any module sees an event. Context cancellation is checked between
// events, never mid-event. Handler faults do not surface here: inspect
// Statuses() instead.
func (r *Run) Execute(ctx context.Context, events []event.Event) error {
	if r.executed {
		return ErrAlreadyExecuted
	}
	r.executed = true
	r.closed = true

	if err := event.Validate(events); err != nil {
		return fmt.Errorf("validate stream: %w", err)
	}

	started := time.Now()
	r.logger.Info("run starting", "events", len(events), "modules", len(r.instances))

	r.prescan(events)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.dispatch(ev)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.dispatch(event.Terminal(events))

	elapsed := time.Since(started)
	r.observer.RunCompleted(len(events), elapsed)
	r.logger.Info("run complete", "events", len(events), "failed", r.countStatus(StatusFailed), "degraded", r.countStatus(StatusDegraded))
	return nil
}

func (r *Run) prescan(events []event.Event) {
	for _, inst := range r.instances {
		if inst.status != StatusOK {
			continue
		}
		p, ok := inst.module.(Prescanner)
		if !ok {
			continue
		}
		stream := event.CloneAll(events)
		if err := guard(func() error { return p.Prescan(stream) }); err != nil {
			r.fail(inst, &HandlerFault{Module: inst.handle, Phase: PhasePrescan, Err: err})
		}
	}
}

// dispatch offers ev to every live subscription in construction order, then
// registration order.
func (r *Run) dispatch(ev event.Event) {
	r.observer.EventDispatched(ev)
	r.logger.Debug("dispatching event", "event", ev.String())

	roles := r.roles()
	for _, inst := range r.instances {
		for i := range inst.subs {
			// A fault earlier in this loop (own or a dependency's) stops the module.
			if inst.status != StatusOK {
				break
			}
			sub := &inst.subs[i]
			if !sub.accepts(ev.Type) || !event.Matches(sub.filter, ev, roles) {
				continue
			}

			if missing := event.Missing(ev, sub.requires); missing != 0 {
				r.malformed(&MalformedEventError{Module: inst.handle, Event: ev, Missing: missing})
				continue
			}

			// Each handler gets its own copy; writes through the optional
			// fields never reach the stream or other modules.
			own := ev.Clone()
			err := guard(func() error { return sub.handler(own) })
			if err == nil {
				r.observer.HandlerInvoked(inst.handle, ev)
				continue
			}

			var me *MalformedEventError
			if errors.As(err, &me) {
				me.Module = inst.handle
				if me.Event.Type == "" {
					me.Event = ev
				}
				r.malformed(me)
				continue
			}

			r.fail(inst, &HandlerFault{Module: inst.handle, Phase: PhaseDispatch, Event: ev, Err: err})
		}
	}
}

func (r *Run) malformed(me *MalformedEventError) {
	r.logger.Warn("skipping malformed event", "module", string(me.Module), "event", me.Event.String(), "error", me.Error())
	r.observer.EventMalformed(me)
}

// fail marks inst failed and degrades everything that depends on it.
//
// ERROR HANDLING: log and continue. The fault is recorded on the module and
// reported through Statuses(); the run itself keeps going.
func (r *Run) fail(inst *instance, fault *HandlerFault) {
	inst.status = StatusFailed
	inst.fault = fault
	r.logger.Error("module faulted", "module", string(inst.handle), "phase", fault.Phase, "error", fault.Err)
	r.observer.HandlerFaulted(fault)

	// Dependencies always precede dependents, so one forward pass reaches
	// every transitive dependent.
	for _, other := range r.instances[r.index[inst.handle]+1:] {
		if other.status != StatusOK {
			continue
		}
		for _, d := range other.deps {
			dep := r.instances[r.index[d]]
			if dep.status == StatusOK {
				continue
			}
			other.status = StatusDegraded
			other.cause = dep.handle
			if dep.status == StatusDegraded {
				other.cause = dep.cause
			}
			r.logger.Warn("module degraded", "module", string(other.handle), "cause", string(other.cause))
			break
		}
	}
}

func (r *Run) roles() event.RoleResolver {
	if r.env.Roster == nil {
		return nil
	}
	return r.env.Roster
}

func (r *Run) countStatus(s Status) int {
	n := 0
	for _, inst := range r.instances {
		if inst.status == s {
			n++
		}
	}
	return n
}

// guard runs f and converts a panic into an error wrapping ErrHandlerPanic.
func guard(f func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return f()
}

// Order returns the module handles in construction order.
func (r *Run) Order() []Handle {
	out := make([]Handle, len(r.instances))
	for i, inst := range r.instances {
		out[i] = inst.handle
	}
	return out
}

// Module returns the constructed module for h.
func (r *Run) Module(h Handle) (Module, bool) {
	i, ok := r.index[h]
	if !ok {
		return nil, false
	}
	return r.instances[i].module, true
}

// Statuses returns every module's status in construction order.
func (r *Run) Statuses() []ModuleStatus {
	out := make([]ModuleStatus, len(r.instances))
	for i, inst := range r.instances {
		out[i] = ModuleStatus{
			Handle: inst.handle,
			Status: inst.status,
			Fault:  inst.fault,
			Cause:  inst.cause,
		}
	}
	return out
}

// Suggestions returns the run's suggestion sink.
func (r *Run) Suggestions() *suggest.Sink { return r.suggestions }

// Checklist returns the run's checklist sink.
func (r *Run) Checklist() *suggest.Checklist { return r.checklist }
