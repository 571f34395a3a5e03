package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/suggest"
	"github.com/roach88/combatlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	playerID int64 = 1
	petID    int64 = 2
	enemyID  int64 = 100
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnv(t *testing.T) Environment {
	t.Helper()
	roster, err := actor.NewRoster(playerID, []actor.Participant{
		{ID: playerID, Name: "Player", Kind: actor.KindPlayer, Friendly: true},
		{ID: petID, Name: "Eos", Kind: actor.KindPet, OwnerID: playerID, Friendly: true},
		{ID: enemyID, Name: "Boss", Kind: actor.KindNPC},
	})
	require.NoError(t, err)
	return Environment{Roster: roster}
}

// tracer records handler invocations across modules in call order.
type tracer struct {
	calls []string
}

func (tr *tracer) record(h Handle, ev event.Event) {
	tr.calls = append(tr.calls, fmt.Sprintf("%s:%s@%d", h, ev.Type, ev.Timestamp))
}

// recorder subscribes to every listed type and records what it sees.
type recorder struct {
	handle Handle
	seen   []event.Event
}

func recorderDesc(tr *tracer, h Handle, types []event.Type, deps ...Handle) Descriptor {
	return Descriptor{
		Handle:       h,
		Dependencies: deps,
		New: func(ctx *Context) (Module, error) {
			m := &recorder{handle: h}
			err := ctx.On(types, event.Filter{}, func(ev event.Event) error {
				m.seen = append(m.seen, ev)
				tr.record(h, ev)
				return nil
			})
			return m, err
		},
	}
}

func build(t *testing.T, reg *Registry, opts ...Option) *Run {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	run, err := Build(reg, testEnv(t), opts...)
	require.NoError(t, err)
	return run
}

var allTypes = []event.Type{event.TypeCast, event.TypeDamage, event.TypeComplete}

// TestBuild_DependencyInitializedBeforeDependent checks B is built and initialised before A.
func TestBuild_DependencyInitializedBeforeDependent(t *testing.T) {
	var steps []string
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "a", Dependencies: []Handle{"b"}, New: func(ctx *Context) (Module, error) {
			steps = append(steps, "construct a")
			b, err := Dep[*initModule](ctx, "b")
			if err != nil {
				return nil, err
			}
			if !b.initialized {
				return nil, errors.New("b not initialised")
			}
			return &initModule{name: "a", steps: &steps}, nil
		}},
		Descriptor{Handle: "b", New: func(ctx *Context) (Module, error) {
			steps = append(steps, "construct b")
			return &initModule{name: "b", steps: &steps}, nil
		}},
	)

	run := build(t, reg)
	assert.Equal(t, []string{"construct b", "init b", "construct a", "init a"}, steps)
	assert.Equal(t, []Handle{"b", "a"}, run.Order())
}

type initModule struct {
	name        string
	steps       *[]string
	initialized bool
}

func (m *initModule) Init() error {
	*m.steps = append(*m.steps, "init "+m.name)
	m.initialized = true
	return nil
}

// TestBuild_CycleConstructsNothing checks resolution errors abort before construction.
func TestBuild_CycleConstructsNothing(t *testing.T) {
	constructed := 0
	ctor := func(*Context) (Module, error) {
		constructed++
		return struct{}{}, nil
	}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "free", New: ctor},
		Descriptor{Handle: "a", Dependencies: []Handle{"b"}, New: ctor},
		Descriptor{Handle: "b", Dependencies: []Handle{"a"}, New: ctor},
	)

	_, err := Build(reg, Environment{}, WithLogger(testLogger()))
	require.Error(t, err)
	assert.True(t, IsCycleError(err))
	assert.Equal(t, 0, constructed)
}

// TestBuild_ConstructorError checks constructor failures become SetupErrors.
func TestBuild_ConstructorError(t *testing.T) {
	boom := errors.New("missing static data")
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "bad", New: func(*Context) (Module, error) { return nil, boom }})

	_, err := Build(reg, Environment{}, WithLogger(testLogger()))
	require.Error(t, err)
	assert.True(t, IsSetupError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrCodeSetup, Code(err))

	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, Handle("bad"), se.Module)
	assert.Equal(t, "construct", se.Phase)
}

// TestBuild_InitError checks Init failures become SetupErrors.
func TestBuild_InitError(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "bad", New: func(*Context) (Module, error) { return failingInit{}, nil }})

	_, err := Build(reg, Environment{}, WithLogger(testLogger()))
	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "init", se.Phase)
}

type failingInit struct{}

func (failingInit) Init() error { return errors.New("init failed") }

// TestContext_UndeclaredDependency checks modules only reach declared handles.
func TestContext_UndeclaredDependency(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "other", New: nopConstructor},
		Descriptor{Handle: "sneaky", New: func(ctx *Context) (Module, error) {
			_, err := ctx.Dep("other")
			return nil, err
		}},
	)

	_, err := Build(reg, Environment{}, WithLogger(testLogger()))
	assert.ErrorIs(t, err, ErrUndeclaredDependency)
}

// TestContext_DepWrongType checks the typed lookup reports type mismatches.
func TestContext_DepWrongType(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "dep", New: nopConstructor},
		Descriptor{Handle: "user", Dependencies: []Handle{"dep"}, New: func(ctx *Context) (Module, error) {
			_, err := Dep[*recorder](ctx, "dep")
			return nil, err
		}},
	)

	_, err := Build(reg, Environment{}, WithLogger(testLogger()))
	assert.ErrorIs(t, err, ErrDependencyType)
}

// TestContext_OnValidation checks subscription arguments are validated.
func TestContext_OnValidation(t *testing.T) {
	var noTypes, nilHandler error
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(ctx *Context) (Module, error) {
		noTypes = ctx.On(nil, event.Filter{}, func(event.Event) error { return nil })
		nilHandler = ctx.On([]event.Type{event.TypeCast}, event.Filter{}, nil)
		return struct{}{}, nil
	}})

	build(t, reg)
	assert.ErrorIs(t, noTypes, ErrNoEventTypes)
	assert.ErrorIs(t, nilHandler, ErrNilHandler)
}

// TestExecute_DispatchOrder checks module order then subscription order per event.
func TestExecute_DispatchOrder(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "second", Dependencies: []Handle{"first"}, New: func(ctx *Context) (Module, error) {
			for _, tag := range []string{"x", "y"} {
				tag := tag
				if err := ctx.On([]event.Type{event.TypeCast}, event.Filter{}, func(ev event.Event) error {
					tr.calls = append(tr.calls, fmt.Sprintf("second.%s@%d", tag, ev.Timestamp))
					return nil
				}); err != nil {
					return nil, err
				}
			}
			return struct{}{}, nil
		}},
		recorderDesc(tr, "first", []event.Type{event.TypeCast}),
	)

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).After(10).Cast(playerID, enemyID, 2).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, []string{
		"first:cast@0", "second.x@0", "second.y@0",
		"first:cast@10", "second.x@10", "second.y@10",
	}, tr.calls)
}

// TestExecute_CompleteDispatchedOnceAfterStream checks the terminal event.
func TestExecute_CompleteDispatchedOnceAfterStream(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		recorderDesc(tr, "a", allTypes),
		recorderDesc(tr, "b", []event.Type{event.TypeComplete}),
	)

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).At(500).Damage(playerID, enemyID, 1, 10).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, []string{
		"a:cast@0",
		"a:damage@500",
		"a:complete@500",
		"b:complete@500",
	}, tr.calls)
}

// TestExecute_EmptyStream checks complete is still dispatched with timestamp 0.
func TestExecute_EmptyStream(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(recorderDesc(tr, "a", allTypes))

	run := build(t, reg)
	require.NoError(t, run.Execute(context.Background(), nil))
	assert.Equal(t, []string{"a:complete@0"}, tr.calls)
}

// TestExecute_FilterRoles checks filters are evaluated against the roster.
func TestExecute_FilterRoles(t *testing.T) {
	var got []int64
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "pets", New: func(ctx *Context) (Module, error) {
		f := event.Filter{By: event.Roles(event.RolePlayer, event.RolePet), AbilityIDs: event.IDs(10, 20)}
		return struct{}{}, ctx.On([]event.Type{event.TypeCast, event.TypeHeal}, f, func(ev event.Event) error {
			got = append(got, ev.SourceID)
			return nil
		})
	}})

	run := build(t, reg)
	events := testutil.NewStream().
		Cast(playerID, enemyID, 10).
		Cast(petID, playerID, 20).
		Cast(enemyID, playerID, 10).
		Cast(playerID, enemyID, 30).
		Heal(petID, playerID, 20, 100).
		Damage(playerID, enemyID, 10, 5).
		Events()
	require.NoError(t, run.Execute(context.Background(), events))
	assert.Equal(t, []int64{playerID, petID, petID}, got)
}

// TestExecute_RequiresSkipsSubscriptionOnly checks malformed events skip one subscription.
func TestExecute_RequiresSkipsSubscriptionOnly(t *testing.T) {
	var strict, lax int
	obs := &countingObserver{}
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(ctx *Context) (Module, error) {
		types := []event.Type{event.TypeDamage}
		if err := ctx.On(types, event.Filter{}, func(event.Event) error { strict++; return nil }, Requires(event.FieldAmount)); err != nil {
			return nil, err
		}
		return struct{}{}, ctx.On(types, event.Filter{}, func(event.Event) error { lax++; return nil })
	}})

	run := build(t, reg, WithObserver(obs))
	events := testutil.NewStream().
		Raw(event.Event{Type: event.TypeDamage, SourceID: playerID, TargetID: enemyID}).
		Damage(playerID, enemyID, 1, 10).
		Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, 1, strict)
	assert.Equal(t, 2, lax)
	assert.Equal(t, 1, obs.malformed)
	assert.Equal(t, StatusOK, run.Statuses()[0].Status, "malformed events are not faults")
}

// TestExecute_HandlerMalformedIsSkip checks handlers can reject events without faulting.
func TestExecute_HandlerMalformedIsSkip(t *testing.T) {
	calls := 0
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(ctx *Context) (Module, error) {
		return struct{}{}, ctx.On([]event.Type{event.TypeCast}, event.Filter{}, func(ev event.Event) error {
			calls++
			if calls == 1 {
				return fmt.Errorf("decode: %w", Malformed(ev, 0, "unknown ability"))
			}
			return nil
		})
	}})

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).Cast(playerID, enemyID, 2).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, 2, calls)
	assert.Equal(t, StatusOK, run.Statuses()[0].Status)
}

// TestExecute_FaultIsolation checks X's fault on e doesn't stop Y on e or later.
func TestExecute_FaultIsolation(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "x", New: func(ctx *Context) (Module, error) {
			return struct{}{}, ctx.On(allTypes, event.Filter{}, func(ev event.Event) error {
				tr.record("x", ev)
				if ev.Timestamp == 10 {
					return errors.New("boom")
				}
				return nil
			})
		}},
		recorderDesc(tr, "y", allTypes),
	)

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).At(10).Cast(playerID, enemyID, 1).At(20).Cast(playerID, enemyID, 1).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, []string{
		"x:cast@0", "y:cast@0",
		"x:cast@10", "y:cast@10",
		"y:cast@20",
		"y:complete@20",
	}, tr.calls)

	y, ok := run.Module("y")
	require.True(t, ok)
	assert.Len(t, y.(*recorder).seen, 4, "y's state is intact")

	statuses := run.Statuses()
	assert.Equal(t, StatusFailed, statuses[0].Status)
	require.NotNil(t, statuses[0].Fault)
	assert.Equal(t, int64(10), statuses[0].Fault.Event.Timestamp)
	assert.True(t, IsHandlerFault(statuses[0].Fault))
	assert.Equal(t, StatusOK, statuses[1].Status)
}

// TestExecute_PanicIsFault checks panics are recovered as faults.
func TestExecute_PanicIsFault(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "panicky", New: func(ctx *Context) (Module, error) {
			return struct{}{}, ctx.On(allTypes, event.Filter{}, func(event.Event) error {
				var m map[string]int
				m["x"] = 1
				return nil
			})
		}},
		recorderDesc(tr, "steady", allTypes),
	)

	run := build(t, reg)
	require.NoError(t, run.Execute(context.Background(), testutil.NewStream().Cast(playerID, enemyID, 1).Events()))

	st := run.Statuses()
	assert.Equal(t, StatusFailed, st[0].Status)
	assert.ErrorIs(t, st[0].Fault, ErrHandlerPanic)
	assert.Equal(t, []string{"steady:cast@0", "steady:complete@0"}, tr.calls)
}

// TestExecute_DegradesTransitiveDependents checks dependents of a failed module stop.
func TestExecute_DegradesTransitiveDependents(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "base", New: func(ctx *Context) (Module, error) {
			return struct{}{}, ctx.On(allTypes, event.Filter{}, func(ev event.Event) error {
				if ev.Timestamp == 10 {
					return errors.New("base broke")
				}
				return nil
			})
		}},
		recorderDesc(tr, "mid", allTypes, "base"),
		recorderDesc(tr, "top", allTypes, "mid"),
		recorderDesc(tr, "bystander", allTypes),
	)

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).At(10).Cast(playerID, enemyID, 1).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	assert.Equal(t, []string{
		"mid:cast@0", "top:cast@0", "bystander:cast@0",
		"bystander:cast@10",
		"bystander:complete@10",
	}, tr.calls)

	byHandle := map[Handle]ModuleStatus{}
	for _, st := range run.Statuses() {
		byHandle[st.Handle] = st
	}
	assert.Equal(t, StatusFailed, byHandle["base"].Status)
	assert.Equal(t, StatusDegraded, byHandle["mid"].Status)
	assert.Equal(t, Handle("base"), byHandle["mid"].Cause)
	assert.Equal(t, StatusDegraded, byHandle["top"].Status)
	assert.Equal(t, Handle("base"), byHandle["top"].Cause)
	assert.Equal(t, StatusOK, byHandle["bystander"].Status)
}

// TestExecute_FaultStopsRemainingSubscriptions checks a faulted module gets nothing more, even on the same event.
func TestExecute_FaultStopsRemainingSubscriptions(t *testing.T) {
	second := 0
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(ctx *Context) (Module, error) {
		types := []event.Type{event.TypeCast}
		if err := ctx.On(types, event.Filter{}, func(event.Event) error { return errors.New("first fails") }); err != nil {
			return nil, err
		}
		return struct{}{}, ctx.On(types, event.Filter{}, func(event.Event) error { second++; return nil })
	}})

	run := build(t, reg)
	require.NoError(t, run.Execute(context.Background(), testutil.NewStream().Cast(playerID, enemyID, 1).Events()))
	assert.Equal(t, 0, second)
}

// TestExecute_PrescanSeesWholeStream checks prescanners run before dispatch.
func TestExecute_PrescanSeesWholeStream(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "scan", New: func(ctx *Context) (Module, error) {
		m := &scanner{}
		return m, ctx.On([]event.Type{event.TypeCast}, event.Filter{}, func(event.Event) error {
			m.dispatchedAfterScan = m.scanned > 0
			return nil
		})
	}})

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).Cast(playerID, enemyID, 2).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	m, _ := run.Module("scan")
	assert.Equal(t, 2, m.(*scanner).scanned)
	assert.True(t, m.(*scanner).dispatchedAfterScan)
}

type scanner struct {
	scanned             int
	dispatchedAfterScan bool
}

func (s *scanner) Prescan(events []event.Event) error {
	s.scanned = len(events)
	// A copy; none of this may leak into dispatch.
	events[0].SourceID = 999
	if events[0].AbilityID != nil {
		*events[0].AbilityID = 0
	}
	if events[0].Amount != nil {
		*events[0].Amount = 0
	}
	return nil
}

// TestExecute_PrescanCopyIsolated checks prescan mutation doesn't reach handlers.
func TestExecute_PrescanCopyIsolated(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "scan", New: func(*Context) (Module, error) { return &scanner{}, nil }},
		recorderDesc(tr, "rec", []event.Type{event.TypeCast}),
	)

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).Damage(playerID, enemyID, 7411, 500).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	m, _ := run.Module("rec")
	assert.Equal(t, playerID, m.(*recorder).seen[0].SourceID)
	assert.Equal(t, 1, *m.(*recorder).seen[0].AbilityID)
	assert.Equal(t, 1, *events[0].AbilityID)
}

// TestExecute_PrescanCannotRewriteAmounts checks pointer fields are copied for prescanners.
func TestExecute_PrescanCannotRewriteAmounts(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "scan", New: func(*Context) (Module, error) { return &scanner{}, nil }},
		recorderDesc(tr, "rec", []event.Type{event.TypeDamage}),
	)

	run := build(t, reg)
	events := testutil.NewStream().Damage(playerID, enemyID, 7411, 500).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	m, _ := run.Module("rec")
	seen := m.(*recorder).seen
	require.Len(t, seen, 1)
	assert.Equal(t, int64(500), *seen[0].Amount)
	assert.Equal(t, 7411, *seen[0].AbilityID)
	assert.Equal(t, int64(500), *events[0].Amount)
	assert.Equal(t, 7411, *events[0].AbilityID)
}

// TestExecute_HandlerWritesDoNotReachOthers checks a faulting module's writes
// to an event never reach later modules or the caller.
func TestExecute_HandlerWritesDoNotReachOthers(t *testing.T) {
	tr := &tracer{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "x", New: func(ctx *Context) (Module, error) {
			return struct{}{}, ctx.On([]event.Type{event.TypeDamage}, event.Filter{}, func(ev event.Event) error {
				*ev.Amount = 0
				*ev.AbilityID = 0
				return errors.New("boom")
			})
		}},
		recorderDesc(tr, "y", []event.Type{event.TypeDamage}),
	)

	run := build(t, reg)
	events := testutil.NewStream().Damage(playerID, enemyID, 7411, 500).Damage(playerID, enemyID, 7411, 300).Events()
	require.NoError(t, run.Execute(context.Background(), events))

	m, _ := run.Module("y")
	seen := m.(*recorder).seen
	require.Len(t, seen, 2)
	assert.Equal(t, int64(500), *seen[0].Amount)
	assert.Equal(t, 7411, *seen[0].AbilityID)
	assert.Equal(t, int64(300), *seen[1].Amount)
	assert.Equal(t, int64(500), *events[0].Amount)

	statuses := run.Statuses()
	assert.Equal(t, StatusFailed, statuses[0].Status)
	assert.Equal(t, StatusOK, statuses[1].Status)
}

// TestExecute_InvalidStream checks unordered or reserved events abort before dispatch.
func TestExecute_InvalidStream(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
		want   error
	}{
		{"unordered", testutil.NewStream().At(10).Cast(playerID, enemyID, 1).At(5).Cast(playerID, enemyID, 1).Events(), event.ErrUnordered},
		{"reserved", []event.Event{{Type: event.TypeComplete}}, event.ErrReservedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &tracer{}
			reg := NewRegistry()
			reg.MustRegister(recorderDesc(tr, "a", allTypes))

			run := build(t, reg)
			err := run.Execute(context.Background(), tt.events)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, ErrCodeInvalidStream, Code(err))
			assert.Empty(t, tr.calls)
		})
	}
}

// TestExecute_Once checks a run cannot be executed twice and closes subscriptions.
func TestExecute_Once(t *testing.T) {
	var late error
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(ctx *Context) (Module, error) {
		return struct{}{}, ctx.OnComplete(func(event.Event) error {
			late = ctx.On([]event.Type{event.TypeCast}, event.Filter{}, func(event.Event) error { return nil })
			return nil
		})
	}})

	run := build(t, reg)
	require.NoError(t, run.Execute(context.Background(), nil))
	assert.ErrorIs(t, late, ErrSubscriptionsClosed)
	assert.ErrorIs(t, run.Execute(context.Background(), nil), ErrAlreadyExecuted)
}

// TestExecute_Cancelled checks cancellation between events.
func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "m", New: func(c *Context) (Module, error) {
		return struct{}{}, c.On(allTypes, event.Filter{}, func(event.Event) error {
			calls++
			cancel()
			return nil
		})
	}})

	run := build(t, reg)
	events := testutil.NewStream().Cast(playerID, enemyID, 1).Cast(playerID, enemyID, 2).Events()
	err := run.Execute(ctx, events)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "the in-flight event completes, the next is never started")
}

// TestExecute_SinksScopedPerModule checks modules write tagged entries into the run sinks.
func TestExecute_SinksScopedPerModule(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Descriptor{Handle: "deaths", New: func(ctx *Context) (Module, error) {
		return struct{}{}, ctx.OnComplete(func(event.Event) error {
			ctx.Suggestions().Add(suggest.Suggestion{Content: "don't die", Value: 1, Tiers: suggest.Fixed(suggest.Major)})
			ctx.Checklist().Add(suggest.Rule{Name: "stay alive"})
			return nil
		})
	}})

	run := build(t, reg)
	require.NoError(t, run.Execute(context.Background(), nil))

	entries := run.Suggestions().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "deaths", entries[0].Module)
	rules := run.Checklist().Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "deaths", rules[0].Module)
}

// TestExecute_Deterministic checks fresh runs over the same stream see the same calls.
func TestExecute_Deterministic(t *testing.T) {
	events := testutil.NewStream().
		Cast(playerID, enemyID, 1).After(100).
		Damage(playerID, enemyID, 1, 50).After(100).
		Cast(petID, playerID, 2).
		Events()

	trace := func() []string {
		tr := &tracer{}
		reg := NewRegistry()
		reg.MustRegister(
			recorderDesc(tr, "c", allTypes, "a"),
			recorderDesc(tr, "a", allTypes),
			recorderDesc(tr, "b", allTypes),
		)
		run := build(t, reg)
		require.NoError(t, run.Execute(context.Background(), events))
		return tr.calls
	}

	first := trace()
	assert.Equal(t, first, trace())
	assert.Len(t, first, 12)
}

// TestExecute_ObserverNotified checks observer callbacks.
func TestExecute_ObserverNotified(t *testing.T) {
	obs := &countingObserver{}
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{Handle: "bad", New: func(ctx *Context) (Module, error) {
			return struct{}{}, ctx.On(allTypes, event.Filter{}, func(event.Event) error { return errors.New("nope") })
		}},
		recorderDesc(&tracer{}, "good", allTypes),
	)

	run := build(t, reg, WithObserver(obs))
	require.NoError(t, run.Execute(context.Background(), testutil.NewStream().Cast(playerID, enemyID, 1).Events()))

	assert.Equal(t, 2, obs.dispatched, "one stream event plus complete")
	assert.Equal(t, 2, obs.invoked)
	assert.Equal(t, 1, obs.faulted)
	assert.Equal(t, 1, obs.completed)
}

type countingObserver struct {
	dispatched, invoked, faulted, malformed, completed int
}

func (o *countingObserver) EventDispatched(event.Event) { o.dispatched++ }
func (o *countingObserver) HandlerInvoked(Handle, event.Event) { o.invoked++ }
func (o *countingObserver) HandlerFaulted(*HandlerFault) { o.faulted++ }
func (o *countingObserver) EventMalformed(*MalformedEventError) { o.malformed++ }
func (o *countingObserver) RunCompleted(int, time.Duration) { o.completed++ }
