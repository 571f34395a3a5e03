// Package modtest runs analysis modules against small hand-built streams.
package modtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/stretchr/testify/require"
)

// Participant ids of the standard test roster.
const (
	Player  int64 = 1
	Pet     int64 = 2
	Ally    int64 = 3
	AllyPet int64 = 4
	Boss    int64 = 100
	BossAdd int64 = 101
)

// Roster returns the standard roster: the player, their pet, a friendly
// player with its own pet, and two enemies.
func Roster(t testing.TB) *actor.Roster {
	t.Helper()
	r, err := actor.NewRoster(Player, []actor.Participant{
		{ID: Player, Name: "Player", Kind: actor.KindPlayer, Friendly: true},
		{ID: Pet, Name: "Eos", Kind: actor.KindPet, OwnerID: Player, Friendly: true},
		{ID: Ally, Name: "Ally", Kind: actor.KindPlayer, Friendly: true},
		{ID: AllyPet, Name: "Selene", Kind: actor.KindPet, OwnerID: Ally, Friendly: true},
		{ID: Boss, Name: "Boss", Kind: actor.KindNPC},
		{ID: BossAdd, Name: "Add", Kind: actor.KindNPC},
	})
	require.NoError(t, err)
	return r
}

// Data returns the embedded static tables.
func Data(t testing.TB) *gamedata.Table {
	t.Helper()
	d, err := gamedata.Default()
	require.NoError(t, err)
	return d
}

// ID resolves an action key.
func ID(t testing.TB, key string) int {
	t.Helper()
	a, err := Data(t).ActionByKey(key)
	require.NoError(t, err)
	return a.ID
}

// StatusID resolves a status key.
func StatusID(t testing.TB, key string) int {
	t.Helper()
	s, err := Data(t).StatusByKey(key)
	require.NoError(t, err)
	return s.ID
}

// Run builds the descriptors into a run with the standard roster and static
// data, and executes it over events.
func Run(t testing.TB, events []event.Event, descs ...engine.Descriptor) *engine.Run {
	t.Helper()
	reg := engine.NewRegistry()
	for _, d := range descs {
		require.NoError(t, reg.Register(d))
	}
	run, err := engine.Build(reg, engine.Environment{Data: Data(t), Roster: Roster(t)},
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.NoError(t, run.Execute(context.Background(), events))
	return run
}

// Module fetches a module from a run by handle and type.
func Module[T any](t testing.TB, run *engine.Run, h engine.Handle) T {
	t.Helper()
	m, ok := run.Module(h)
	require.True(t, ok, "module %s not built", h)
	typed, ok := m.(T)
	require.True(t, ok, "module %s has type %T", h, m)
	return typed
}
