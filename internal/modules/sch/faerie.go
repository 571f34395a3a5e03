package sch

import (
	"fmt"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/gauge"
	"github.com/roach88/combatlens/internal/modules/core"
	"github.com/roach88/combatlens/internal/suggest"
)

const faerieMax = 100

var faerieCastModifiers = map[string]int{
	// Generators
	"SCH_ENERGY_DRAIN": 10,
	"LUSTRATE":         10,
	"INDOMITABILITY":   10,
	"SACRED_SOIL":      10,
	"EXCOGITATION":     10,

	// Spenders
	"FEY_BLESSING": -10,
	"FEY_UNION":    -10,
}

// feyUnionTick is the per-heal cost of an active Fey Union, keyed by its
// status id on heal events.
const feyUnionTick = -10

var summonActions = []string{"SUMMON_EOS", "SUMMON_SELENE"}

// FaerieOvercapTiers grades gauge lost to the cap. Wasted gauge is a small
// loss, so it never goes beyond minor.
var FaerieOvercapTiers = suggest.NewTiers(map[float64]suggest.Severity{
	50: suggest.Minor,
})

// Faerie tracks the Faerie gauge. Gauge only moves while a fairy is out and
// Dissipation is not active.
type Faerie struct {
	data        *gamedata.Table
	roster      *actor.Roster
	gauge       *gauge.Gauge
	modifiers   core.Modifiers
	statuses    *core.Statuses
	summons     event.IDSet
	dissipation int
	fairyOut    bool
	icon        string
	out         *suggest.Suggestions
}

// FaerieSummary is the faerie module's output.
type FaerieSummary struct {
	Gauge    gauge.Snapshot `json:"gauge"`
	History  []gauge.Sample `json:"history"`
	FairyOut bool           `json:"fairyOut"`
}

// NewFaerie constructs the faerie module.
func NewFaerie(ctx *engine.Context) (engine.Module, error) {
	statuses, err := engine.Dep[*core.Statuses](ctx, core.HandleStatuses)
	if err != nil {
		return nil, err
	}
	if ctx.Roster() == nil {
		return nil, core.ErrNoRoster
	}
	data := ctx.Data()
	if data == nil {
		return nil, core.ErrNoStaticData
	}

	f := &Faerie{
		data:      data,
		roster:    ctx.Roster(),
		gauge:     gauge.MustNew(faerieMax),
		modifiers: make(core.Modifiers),
		statuses:  statuses,
		out:       ctx.Suggestions(),
	}
	if err := castModifiers(data, faerieCastModifiers, f.modifiers); err != nil {
		return nil, err
	}
	union, err := data.StatusByKey("FEY_UNION")
	if err != nil {
		return nil, err
	}
	f.modifiers[core.ModifierKey{Type: event.TypeHeal, Ability: union.ID}] = feyUnionTick

	dissipation, err := data.StatusByKey("DISSIPATION")
	if err != nil {
		return nil, err
	}
	f.dissipation = dissipation.ID

	ids, err := data.ActionIDs(summonActions...)
	if err != nil {
		return nil, err
	}
	f.summons = event.IDs(ids...)

	if blessing, err := data.ActionByKey("FEY_BLESSING"); err == nil {
		f.icon = blessing.Icon
	}

	mods := event.Filter{
		By:         event.Roles(event.RolePlayer, event.RolePet),
		AbilityIDs: f.modifiers.Abilities(),
	}
	if err := ctx.On(f.modifiers.Types(), mods, f.onModifier, engine.Requires(event.FieldAbility)); err != nil {
		return nil, err
	}

	summon := core.Player()
	summon.AbilityIDs = f.summons
	if err := ctx.On([]event.Type{event.TypeCast}, summon, f.onSummon); err != nil {
		return nil, err
	}
	if err := ctx.On([]event.Type{event.TypeDeath}, event.Filter{To: event.Roles(event.RolePlayer)}, f.onDeath); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(f.onComplete); err != nil {
		return nil, err
	}
	return f, nil
}

// Prescan looks for a fairy that was already out when the log started: any
// pet action cast by the player's own pet before the first summon.
func (f *Faerie) Prescan(events []event.Event) error {
	for _, ev := range events {
		if ev.Type != event.TypeCast {
			continue
		}
		id, ok := ev.Ability()
		if !ok {
			continue
		}
		if ev.SourceID == f.roster.PlayerID() && f.summons.Has(id) {
			return nil
		}
		action, known := f.data.Action(id)
		if known && action.Pet && f.roster.Role(ev.SourceID) == event.RolePet {
			f.fairyOut = true
			return nil
		}
	}
	return nil
}

func (f *Faerie) onModifier(ev event.Event) error {
	amount := f.modifiers.Lookup(ev)
	if !f.fairyOut || f.statuses.Has(f.roster.PlayerID(), f.dissipation) {
		amount = 0
	}
	f.gauge.ModifyAt(ev.Timestamp, amount)
	return nil
}

func (f *Faerie) onSummon(event.Event) error {
	f.fairyOut = true
	return nil
}

func (f *Faerie) onDeath(event.Event) error {
	f.fairyOut = false
	return nil
}

func (f *Faerie) onComplete(event.Event) error {
	over := f.gauge.OverCap()
	f.out.Add(suggest.Suggestion{
		Icon:    f.icon,
		Content: "Try to make use of your Faerie Gauge abilities Fey Union and Fey Blessing, since they are free oGCD heals that come naturally from using Aetherflow abilities.",
		Why:     fmt.Sprintf("A total of %d gauge was lost due to exceeding the cap.", over),
		Value:   float64(over),
		Tiers:   FaerieOvercapTiers,
	})
	return nil
}

// Value returns the current gauge.
func (f *Faerie) Value() int { return f.gauge.Value() }

// OverCap returns gauge lost to the cap.
func (f *Faerie) OverCap() int { return f.gauge.OverCap() }

// FairyOut reports whether a fairy is currently summoned.
func (f *Faerie) FairyOut() bool { return f.fairyOut }

// Summary returns the gauge state, its history and the fairy flag.
func (f *Faerie) Summary() any {
	return FaerieSummary{
		Gauge:    f.gauge.Snapshot(),
		History:  f.gauge.History(),
		FairyOut: f.fairyOut,
	}
}
