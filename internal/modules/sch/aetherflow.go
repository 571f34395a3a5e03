package sch

import (
	"fmt"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gauge"
	"github.com/roach88/combatlens/internal/modules/core"
	"github.com/roach88/combatlens/internal/suggest"
)

const aetherflowMax = 3

var aetherflowModifiers = map[string]int{
	// Builders
	"AETHERFLOW":  3,
	"DISSIPATION": 3,

	// Spenders
	"LUSTRATE":         -1,
	"INDOMITABILITY":   -1,
	"EXCOGITATION":     -1,
	"SACRED_SOIL":      -1,
	"SCH_ENERGY_DRAIN": -1,
}

// recitationActions cost nothing while Recitation is up.
var recitationActions = []string{"SUCCOR", "INDOMITABILITY", "EXCOGITATION", "ADLOQUIUM"}

// AetherflowOvercapTiers grades stacks lost to the cap.
var AetherflowOvercapTiers = suggest.NewTiers(map[float64]suggest.Severity{
	1: suggest.Medium,
	2: suggest.Major,
})

// Aetherflow tracks Aetherflow stacks and how consistently Aetherflow was
// kept on cooldown.
type Aetherflow struct {
	gauge      *gauge.Gauge
	modifiers  core.Modifiers
	recitation event.IDSet
	statuses   *core.Statuses
	cooldowns  *core.Cooldowns
	player     int64
	status     int // Recitation
	action     int // Aetherflow
	icon       string
	casts      int
	out        *suggest.Suggestions
	checklist  *suggest.Rules
}

// AetherflowSummary is the aetherflow module's output.
type AetherflowSummary struct {
	Gauge         gauge.Snapshot `json:"gauge"`
	Casts         int            `json:"casts"`
	PossibleCasts int            `json:"possibleCasts"`
	UptimePercent float64        `json:"uptimePercent"`
}

// NewAetherflow constructs the aetherflow module.
func NewAetherflow(ctx *engine.Context) (engine.Module, error) {
	statuses, err := engine.Dep[*core.Statuses](ctx, core.HandleStatuses)
	if err != nil {
		return nil, err
	}
	cooldowns, err := engine.Dep[*core.Cooldowns](ctx, core.HandleCooldowns)
	if err != nil {
		return nil, err
	}
	player, err := core.PlayerID(ctx)
	if err != nil {
		return nil, err
	}
	data := ctx.Data()
	if data == nil {
		return nil, core.ErrNoStaticData
	}

	a := &Aetherflow{
		gauge:     gauge.MustNew(aetherflowMax),
		modifiers: make(core.Modifiers),
		statuses:  statuses,
		cooldowns: cooldowns,
		player:    player,
		out:       ctx.Suggestions(),
		checklist: ctx.Checklist(),
	}
	if err := castModifiers(data, aetherflowModifiers, a.modifiers); err != nil {
		return nil, err
	}
	ids, err := data.ActionIDs(recitationActions...)
	if err != nil {
		return nil, err
	}
	a.recitation = event.IDs(ids...)

	st, err := data.StatusByKey("RECITATION")
	if err != nil {
		return nil, err
	}
	a.status = st.ID
	af, err := data.ActionByKey("AETHERFLOW")
	if err != nil {
		return nil, err
	}
	a.action, a.icon = af.ID, af.Icon

	f := core.Player()
	f.AbilityIDs = a.modifiers.Abilities()
	if err := ctx.On([]event.Type{event.TypeCast}, f, a.onModifier, engine.Requires(event.FieldAbility)); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(a.onComplete); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aetherflow) onModifier(ev event.Event) error {
	id, _ := ev.Ability()
	if id == a.action {
		a.casts++
	}

	amount := a.modifiers.Lookup(ev)
	if a.recitation.Has(id) && a.statuses.Has(a.player, a.status) {
		amount = 0
	}
	a.gauge.ModifyAt(ev.Timestamp, amount)
	return nil
}

func (a *Aetherflow) onComplete(event.Event) error {
	possible := a.PossibleCasts()
	a.checklist.Add(suggest.Rule{
		Name:        "Use Aetherflow on cooldown",
		Description: "Using Aetherflow on cooldown lets you regain mana faster.",
		Requirements: []suggest.Requirement{
			{
				Name:     "Aetherflow cooldown uptime",
				Achieved: float64(a.cooldowns.TimeOnCooldown(a.action)),
				Possible: float64(a.cooldowns.Duration()),
			},
			{
				Name:     fmt.Sprintf("Total Aetherflow casts: %d out of %d possible", a.casts, possible),
				Achieved: float64(a.casts),
				Possible: float64(possible),
			},
		},
	})

	over := a.gauge.OverCap()
	a.out.Add(suggest.Suggestion{
		Icon:    a.icon,
		Content: "Avoid overcapping Aetherflow. Spend your stacks before using Aetherflow or Dissipation so none are wasted.",
		Why:     fmt.Sprintf("%d Aetherflow stack(s) lost to an overcapped gauge.", over),
		Value:   float64(over),
		Tiers:   AetherflowOvercapTiers,
	})
	return nil
}

// Stacks returns the current Aetherflow stacks.
func (a *Aetherflow) Stacks() int { return a.gauge.Value() }

// OverCap returns stacks lost to the cap.
func (a *Aetherflow) OverCap() int { return a.gauge.OverCap() }

// Casts returns how many times Aetherflow itself was cast.
func (a *Aetherflow) Casts() int { return a.casts }

// PossibleCasts is ceil(duration / cooldown), the uses a perfect player
// fits in the fight.
func (a *Aetherflow) PossibleCasts() int {
	d := a.cooldowns.Duration()
	cd := a.cooldowns.Cooldown(a.action)
	if d <= 0 || cd <= 0 {
		return 0
	}
	return int((d + cd - 1) / cd)
}

// Summary returns the gauge state and cooldown usage.
func (a *Aetherflow) Summary() any {
	uptime := suggest.Requirement{
		Achieved: float64(a.cooldowns.TimeOnCooldown(a.action)),
		Possible: float64(a.cooldowns.Duration()),
	}
	return AetherflowSummary{
		Gauge:         a.gauge.Snapshot(),
		Casts:         a.casts,
		PossibleCasts: a.PossibleCasts(),
		UptimePercent: uptime.Percent(),
	}
}
