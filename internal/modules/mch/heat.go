package mch

import (
	"fmt"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/gauge"
	"github.com/roach88/combatlens/internal/modules/core"
	"github.com/roach88/combatlens/internal/suggest"
)

const heatMax = 100

// heatModifiers maps action keys to heat deltas on cast.
var heatModifiers = map[string]int{
	"HEATED_SPLIT_SHOT": 5,
	"HEATED_SLUG_SHOT":  5,
	"HEATED_CLEAN_SHOT": 5,
	"BARREL_STABILIZER": 50,
	"HYPERCHARGE":       -50,
}

// HeatOvercapTiers grades heat lost to the cap.
var HeatOvercapTiers = suggest.NewTiers(map[float64]suggest.Severity{
	5:  suggest.Minor,
	20: suggest.Medium,
	50: suggest.Major,
})

// Heat tracks the Machinist heat gauge.
type Heat struct {
	gauge      *gauge.Gauge
	modifiers  core.Modifiers
	statuses   *core.Statuses
	player     int64
	overheated int
	icon       string
	out        *suggest.Suggestions
}

// HeatSummary is the heat module's output.
type HeatSummary struct {
	Gauge   gauge.Snapshot `json:"gauge"`
	History []gauge.Sample `json:"history"`
}

// NewHeat constructs the heat module.
func NewHeat(ctx *engine.Context) (engine.Module, error) {
	statuses, err := engine.Dep[*core.Statuses](ctx, core.HandleStatuses)
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

	h := &Heat{
		gauge:     gauge.MustNew(heatMax),
		modifiers: make(core.Modifiers, len(heatModifiers)),
		statuses:  statuses,
		player:    player,
		out:       ctx.Suggestions(),
	}
	for key, delta := range heatModifiers {
		a, err := data.ActionByKey(key)
		if err != nil {
			return nil, err
		}
		h.modifiers[core.ModifierKey{Type: event.TypeCast, Ability: a.ID}] = delta
	}
	if h.overheated, err = statusID(data, "OVERHEATED"); err != nil {
		return nil, err
	}
	if a, err := data.ActionByKey("BARREL_STABILIZER"); err == nil {
		h.icon = a.Icon
	}

	f := core.Player()
	f.AbilityIDs = h.modifiers.Abilities()
	if err := ctx.On([]event.Type{event.TypeCast}, f, h.onModifier, engine.Requires(event.FieldAbility)); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(h.onComplete); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Heat) onModifier(ev event.Event) error {
	h.gauge.ModifyAt(ev.Timestamp, h.modifiers.Lookup(ev))
	return nil
}

func (h *Heat) onComplete(event.Event) error {
	over := h.gauge.OverCap()
	h.out.Add(suggest.Suggestion{
		Icon:    h.icon,
		Content: "Avoid overcapping your heat gauge. Spend heat with Hypercharge before heated shots or Barrel Stabilizer would push it past the cap.",
		Why:     fmt.Sprintf("%d heat lost to an overcapped gauge.", over),
		Value:   float64(over),
		Tiers:   HeatOvercapTiers,
	})
	return nil
}

// Value returns the current heat.
func (h *Heat) Value() int { return h.gauge.Value() }

// OverCap returns the heat lost to the cap.
func (h *Heat) OverCap() int { return h.gauge.OverCap() }

// Overheated reports whether the player currently has the Overheated status.
func (h *Heat) Overheated() bool {
	return h.statuses.Has(h.player, h.overheated)
}

// Summary returns the gauge state and its history.
func (h *Heat) Summary() any {
	return HeatSummary{Gauge: h.gauge.Snapshot(), History: h.gauge.History()}
}

func statusID(data *gamedata.Table, key string) (int, error) {
	s, err := data.StatusByKey(key)
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}
