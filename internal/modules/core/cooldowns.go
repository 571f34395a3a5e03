package core

import (
	"sort"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
)

// Cooldowns records the selected player's uses of every action with a
// cooldown and derives time spent on cooldown.
type Cooldowns struct {
	data  *gamedata.Table
	uses  map[int][]int64
	start int64
	end   int64
}

// CooldownUsage is one row of the cooldowns summary.
type CooldownUsage struct {
	Ability        int    `json:"ability"`
	Name           string `json:"name"`
	Uses           int    `json:"uses"`
	TimeOnCooldown int64  `json:"timeOnCooldown"`
}

// NewCooldowns constructs the cooldowns module.
func NewCooldowns(ctx *engine.Context) (engine.Module, error) {
	if ctx.Data() == nil {
		return nil, ErrNoStaticData
	}
	c := &Cooldowns{
		data: ctx.Data(),
		uses: make(map[int][]int64),
	}

	ids := make(event.IDSet)
	for _, a := range c.data.Actions() {
		if a.Cooldown > 0 {
			ids[a.ID] = struct{}{}
		}
	}

	f := Player()
	f.AbilityIDs = ids
	if err := ctx.On([]event.Type{event.TypeCast}, f, c.onCast, engine.Requires(event.FieldAbility)); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(c.onComplete); err != nil {
		return nil, err
	}
	return c, nil
}

// Prescan records the fight bounds.
func (c *Cooldowns) Prescan(events []event.Event) error {
	if len(events) > 0 {
		c.start = events[0].Timestamp
		c.end = events[len(events)-1].Timestamp
	}
	return nil
}

func (c *Cooldowns) onCast(ev event.Event) error {
	id, _ := ev.Ability()
	c.uses[id] = append(c.uses[id], ev.Timestamp)
	return nil
}

func (c *Cooldowns) onComplete(ev event.Event) error {
	c.end = max(c.end, ev.Timestamp)
	return nil
}

// Uses returns how many times the player used ability.
func (c *Cooldowns) Uses(ability int) int {
	return len(c.uses[ability])
}

// UseTimes returns the timestamps of each use.
func (c *Cooldowns) UseTimes(ability int) []int64 {
	return append([]int64(nil), c.uses[ability]...)
}

// Cooldown returns the ability's cooldown in ms, 0 if unknown.
func (c *Cooldowns) Cooldown(ability int) int64 {
	a, _ := c.data.Action(ability)
	return a.Cooldown
}

// TimeOnCooldown sums, for each use, the cooldown length clipped to the next
// use or the fight end.
func (c *Cooldowns) TimeOnCooldown(ability int) int64 {
	cd := c.Cooldown(ability)
	uses := c.uses[ability]
	var total int64
	for i, ts := range uses {
		limit := c.end
		if i+1 < len(uses) {
			limit = uses[i+1]
		}
		total += max(0, min(cd, limit-ts))
	}
	return total
}

// Duration returns the span from the first to the last event.
func (c *Cooldowns) Duration() int64 { return c.end - c.start }

// Summary lists each used ability, ascending by id.
func (c *Cooldowns) Summary() any {
	ids := make([]int, 0, len(c.uses))
	for id := range c.uses {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([]CooldownUsage, 0, len(ids))
	for _, id := range ids {
		a, _ := c.data.Action(id)
		rows = append(rows, CooldownUsage{
			Ability:        id,
			Name:           a.Name,
			Uses:           c.Uses(id),
			TimeOnCooldown: c.TimeOnCooldown(id),
		})
	}
	return rows
}
