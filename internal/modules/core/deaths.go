package core

import (
	"fmt"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/suggest"
)

// DeathTiers grades the number of player deaths.
var DeathTiers = suggest.NewTiers(map[float64]suggest.Severity{
	1: suggest.Major,
})

// Deaths counts the selected player's deaths.
type Deaths struct {
	times []int64
	out   *suggest.Suggestions
}

// NewDeaths constructs the deaths module.
func NewDeaths(ctx *engine.Context) (engine.Module, error) {
	d := &Deaths{out: ctx.Suggestions()}

	f := event.Filter{To: event.Roles(event.RolePlayer)}
	if err := ctx.On([]event.Type{event.TypeDeath}, f, d.onDeath); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(d.onComplete); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deaths) onDeath(ev event.Event) error {
	d.times = append(d.times, ev.Timestamp)
	return nil
}

func (d *Deaths) onComplete(event.Event) error {
	n := len(d.times)
	d.out.Add(suggest.Suggestion{
		Icon:    "general/death",
		Content: "Don't die. Between downtime, lost gauge resources, and resurrection debuffs, dying is absolutely crippling to damage output.",
		Why:     fmt.Sprintf("%d death(s).", n),
		Value:   float64(n),
		Tiers:   DeathTiers,
	})
	return nil
}

// Count returns the number of deaths.
func (d *Deaths) Count() int { return len(d.times) }

// Times returns the death timestamps.
func (d *Deaths) Times() []int64 {
	out := make([]int64, len(d.times))
	copy(out, d.times)
	return out
}

// Summary reports the death count and timestamps.
func (d *Deaths) Summary() any {
	return map[string]any{
		"count": len(d.times),
		"times": d.Times(),
	}
}
