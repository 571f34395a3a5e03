package mch

import (
	"fmt"
	"log/slog"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/modules/core"
	"github.com/roach88/combatlens/internal/suggest"
	"github.com/roach88/combatlens/internal/window"
)

const (
	// wildfireDamageFactor is the share of each hit Wildfire detonates for.
	wildfireDamageFactor = 0.25

	// nonOverheatedGCDThreshold marks a window bad when it holds at least this
	// many GCDs outside Overheated.
	nonOverheatedGCDThreshold = 2
)

// WildfireTiers grades the number of bad Wildfire windows.
var WildfireTiers = suggest.NewTiers(map[float64]suggest.Severity{
	1: suggest.Medium,
	3: suggest.Major,
})

// Wildfire brackets each Wildfire application on a target and grades the
// damage dealt into it.
//
// A window opens when the player applies the Wildfire debuff, collects the
// player's hits on that target while it carries the debuff, and closes on
// the detonation, whose amount is the true total. Windows are per target; a
// second application on a target with an open window is ignored.
type Wildfire struct {
	data     *gamedata.Table
	statuses *core.Statuses
	heat     *Heat
	windows  *window.Aggregator
	status   int
	icon     string
	logger   *slog.Logger
	out      *suggest.Suggestions
}

// WildfireWindow is one closed window in the summary.
type WildfireWindow struct {
	Start          int64 `json:"start"`
	End            int64 `json:"end"`
	Target         int64 `json:"target"`
	GCDs           int   `json:"gcds"`
	OverheatedGCDs int   `json:"overheatedGcds"`
	Damage         int64 `json:"damage"`
	Casts          []int `json:"casts"`
	Deficient      bool  `json:"deficient"`
}

// WildfireSummary is the wildfire module's output.
type WildfireSummary struct {
	Windows []WildfireWindow `json:"windows"`
	Bad     int              `json:"bad"`
	Pending int              `json:"pending"`
}

// NewWildfire constructs the wildfire module.
func NewWildfire(ctx *engine.Context) (engine.Module, error) {
	statuses, err := engine.Dep[*core.Statuses](ctx, core.HandleStatuses)
	if err != nil {
		return nil, err
	}
	heat, err := engine.Dep[*Heat](ctx, HandleHeat)
	if err != nil {
		return nil, err
	}
	data := ctx.Data()
	if data == nil {
		return nil, core.ErrNoStaticData
	}

	w := &Wildfire{
		data:     data,
		statuses: statuses,
		heat:     heat,
		windows:  window.New(wildfireDamageFactor),
		logger:   ctx.Logger(),
		out:      ctx.Suggestions(),
	}
	if w.status, err = statusID(data, "WILDFIRE"); err != nil {
		return nil, err
	}
	if a, err := data.ActionByKey("WILDFIRE"); err == nil {
		w.icon = a.Icon
	}

	hits := core.Player()
	detonations := core.Player()
	detonations.AbilityIDs = event.IDs(w.status)
	applications := core.Player()
	applications.StatusIDs = event.IDs(w.status)

	damage := []event.Type{event.TypeDamage}
	required := engine.Requires(event.FieldAbility | event.FieldAmount | event.FieldTarget)

	// Hits are offered before the detonation handler so the detonation's own
	// contribution is buffered and then trimmed against its total.
	if err := ctx.On(damage, hits, w.onDamage, required); err != nil {
		return nil, err
	}
	if err := ctx.On(damage, detonations, w.onDetonation, required); err != nil {
		return nil, err
	}
	if err := ctx.On([]event.Type{event.TypeApplyDebuff}, applications, w.onApplied, engine.Requires(event.FieldTarget)); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(w.onComplete); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wildfire) onDamage(ev event.Event) error {
	if !w.statuses.Has(ev.TargetID, w.status) || !w.windows.IsOpen(ev.TargetID) {
		return nil
	}
	id, _ := ev.Ability()
	amount, _ := ev.Value()
	w.windows.Contribute(ev.TargetID, ev, amount, window.ContributeOpts{
		OnGCD: w.data.OnGCD(id),
		// Recorded for every hit; only GCDs are graded.
		Flagged: w.heat.Overheated(),
	})
	return nil
}

func (w *Wildfire) onDetonation(ev event.Event) error {
	amount, _ := ev.Value()
	if _, ok := w.windows.Close(ev.TargetID, amount, ev.Timestamp); !ok {
		w.logger.Debug("wildfire detonation without open window", "target", ev.TargetID, "timestamp", ev.Timestamp)
	}
	return nil
}

func (w *Wildfire) onApplied(ev event.Event) error {
	if !w.windows.Open(ev) {
		w.logger.Debug("wildfire already open on target", "target", ev.TargetID, "timestamp", ev.Timestamp)
	}
	return nil
}

func (w *Wildfire) onComplete(event.Event) error {
	bad := w.Bad()
	w.out.Add(suggest.Suggestion{
		Icon:    w.icon,
		Content: "Try to align your Wildfire windows as closely as possible with your overheat windows to maximize damage. Casting Wildfire too early or too late can cost you significant damage gains from heated shots and the damage buff from overheating.",
		Why:     fmt.Sprintf("%d of your Wildfire windows contained at least %d non-overheated GCDs.", bad, nonOverheatedGCDThreshold),
		Value:   float64(bad),
		Tiers:   WildfireTiers,
	})
	return nil
}

// History returns the closed windows in close order.
func (w *Wildfire) History() []window.Window { return w.windows.History() }

// Pending returns windows that never detonated.
func (w *Wildfire) Pending() []window.Window { return w.windows.Pending() }

// Bad counts windows with too many non-overheated GCDs.
func (w *Wildfire) Bad() int {
	return window.CountDeficient(w.windows.History(), nonOverheatedGCDThreshold)
}

// Summary returns one row per closed window.
func (w *Wildfire) Summary() any {
	hist := w.windows.History()
	rows := make([]WildfireWindow, 0, len(hist))
	for _, win := range hist {
		casts := make([]int, 0, len(win.Casts))
		for _, c := range win.Casts {
			id, _ := c.Event.Ability()
			casts = append(casts, id)
		}
		rows = append(rows, WildfireWindow{
			Start:          win.Start,
			End:            win.End,
			Target:         win.TargetID,
			GCDs:           win.GCDCount,
			OverheatedGCDs: win.FlaggedGCDCount,
			Damage:         win.Total,
			Casts:          casts,
			Deficient:      window.Deficient(win, nonOverheatedGCDThreshold),
		})
	}
	return WildfireSummary{
		Windows: rows,
		Bad:     window.CountDeficient(hist, nonOverheatedGCDThreshold),
		Pending: len(w.windows.Pending()),
	}
}
