// Package window implements the window aggregator: a per-target state machine
// that opens on a trigger event, buffers contributing events with a running
// total, and folds them into a summary record when it closes.
//
// Windows are exclusive per target id. A second trigger for a target whose
// window is already open is ignored; windows on different targets may be
// open at the same time. History is append-only and kept in close order.
package window

import (
	"math"
	"sort"

	"github.com/roach88/combatlens/internal/event"
)

// Cast is one contributing event held by a window, enriched with values
// derived at contribution time. The event itself is a copy.
type Cast struct {
	Event        event.Event `json:"event"`
	RunningTotal int64       `json:"runningTotal"`
	OnGCD        bool        `json:"onGCD"`
	Flagged      bool        `json:"flagged"`
}

// Window is an open or closed bracket of the stream for one target.
type Window struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end,omitempty"`
	TargetID int64  `json:"target"`
	Casts    []Cast `json:"casts"`

	// Summary fields, populated on close.
	GCDCount        int   `json:"gcdCount"`
	FlaggedGCDCount int   `json:"flaggedGcdCount"`
	Total           int64 `json:"total"`
}

// ContributeOpts classifies a contributing event.
type ContributeOpts struct {
	OnGCD   bool
	Flagged bool
}

// Aggregator tracks open windows per target and the closed history.
type Aggregator struct {
	factor  float64
	open    map[int64]*Window
	history []Window
}

// New creates an aggregator whose running total adds floor(amount*factor)
// per contributing event.
func New(factor float64) *Aggregator {
	return &Aggregator{
		factor: factor,
		open:   make(map[int64]*Window),
	}
}

// Open starts a window for ev.TargetID at ev.Timestamp. It returns false and
// leaves the existing window untouched when one is already open for that
// target.
func (a *Aggregator) Open(ev event.Event) bool {
	if _, ok := a.open[ev.TargetID]; ok {
		return false
	}
	a.open[ev.TargetID] = &Window{
		Start:    ev.Timestamp,
		TargetID: ev.TargetID,
		Casts:    []Cast{},
	}
	return true
}

// IsOpen reports whether a window is open for the target.
func (a *Aggregator) IsOpen(targetID int64) bool {
	_, ok := a.open[targetID]
	return ok
}

// Current returns a copy of the open window for the target.
func (a *Aggregator) Current(targetID int64) (Window, bool) {
	w, ok := a.open[targetID]
	if !ok {
		return Window{}, false
	}
	return copyWindow(*w), true
}

// OpenTargets returns the targets with an open window, ascending.
func (a *Aggregator) OpenTargets() []int64 {
	ids := make([]int64, 0, len(a.open))
	for id := range a.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Contribute appends ev to the target's open window. It returns false when
// no window is open for the target.
func (a *Aggregator) Contribute(targetID int64, ev event.Event, amount int64, opts ContributeOpts) bool {
	w, ok := a.open[targetID]
	if !ok {
		return false
	}
	var prev int64
	if n := len(w.Casts); n > 0 {
		prev = w.Casts[n-1].RunningTotal
	}
	w.Casts = append(w.Casts, Cast{
		Event:        ev,
		RunningTotal: prev + int64(math.Floor(float64(amount)*a.factor)),
		OnGCD:        opts.OnGCD,
		Flagged:      opts.Flagged,
	})
	return true
}

// Close finalises the target's window against the reported total.
//
// Trailing casts whose running total exceeds reportedTotal are discarded
// before the summary counts are computed. The closed window is appended to
// history and returned.
func (a *Aggregator) Close(targetID int64, reportedTotal int64, endTs int64) (Window, bool) {
	w, ok := a.open[targetID]
	if !ok {
		return Window{}, false
	}
	delete(a.open, targetID)

	n := len(w.Casts)
	for n > 0 && w.Casts[n-1].RunningTotal > reportedTotal {
		n--
	}
	w.Casts = w.Casts[:n]

	w.GCDCount, w.FlaggedGCDCount = 0, 0
	for _, c := range w.Casts {
		if !c.OnGCD {
			continue
		}
		w.GCDCount++
		if c.Flagged {
			w.FlaggedGCDCount++
		}
	}
	w.Total = reportedTotal
	w.End = endTs

	a.history = append(a.history, *w)
	return copyWindow(*w), true
}

// History returns the closed windows in close order.
func (a *Aggregator) History() []Window {
	out := make([]Window, len(a.history))
	for i, w := range a.history {
		out[i] = copyWindow(w)
	}
	return out
}

// Pending returns copies of the windows still open, ordered by start then
// target. These never closed and are not part of History.
func (a *Aggregator) Pending() []Window {
	out := make([]Window, 0, len(a.open))
	for _, w := range a.open {
		out = append(out, copyWindow(*w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

// Deficient reports whether a closed window holds at least threshold GCDs
// that were not flagged.
func Deficient(w Window, threshold int) bool {
	return w.GCDCount-w.FlaggedGCDCount >= threshold
}

// CountDeficient counts the deficient windows in ws.
func CountDeficient(ws []Window, threshold int) int {
	n := 0
	for _, w := range ws {
		if Deficient(w, threshold) {
			n++
		}
	}
	return n
}

func copyWindow(w Window) Window {
	casts := make([]Cast, len(w.Casts))
	copy(casts, w.Casts)
	w.Casts = casts
	return w
}
