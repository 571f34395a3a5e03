package core

import (
	"sort"

	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
)

// Statuses tracks which statuses are active on which actor, and for how long.
//
// Re-applying an active status refreshes it without restarting the uptime
// interval. Removing an inactive status is ignored.
type Statuses struct {
	active map[int64]map[int]int64 // actor → status → applied at
	uptime map[int64]map[int]int64 // actor → status → closed interval total
	now    int64
}

// StatusUptime is one row of the statuses summary.
type StatusUptime struct {
	Actor  int64 `json:"actor"`
	Status int   `json:"status"`
	Uptime int64 `json:"uptime"`
}

// NewStatuses constructs the statuses module.
func NewStatuses(ctx *engine.Context) (engine.Module, error) {
	s := &Statuses{
		active: make(map[int64]map[int]int64),
		uptime: make(map[int64]map[int]int64),
	}

	types := []event.Type{event.TypeApplyBuff, event.TypeApplyDebuff, event.TypeRemoveBuff, event.TypeRemoveDebuff}
	if err := ctx.On(types, event.Filter{}, s.onStatus, engine.Requires(event.FieldAbility|event.FieldTarget)); err != nil {
		return nil, err
	}
	if err := ctx.OnComplete(s.onComplete); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Statuses) onStatus(ev event.Event) error {
	s.now = ev.Timestamp
	id, _ := ev.Ability()

	if ev.Type.IsApply() {
		on := s.active[ev.TargetID]
		if on == nil {
			on = make(map[int]int64)
			s.active[ev.TargetID] = on
		}
		if _, already := on[id]; !already {
			on[id] = ev.Timestamp
		}
		return nil
	}

	since, ok := s.active[ev.TargetID][id]
	if !ok {
		return nil
	}
	delete(s.active[ev.TargetID], id)
	s.addUptime(ev.TargetID, id, ev.Timestamp-since)
	return nil
}

func (s *Statuses) onComplete(ev event.Event) error {
	s.now = ev.Timestamp
	return nil
}

func (s *Statuses) addUptime(actor int64, status int, d int64) {
	u := s.uptime[actor]
	if u == nil {
		u = make(map[int]int64)
		s.uptime[actor] = u
	}
	u[status] += d
}

// Has reports whether status is currently active on actor.
func (s *Statuses) Has(actor int64, status int) bool {
	_, ok := s.active[actor][status]
	return ok
}

// ActiveOn returns the statuses active on actor, ascending.
func (s *Statuses) ActiveOn(actor int64) []int {
	ids := make([]int, 0, len(s.active[actor]))
	for id := range s.active[actor] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Uptime returns how long status has been active on actor over the whole
// fight. A still-open interval runs to the latest status or terminal
// timestamp seen, so the value is final only after complete; handlers
// querying mid-fight should use UptimeAt.
func (s *Statuses) Uptime(actor int64, status int) int64 {
	return s.UptimeAt(actor, status, s.now)
}

// UptimeAt is Uptime with a still-open interval counted up to at.
func (s *Statuses) UptimeAt(actor int64, status int, at int64) int64 {
	total := s.uptime[actor][status]
	if since, ok := s.active[actor][status]; ok {
		total += max(0, at-since)
	}
	return total
}

// Summary lists every non-zero uptime, ordered by actor then status.
func (s *Statuses) Summary() any {
	seen := make(map[int64]map[int]bool)
	var rows []StatusUptime
	add := func(actor int64, status int) {
		if seen[actor] == nil {
			seen[actor] = make(map[int]bool)
		}
		if seen[actor][status] {
			return
		}
		seen[actor][status] = true
		if up := s.Uptime(actor, status); up > 0 {
			rows = append(rows, StatusUptime{Actor: actor, Status: status, Uptime: up})
		}
	}
	for actor, m := range s.uptime {
		for status := range m {
			add(actor, status)
		}
	}
	for actor, m := range s.active {
		for status := range m {
			add(actor, status)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Actor != rows[j].Actor {
			return rows[i].Actor < rows[j].Actor
		}
		return rows[i].Status < rows[j].Status
	})
	if rows == nil {
		rows = []StatusUptime{}
	}
	return rows
}
