// Package testutil provides deterministic fixtures for tests: a fluent event
// stream builder and fixed run id generators.
package testutil

import "github.com/roach88/combatlens/internal/event"

// Stream builds a time-ordered event slice.
//
// The builder keeps a cursor timestamp. At() moves it to an absolute time and
// After() advances it; every appended event takes the cursor's value. Moving
// the cursor backwards is allowed so tests can build invalid streams.
type Stream struct {
	now    int64
	events []event.Event
}

// NewStream creates an empty builder at timestamp 0.
func NewStream() *Stream {
	return &Stream{}
}

// At moves the cursor to ts.
func (s *Stream) At(ts int64) *Stream {
	s.now = ts
	return s
}

// After advances the cursor by ms.
func (s *Stream) After(ms int64) *Stream {
	s.now += ms
	return s
}

// Now returns the cursor timestamp.
func (s *Stream) Now() int64 { return s.now }

// Raw appends ev as is, overriding its timestamp with the cursor.
func (s *Stream) Raw(ev event.Event) *Stream {
	ev.Timestamp = s.now
	s.events = append(s.events, ev)
	return s
}

// Cast appends a cast of ability by src on tgt.
func (s *Stream) Cast(src, tgt int64, ability int) *Stream {
	return s.Raw(event.Event{Type: event.TypeCast, SourceID: src, TargetID: tgt, AbilityID: event.IntPtr(ability)})
}

// Damage appends a damage event.
func (s *Stream) Damage(src, tgt int64, ability int, amount int64) *Stream {
	return s.Raw(event.Event{Type: event.TypeDamage, SourceID: src, TargetID: tgt, AbilityID: event.IntPtr(ability), Amount: event.AmountPtr(amount)})
}

// Heal appends a heal event.
func (s *Stream) Heal(src, tgt int64, ability int, amount int64) *Stream {
	return s.Raw(event.Event{Type: event.TypeHeal, SourceID: src, TargetID: tgt, AbilityID: event.IntPtr(ability), Amount: event.AmountPtr(amount)})
}

// ApplyBuff appends an applybuff of status from src onto tgt.
func (s *Stream) ApplyBuff(src, tgt int64, status int) *Stream {
	return s.status(event.TypeApplyBuff, src, tgt, status)
}

// RemoveBuff appends a removebuff.
func (s *Stream) RemoveBuff(src, tgt int64, status int) *Stream {
	return s.status(event.TypeRemoveBuff, src, tgt, status)
}

// ApplyDebuff appends an applydebuff.
func (s *Stream) ApplyDebuff(src, tgt int64, status int) *Stream {
	return s.status(event.TypeApplyDebuff, src, tgt, status)
}

// RemoveDebuff appends a removedebuff.
func (s *Stream) RemoveDebuff(src, tgt int64, status int) *Stream {
	return s.status(event.TypeRemoveDebuff, src, tgt, status)
}

// Death appends the death of tgt.
func (s *Stream) Death(tgt int64) *Stream {
	return s.Raw(event.Event{Type: event.TypeDeath, TargetID: tgt})
}

func (s *Stream) status(t event.Type, src, tgt int64, status int) *Stream {
	return s.Raw(event.Event{Type: t, SourceID: src, TargetID: tgt, AbilityID: event.IntPtr(status)})
}

// Events returns a copy of the built stream.
func (s *Stream) Events() []event.Event {
	return append([]event.Event(nil), s.events...)
}

// Len returns the number of events built so far.
func (s *Stream) Len() int { return len(s.events) }
