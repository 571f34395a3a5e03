package event

import "fmt"

// Type is the logical kind of an event.
//
// The set is open: types not listed here flow through the engine untouched
// and only reach subscriptions that name them explicitly.
type Type string

const (
	TypeCast         Type = "cast"
	TypeDamage       Type = "damage"
	TypeHeal         Type = "heal"
	TypeApplyBuff    Type = "applybuff"
	TypeApplyDebuff  Type = "applydebuff"
	TypeRemoveBuff   Type = "removebuff"
	TypeRemoveDebuff Type = "removedebuff"
	TypeDeath        Type = "death"
	TypeComplete     Type = "complete"
)

// IsStatus reports whether events of this type carry a status id in their
// ability field.
func (t Type) IsStatus() bool {
	switch t {
	case TypeApplyBuff, TypeApplyDebuff, TypeRemoveBuff, TypeRemoveDebuff:
		return true
	}
	return false
}

// IsApply reports whether the type applies a status.
func (t Type) IsApply() bool {
	return t == TypeApplyBuff || t == TypeApplyDebuff
}

// Event is one timestamped record of the encounter stream.
//
// AbilityID is present for cast, damage, heal and status events; for status
// events it holds the status id. Amount is present for damage and heal.
type Event struct {
	Type      Type   `json:"type" yaml:"type"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // ms from encounter start
	SourceID  int64  `json:"source,omitempty" yaml:"source,omitempty"`
	TargetID  int64  `json:"target,omitempty" yaml:"target,omitempty"`
	AbilityID *int   `json:"ability,omitempty" yaml:"ability,omitempty"`
	Amount    *int64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// Ability returns the ability (or status) id when present.
func (e Event) Ability() (int, bool) {
	if e.AbilityID == nil {
		return 0, false
	}
	return *e.AbilityID, true
}

// Value returns the amount when present.
func (e Event) Value() (int64, bool) {
	if e.Amount == nil {
		return 0, false
	}
	return *e.Amount, true
}

// Clone returns a copy that shares no memory with e.
func (e Event) Clone() Event {
	if e.AbilityID != nil {
		id := *e.AbilityID
		e.AbilityID = &id
	}
	if e.Amount != nil {
		amt := *e.Amount
		e.Amount = &amt
	}
	return e
}

// String renders a compact form for logs.
func (e Event) String() string {
	s := fmt.Sprintf("%s@%d %d->%d", e.Type, e.Timestamp, e.SourceID, e.TargetID)
	if id, ok := e.Ability(); ok {
		s += fmt.Sprintf(" ability=%d", id)
	}
	if amt, ok := e.Value(); ok {
		s += fmt.Sprintf(" amount=%d", amt)
	}
	return s
}

// Field identifies optional event fields a subscription may require.
type Field uint8

const (
	FieldAbility Field = 1 << iota
	FieldAmount
	FieldSource
	FieldTarget
)

// String lists the set fields, e.g. "ability|amount".
func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  Field
		name string
	}{
		{FieldAbility, "ability"},
		{FieldAmount, "amount"},
		{FieldSource, "source"},
		{FieldTarget, "target"},
	}
	var out string
	for _, n := range names {
		if f&n.bit == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	return out
}

// Missing returns the subset of required fields absent from ev.
// Participant ids are considered absent when zero.
func Missing(ev Event, required Field) Field {
	var missing Field
	if required&FieldAbility != 0 && ev.AbilityID == nil {
		missing |= FieldAbility
	}
	if required&FieldAmount != 0 && ev.Amount == nil {
		missing |= FieldAmount
	}
	if required&FieldSource != 0 && ev.SourceID == 0 {
		missing |= FieldSource
	}
	if required&FieldTarget != 0 && ev.TargetID == 0 {
		missing |= FieldTarget
	}
	return missing
}

// IntPtr is a convenience for building events with an ability id.
func IntPtr(v int) *int { return &v }

// AmountPtr is a convenience for building events with an amount.
func AmountPtr(v int64) *int64 { return &v }
