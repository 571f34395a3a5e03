package event

// IDSet is a set of ability or status ids.
type IDSet map[int]struct{}

// IDs builds an IDSet.
func IDs(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Filter selects events for a subscription.
//
// All non-empty fields must match (conjunction); empty fields are
// unconstrained. AbilityIDs and StatusIDs are membership tests. StatusIDs
// only ever matches status events (apply/remove buff/debuff), whose ability
// field carries the status id.
type Filter struct {
	By         RoleSet // source role
	To         RoleSet // target role
	Sources    []int64
	Targets    []int64
	AbilityIDs IDSet
	StatusIDs  IDSet
}

// Matches reports whether ev satisfies f. roles may be nil, in which case
// every participant classifies as RoleNone and any role predicate fails.
func Matches(f Filter, ev Event, roles RoleResolver) bool {
	if f.By != 0 && !f.By.Has(roleOf(roles, ev.SourceID)) {
		return false
	}
	if f.To != 0 && !f.To.Has(roleOf(roles, ev.TargetID)) {
		return false
	}
	if len(f.Sources) > 0 && !containsID(f.Sources, ev.SourceID) {
		return false
	}
	if len(f.Targets) > 0 && !containsID(f.Targets, ev.TargetID) {
		return false
	}
	if len(f.AbilityIDs) > 0 {
		id, ok := ev.Ability()
		if !ok || !f.AbilityIDs.Has(id) {
			return false
		}
	}
	if len(f.StatusIDs) > 0 {
		if !ev.Type.IsStatus() {
			return false
		}
		id, ok := ev.Ability()
		if !ok || !f.StatusIDs.Has(id) {
			return false
		}
	}
	return true
}

func roleOf(roles RoleResolver, id int64) Role {
	if roles == nil || id == 0 {
		return RoleNone
	}
	return roles.Role(id)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
