package event

// Role classifies a participant relative to the analysed player.
type Role uint8

const (
	RoleNone Role = iota
	RolePlayer
	RolePet
	RoleEnemy
	RoleFriendly
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RolePet:
		return "pet"
	case RoleEnemy:
		return "enemy"
	case RoleFriendly:
		return "friendly"
	default:
		return "none"
	}
}

// RoleSet is a set of roles. The zero value is empty.
type RoleSet uint8

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r == RoleNone {
			continue
		}
		s |= 1 << r
	}
	return s
}

// Has reports membership.
func (s RoleSet) Has(r Role) bool {
	if r == RoleNone {
		return false
	}
	return s&(1<<r) != 0
}

// RoleResolver maps participant ids to roles.
type RoleResolver interface {
	Role(id int64) Role
}
