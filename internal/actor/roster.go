// Package actor holds encounter participant metadata and classifies
// participants into roles relative to the analysed player.
package actor

import (
	"errors"
	"fmt"

	"github.com/roach88/combatlens/internal/event"
)

// Kind is the participant category as reported by the event source.
type Kind string

const (
	KindPlayer Kind = "player"
	KindPet    Kind = "pet"
	KindNPC    Kind = "npc"
)

// Participant describes one actor of the encounter.
type Participant struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	OwnerID  int64  `json:"owner,omitempty" yaml:"owner,omitempty"` // pets only
	Friendly bool   `json:"friendly" yaml:"friendly"`
}

var (
	// ErrDuplicateParticipant is returned when two participants share an id.
	ErrDuplicateParticipant = errors.New("duplicate participant id")

	// ErrUnknownPlayer is returned when the selected player is not in the roster.
	ErrUnknownPlayer = errors.New("selected player not in roster")
)

// Roster is the read-only participant table for one encounter, bound to the
// selected (analysed) player. It implements event.RoleResolver.
type Roster struct {
	playerID int64
	byID     map[int64]Participant
	order    []int64
}

// NewRoster indexes participants and binds the selected player.
func NewRoster(playerID int64, participants []Participant) (*Roster, error) {
	r := &Roster{
		playerID: playerID,
		byID:     make(map[int64]Participant, len(participants)),
		order:    make([]int64, 0, len(participants)),
	}
	for _, p := range participants {
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateParticipant, p.ID)
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	if _, ok := r.byID[playerID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, playerID)
	}
	return r, nil
}

// PlayerID returns the selected player's id.
func (r *Roster) PlayerID() int64 { return r.playerID }

// Get looks up a participant.
func (r *Roster) Get(id int64) (Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Role classifies a participant:
//   - player: the selected player
//   - pet: a pet owned by the selected player
//   - friendly: any other friendly participant
//   - enemy: any hostile participant
func (r *Roster) Role(id int64) event.Role {
	if id == r.playerID {
		return event.RolePlayer
	}
	p, ok := r.byID[id]
	if !ok {
		return event.RoleNone
	}
	if p.Kind == KindPet && p.OwnerID == r.playerID {
		return event.RolePet
	}
	if p.Friendly {
		return event.RoleFriendly
	}
	return event.RoleEnemy
}

// Pets returns the selected player's pets in roster order.
func (r *Roster) Pets() []Participant {
	var pets []Participant
	for _, id := range r.order {
		if r.Role(id) == event.RolePet {
			pets = append(pets, r.byID[id])
		}
	}
	return pets
}

// Participants returns all participants in roster order.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
