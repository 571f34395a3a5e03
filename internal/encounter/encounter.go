// Package encounter loads pre-structured encounter files: the participant
// roster, the analysed player and the ordered event stream.
//
// Files are YAML. JSON files load too, since JSON is valid YAML. Unknown
// fields are rejected so typos surface as errors instead of silently
// dropped data.
package encounter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/event"
)

// ErrInvalid marks an encounter that parsed but fails validation.
var ErrInvalid = errors.New("invalid encounter")

// Encounter is one recorded fight as seen from one player.
type Encounter struct {
	Name         string              `yaml:"name" json:"name"`
	Job          string              `yaml:"job" json:"job"`
	Player       int64               `yaml:"player" json:"player"`
	Participants []actor.Participant `yaml:"participants" json:"participants"`
	Events       []event.Event       `yaml:"events" json:"events"`

	// Source is the path the encounter was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Load reads and parses an encounter file.
func Load(path string) (*Encounter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encounter file: %w", err)
	}
	enc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	enc.Source = path
	return enc, nil
}

// Parse decodes an encounter document.
func Parse(data []byte) (*Encounter, error) {
	var enc Encounter
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&enc); err != nil {
		return nil, fmt.Errorf("failed to parse encounter: %w", err)
	}
	if err := validate(&enc); err != nil {
		return nil, err
	}
	enc.Job = strings.ToUpper(enc.Job)
	return &enc, nil
}

func validate(e *Encounter) error {
	if e.Job == "" {
		return fmt.Errorf("%w: job is required", ErrInvalid)
	}
	if e.Player == 0 {
		return fmt.Errorf("%w: player is required", ErrInvalid)
	}
	if len(e.Participants) == 0 {
		return fmt.Errorf("%w: participants list is required and must be non-empty", ErrInvalid)
	}
	for i, ev := range e.Events {
		if ev.Type == "" {
			return fmt.Errorf("%w: events[%d]: type is required", ErrInvalid, i)
		}
	}
	return nil
}

// Roster indexes the participants around the analysed player.
func (e *Encounter) Roster() (*actor.Roster, error) {
	r, err := actor.NewRoster(e.Player, e.Participants)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return r, nil
}

// Label names the encounter for output: its name, else its source path.
func (e *Encounter) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Source
}
