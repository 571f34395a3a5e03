package event

import (
	"errors"
	"fmt"
)

var (
	// ErrUnordered is returned when timestamps decrease within a stream.
	ErrUnordered = errors.New("event stream is not time-ordered")

	// ErrReservedType is returned when an input stream carries the terminal
	// event type, which only the engine may synthesise.
	ErrReservedType = errors.New("reserved event type in stream")
)

// Validate checks the invariants an input stream must satisfy before
// dispatch: non-decreasing timestamps and no terminal events.
func Validate(events []Event) error {
	for i, ev := range events {
		if ev.Type == TypeComplete {
			return fmt.Errorf("event %d: %w: %s", i, ErrReservedType, ev.Type)
		}
		if i > 0 && ev.Timestamp < events[i-1].Timestamp {
			return fmt.Errorf("event %d: %w (%d after %d)", i, ErrUnordered, ev.Timestamp, events[i-1].Timestamp)
		}
	}
	return nil
}

// Terminal synthesises the complete event for a stream. Its timestamp is that
// of the last stream event, or 0 for an empty stream.
func Terminal(events []Event) Event {
	var ts int64
	if n := len(events); n > 0 {
		ts = events[n-1].Timestamp
	}
	return Event{Type: TypeComplete, Timestamp: ts}
}

// Duration returns the span between the first and last event.
func Duration(events []Event) int64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Timestamp - events[0].Timestamp
}

// CloneAll deep-copies a stream with Clone.
func CloneAll(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}
