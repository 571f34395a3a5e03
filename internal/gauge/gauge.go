// Package gauge implements a bounded counter with saturating arithmetic.
//
// A Gauge never leaves [0, Max]. Positive deltas that would exceed Max are
// added to OverCap, which only ever grows. Negative deltas below zero are
// clamped without any matching accounting.
package gauge

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMax is returned by New when the capacity is not positive.
var ErrInvalidMax = errors.New("gauge max must be positive")

// Sample is one recorded value of the gauge after a timestamped change.
type Sample struct {
	Timestamp int64 `json:"timestamp"`
	Value     int   `json:"value"`
}

// Gauge is a bounded accumulator. The zero value is not usable; use New.
type Gauge struct {
	value   int
	max     int
	overCap int
	history []Sample
}

// Option configures a Gauge at construction.
type Option func(*Gauge)

// WithInitial sets the starting value, clamped to [0, max].
func WithInitial(v int) Option {
	return func(g *Gauge) {
		g.value = clamp(v, 0, g.max)
	}
}

// New creates a gauge with capacity max.
func New(max int, opts ...Option) (*Gauge, error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMax, max)
	}
	g := &Gauge{max: max}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// MustNew is New for package-level constants; it panics on invalid max.
func MustNew(max int, opts ...Option) *Gauge {
	g, err := New(max, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Modify applies delta and returns the amount actually applied.
//
// For delta > 0 the applied amount is min(delta, max-value) and the rest is
// added to OverCap, saturating at math.MaxInt. For delta < 0 the applied
// amount is -min(-delta, value).
func (g *Gauge) Modify(delta int) int {
	switch {
	case delta > 0:
		applied := min(delta, g.max-g.value)
		g.value += applied
		lost := delta - applied
		if g.overCap > math.MaxInt-lost {
			g.overCap = math.MaxInt
		} else {
			g.overCap += lost
		}
		return applied
	case delta < 0:
		// -delta overflows for math.MinInt; compare against -value instead.
		applied := g.value
		if delta > -g.value {
			applied = -delta
		}
		g.value -= applied
		return -applied
	}
	return 0
}

// ModifyAt is Modify plus a history sample at ts.
func (g *Gauge) ModifyAt(ts int64, delta int) int {
	applied := g.Modify(delta)
	g.history = append(g.history, Sample{Timestamp: ts, Value: g.value})
	return applied
}

// Value returns the current value.
func (g *Gauge) Value() int { return g.value }

// Max returns the capacity.
func (g *Gauge) Max() int { return g.max }

// OverCap returns the cumulative amount lost to the cap.
func (g *Gauge) OverCap() int { return g.overCap }

// Full reports whether the gauge is at capacity.
func (g *Gauge) Full() bool { return g.value == g.max }

// Empty reports whether the gauge is at zero.
func (g *Gauge) Empty() bool { return g.value == 0 }

// History returns a copy of the samples recorded by ModifyAt.
func (g *Gauge) History() []Sample {
	out := make([]Sample, len(g.history))
	copy(out, g.history)
	return out
}

// Snapshot is the read-only summary of a gauge.
type Snapshot struct {
	Value   int `json:"value"`
	Max     int `json:"max"`
	OverCap int `json:"overCap"`
}

// Snapshot returns the current state.
func (g *Gauge) Snapshot() Snapshot {
	return Snapshot{Value: g.value, Max: g.max, OverCap: g.overCap}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
