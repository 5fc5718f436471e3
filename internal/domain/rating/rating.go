// Package rating keeps the player's ELO-style skill value and its history.
//
// Updates are deliberately asymmetric: a correct answer moves the rating by
// round(Kc*(1-baseline)), a wrong one by round(Ki*(0-baseline)). With the
// defaults that is +38 and -5.
package rating

import (
	"errors"
	"fmt"
	"math"
)

// Defaults.
const (
	DefaultInitial    = 800
	DefaultKCorrect   = 50
	DefaultKIncorrect = 20
	DefaultBaseline   = 0.25
)

// ErrInvalidSnapshot is returned when a restored snapshot is inconsistent.
var ErrInvalidSnapshot = errors.New("invalid rating snapshot")

// Point is one history entry.
type Point struct {
	Attempt int `json:"attempt"`
	Value   int `json:"value"`
}

// Snapshot is the persisted form of a tracker.
type Snapshot struct {
	Value   int     `json:"value"`
	History []Point `json:"history"`
}

// Outcome is the effect of one recorded answer.
type Outcome struct {
	Delta   int
	Value   int
	Attempt int
}

// Tracker holds the current rating. It is not safe for concurrent use.
type Tracker struct {
	initial    int
	kCorrect   int
	kIncorrect int
	baseline   float64

	value   int
	history []Point
}

// New returns a tracker at its initial value with the origin history point.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		initial:    DefaultInitial,
		kCorrect:   DefaultKCorrect,
		kIncorrect: DefaultKIncorrect,
		baseline:   DefaultBaseline,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Delta returns the change an outcome would cause.
func (t *Tracker) Delta(correct bool) int {
	if correct {
		return int(math.Round(float64(t.kCorrect) * (1 - t.baseline)))
	}
	return int(math.Round(float64(t.kIncorrect) * (0 - t.baseline)))
}

// RecordOutcome applies an answer and appends the new value to the history.
func (t *Tracker) RecordOutcome(correct bool) Outcome {
	d := t.Delta(correct)
	t.value += d
	next := t.history[len(t.history)-1].Attempt + 1
	t.history = append(t.history, Point{Attempt: next, Value: t.value})
	return Outcome{Delta: d, Value: t.value, Attempt: next}
}

// Reset returns to the initial value with a single origin point.
func (t *Tracker) Reset() {
	t.value = t.initial
	t.history = []Point{{Attempt: 0, Value: t.initial}}
}

// Value returns the current rating.
func (t *Tracker) Value() int { return t.value }

// Initial returns the starting value.
func (t *Tracker) Initial() int { return t.initial }

// Snapshot copies the current state.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{Value: t.value, History: append([]Point(nil), t.history...)}
}

// Restore replaces the state with s after validating it.
func (t *Tracker) Restore(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.value = s.Value
	t.history = append([]Point(nil), s.History...)
	return nil
}

// Validate checks that history is non-empty, strictly increasing in attempt
// index, and ends at Value.
func (s Snapshot) Validate() error {
	if len(s.History) == 0 {
		return fmt.Errorf("%w: empty history", ErrInvalidSnapshot)
	}
	if s.History[0].Attempt < 0 {
		return fmt.Errorf("%w: negative attempt index", ErrInvalidSnapshot)
	}
	for i := 1; i < len(s.History); i++ {
		if s.History[i].Attempt <= s.History[i-1].Attempt {
			return fmt.Errorf("%w: attempt %d follows %d", ErrInvalidSnapshot, s.History[i].Attempt, s.History[i-1].Attempt)
		}
	}
	if last := s.History[len(s.History)-1].Value; last != s.Value {
		return fmt.Errorf("%w: value %d does not match last point %d", ErrInvalidSnapshot, s.Value, last)
	}
	return nil
}
