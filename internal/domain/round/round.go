// Package round tracks one bounded run of questions.
//
//	Idle --Start--> InProgress --Record x length--> Complete
//	  ^                 |                              |
//	  +----Abandon------+------------Start-------------+
package round

import (
	"errors"
	"fmt"

	"github.com/okian/kunstquiz/internal/domain/model"
)

// DefaultLength is the number of attempts in a round.
const DefaultLength = 10

// ErrInvalidTransition is returned when an operation does not fit the current status.
var ErrInvalidTransition = errors.New("invalid round transition")

// Status is the round lifecycle state.
type Status int

const (
	Idle Status = iota
	InProgress
	Complete
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Attempt is one answered question.
type Attempt struct {
	Item          model.Item
	Dimension     string
	CorrectValue  string
	SelectedValue string
	Correct       bool
}

// Summary is the terminal result of a round.
type Summary struct {
	FilterID  string   `json:"filter"`
	Correct   int      `json:"correct"`
	Incorrect int      `json:"incorrect"`
	Keys      []string `json:"keys"` // distinct grouping keys, in order of first appearance
	Perfect   bool     `json:"perfect"`
}

// Round is not safe for concurrent use.
type Round struct {
	length   int
	status   Status
	filterID string
	attempts []Attempt
}

// New returns an idle round of length attempts (DefaultLength when not positive).
func New(length int) *Round {
	if length <= 0 {
		length = DefaultLength
	}
	return &Round{length: length}
}

// Start begins a new round on filterID, discarding any previous attempts.
func (r *Round) Start(filterID string) {
	r.status = InProgress
	r.filterID = filterID
	r.attempts = make([]Attempt, 0, r.length)
}

// Record appends a, reporting whether it completed the round.
func (r *Round) Record(a Attempt) (bool, error) {
	if r.status != InProgress {
		return false, fmt.Errorf("%w: record while %s", ErrInvalidTransition, r.status)
	}
	r.attempts = append(r.attempts, a)
	if len(r.attempts) >= r.length {
		r.status = Complete
		return true, nil
	}
	return false, nil
}

// Abandon drops an in-progress round and returns to Idle. It reports whether
// anything was discarded.
func (r *Round) Abandon() bool {
	discarded := r.status == InProgress
	r.status = Idle
	r.attempts = nil
	return discarded
}

// Summary is valid only once the round is Complete.
func (r *Round) Summary() (Summary, error) {
	if r.status != Complete {
		return Summary{}, fmt.Errorf("%w: summary while %s", ErrInvalidTransition, r.status)
	}
	s := Summary{FilterID: r.filterID, Keys: make([]string, 0, len(r.attempts))}
	seen := make(map[string]struct{}, len(r.attempts))
	for _, a := range r.attempts {
		if a.Correct {
			s.Correct++
		} else {
			s.Incorrect++
		}
		if _, ok := seen[a.Item.GroupKey]; !ok {
			seen[a.Item.GroupKey] = struct{}{}
			s.Keys = append(s.Keys, a.Item.GroupKey)
		}
	}
	s.Perfect = s.Correct == r.length
	return s, nil
}

// Status returns the current state.
func (r *Round) Status() Status { return r.status }

// FilterID returns the filter the round was started on.
func (r *Round) FilterID() string { return r.filterID }

// Length returns the configured number of attempts.
func (r *Round) Length() int { return r.length }

// Answered returns the number of recorded attempts.
func (r *Round) Answered() int { return len(r.attempts) }

// Attempts returns a copy of the recorded attempts.
func (r *Round) Attempts() []Attempt {
	return append([]Attempt(nil), r.attempts...)
}
