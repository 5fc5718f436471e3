package rating

// Option applies a configuration option to a Tracker.
type Option func(*Tracker)

// WithInitial sets the starting and reset value.
func WithInitial(value int) Option {
	return func(t *Tracker) {
		t.initial = value
	}
}

// WithKFactors sets the scale of correct and incorrect outcomes.
func WithKFactors(correct, incorrect int) Option {
	return func(t *Tracker) {
		if correct >= 0 {
			t.kCorrect = correct
		}
		if incorrect >= 0 {
			t.kIncorrect = incorrect
		}
	}
}

// WithBaseline sets the expected score an outcome is measured against.
func WithBaseline(baseline float64) Option {
	return func(t *Tracker) {
		if baseline >= 0 && baseline <= 1 {
			t.baseline = baseline
		}
	}
}
