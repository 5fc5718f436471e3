package recency

// Option applies a configuration option to a Window.
type Option func(*Window)

// WithCapacity sets how many recent keys are remembered.
// A capacity of zero or less disables recency avoidance.
func WithCapacity(capacity int) Option {
	return func(w *Window) {
		w.capacity = capacity
	}
}
