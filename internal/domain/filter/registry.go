package filter

import (
	"fmt"
	"sync"
)

// Registry holds the named filters in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	matchers map[string]*Matcher
}

// NewRegistry returns a registry holding specs. Invalid specs are rejected.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{matchers: make(map[string]*Matcher, len(specs))}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds spec, replacing any filter with the same ID in place.
func (r *Registry) Register(spec Spec) error {
	m, err := Compile(spec)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.matchers[spec.ID]; !exists {
		r.order = append(r.order, spec.ID)
	}
	r.matchers[spec.ID] = m
	return nil
}

// Matcher returns the compiled filter for id.
func (r *Registry) Matcher(id string) (*Matcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matchers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}
	return m, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.matchers[id]
	return ok
}

// List returns the registered specs in registration order.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.matchers[id].spec)
	}
	return out
}
