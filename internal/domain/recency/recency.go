// Package recency remembers the most recently used grouping keys so the
// selector can avoid repeating them.
package recency

import "sync"

// DefaultCapacity is the number of keys remembered when no option is given.
const DefaultCapacity = 3

// node is one remembered key; the list runs newest to oldest.
type node struct {
	key  string
	next *node
}

// Window is a bounded most-recent set of grouping keys. Adding past capacity
// evicts the oldest key.
type Window struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node // most recently added
	capacity int
}

// New creates a window with the given options.
func New(opts ...Option) *Window {
	w := &Window{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(w)
	}
	w.keys = make(map[string]*node)
	return w
}

// Capacity returns the configured bound.
func (w *Window) Capacity() int { return w.capacity }

// Contains reports whether key is among the remembered keys.
func (w *Window) Contains(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.keys[key]
	return ok
}

// Add remembers key as the most recent one, moving it to the front when
// already present, and evicts from the oldest end down to limit entries.
// limit is clamped to the window capacity; pass Capacity() for no extra bound.
func (w *Window) Add(key string, limit int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if limit > w.capacity {
		limit = w.capacity
	}
	if limit <= 0 {
		w.clearLocked()
		return
	}

	w.unlinkLocked(key)
	n := &node{key: key, next: w.head}
	w.head = n
	w.keys[key] = n

	for len(w.keys) > limit {
		w.evictOldestLocked()
	}
}

// Clear forgets every key.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearLocked()
}

// Len returns the number of remembered keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.keys)
}

// Keys returns the remembered keys, newest first.
func (w *Window) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.keys))
	for n := w.head; n != nil; n = n.next {
		out = append(out, n.key)
	}
	return out
}

func (w *Window) clearLocked() {
	w.head = nil
	w.keys = make(map[string]*node)
}

// unlinkLocked removes key from the list if present.
// Must be called with w.mu held.
func (w *Window) unlinkLocked(key string) {
	target, ok := w.keys[key]
	if !ok {
		return
	}
	delete(w.keys, key)
	if w.head == target {
		w.head = target.next
		return
	}
	for cur := w.head; cur != nil; cur = cur.next {
		if cur.next == target {
			cur.next = target.next
			return
		}
	}
}

// evictOldestLocked drops the tail of the list.
// Must be called with w.mu held.
func (w *Window) evictOldestLocked() {
	if w.head == nil {
		return
	}
	if w.head.next == nil {
		delete(w.keys, w.head.key)
		w.head = nil
		return
	}
	prev := w.head
	for prev.next.next != nil {
		prev = prev.next
	}
	delete(w.keys, prev.next.key)
	prev.next = nil
}
