// Package slab provides dense, freelist-backed storage with stable
// integer keys, used to key kernel completions (and timer/task state) to
// in-flight entries without the entries themselves moving in memory.
//
// Grounded on the teacher's per-tag dense arrays in queue/runner.go
// (tagStates/tagMutexes/ioCmds indexed by tag) and on monoio's
// utils::slab::Ref usage from driver/uring/lifecycle.rs, generalized here
// into a reusable generic container.
package slab

// entry wraps a stored value with a free-list link. When occupied, next is
// unused; when free, next points to the next free slot (or -1 if none).
type entry[T any] struct {
	value    T
	occupied bool
	next     int
}

// Slab is a dense array of T with O(1) insert/remove and stable indices.
// Not safe for concurrent use; callers (the single-threaded driver) provide
// their own exclusion.
type Slab[T any] struct {
	entries []entry[T]
	freeHead int
	len      int
}

// New returns an empty slab.
func New[T any]() *Slab[T] {
	return &Slab[T]{freeHead: -1}
}

// NewWithCapacity returns an empty slab pre-sized for n entries.
func NewWithCapacity[T any](n int) *Slab[T] {
	s := &Slab[T]{freeHead: -1}
	s.entries = make([]entry[T], 0, n)
	return s
}

// Len returns the number of occupied slots.
func (s *Slab[T]) Len() int { return s.len }

// Cap returns the number of slots allocated (occupied + free).
func (s *Slab[T]) Cap() int { return len(s.entries) }

// Insert stores value in a free slot (reusing one if available, otherwise
// growing the backing array) and returns its stable index.
func (s *Slab[T]) Insert(value T) int {
	s.len++
	if s.freeHead >= 0 {
		idx := s.freeHead
		s.freeHead = s.entries[idx].next
		s.entries[idx] = entry[T]{value: value, occupied: true, next: -1}
		return idx
	}
	s.entries = append(s.entries, entry[T]{value: value, occupied: true, next: -1})
	return len(s.entries) - 1
}

// Get returns a pointer to the value at idx for in-place mutation, and
// whether idx currently names an occupied slot.
func (s *Slab[T]) Get(idx int) (*T, bool) {
	if idx < 0 || idx >= len(s.entries) || !s.entries[idx].occupied {
		return nil, false
	}
	return &s.entries[idx].value, true
}

// Remove evicts the slot at idx, returning its value and whether idx was
// occupied. The slot is pushed onto the free list for reuse.
func (s *Slab[T]) Remove(idx int) (T, bool) {
	var zero T
	if idx < 0 || idx >= len(s.entries) || !s.entries[idx].occupied {
		return zero, false
	}
	v := s.entries[idx].value
	s.entries[idx] = entry[T]{occupied: false, next: s.freeHead}
	s.freeHead = idx
	s.len--
	return v, true
}

// Contains reports whether idx currently names an occupied slot.
func (s *Slab[T]) Contains(idx int) bool {
	_, ok := s.Get(idx)
	return ok
}
