package core

import "sync/atomic"

// Handoff is a single-producer/single-consumer slot used to pass one value
// across the interrupt boundary. The producer only writes put, the consumer
// only writes taken; the slot is full while they differ.
type Handoff[T any] struct {
	val   T
	put   atomic.Uint32
	taken atomic.Uint32
}

// Put stores v if the slot is empty. Producer side only.
func (h *Handoff[T]) Put(v T) bool {
	if h.put.Load() != h.taken.Load() {
		return false
	}
	h.val = v
	h.put.Add(1)
	return true
}

// Take removes the value if the slot is full. Consumer side only.
func (h *Handoff[T]) Take() (T, bool) {
	if h.put.Load() == h.taken.Load() {
		var zero T
		return zero, false
	}
	v := h.val
	h.taken.Add(1)
	return v, true
}

// Full reports whether a value is waiting
func (h *Handoff[T]) Full() bool {
	return h.put.Load() != h.taken.Load()
}

// Seq is a monotonically increasing event counter with a single writer.
// Readers compare it against their own shadow copy to detect new events.
type Seq struct {
	n atomic.Uint32
}

// Bump records one event. Writer side only.
func (s *Seq) Bump() uint32 {
	return s.n.Add(1)
}

// Load returns the current count
func (s *Seq) Load() uint32 {
	return s.n.Load()
}
