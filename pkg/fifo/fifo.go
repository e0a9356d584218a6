// Package fifo implements a bounded, waitable single-producer/single-consumer
// queue, grounded on original_source/src/ipcaster/base/FIFO.hpp. The
// original uses a lock-free boost::lockfree::spsc_queue ring buffer guarded
// only on the blocking wait paths by a mutex+condvar pair per side; Go's
// ecosystem has no equivalently ubiquitous lock-free SPSC ring (none of the
// example repos in the retrieval pack import one), so this keeps the ring
// buffer itself but drives every operation, including the fast non-blocking
// ones, through a single mutex — see DESIGN.md for the standard-library
// justification.
package fifo

import "sync"

// FIFO is a bounded single-producer/single-consumer queue of T.
//
// Exactly one goroutine may call the producer methods (TryPush, Push,
// UnblockProducer) and exactly one goroutine may call the consumer methods
// (Front, Pop, WaitReadAvailable, UnblockConsumer); Clear may be called only
// when neither side is concurrently pushing or popping.
type FIFO[T any] struct {
	mu   sync.Mutex
	full sync.Cond // signalled when space becomes available (on Pop) or unblocked
	empty sync.Cond // signalled when an element becomes available (on Push) or unblocked

	ring []T
	head int // next slot to pop
	n    int // number of valid elements

	unblockProducer bool
	unblockConsumer bool
}

// New creates a FIFO with the given fixed capacity.
func New[T any](capacity int) *FIFO[T] {
	if capacity <= 0 {
		panic("fifo: capacity must be positive")
	}
	f := &FIFO[T]{ring: make([]T, capacity)}
	f.full.L = &f.mu
	f.empty.L = &f.mu
	return f
}

// Capacity returns the total reserved capacity of the FIFO.
func (f *FIFO[T]) Capacity() int { return len(f.ring) }

// TryPush attempts to push one element without blocking.
// Returns false iff the FIFO is full.
func (f *FIFO[T]) TryPush(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == len(f.ring) {
		return false
	}
	f.pushLocked(v)
	return true
}

// Push pushes one element, blocking while the FIFO is full until either the
// consumer pops an element or UnblockProducer(true) is called.
func (f *FIFO[T]) Push(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.n == len(f.ring) && !f.unblockProducer {
		f.full.Wait()
	}
	f.pushLocked(v)
}

// pushLocked assumes f.mu is held. If the FIFO is full (only possible when
// unblocked) the write is dropped, mirroring the underlying ring buffer's
// push() semantics of refusing to overwrite unread data.
func (f *FIFO[T]) pushLocked(v T) {
	if f.n < len(f.ring) {
		tail := (f.head + f.n) % len(f.ring)
		f.ring[tail] = v
		f.n++
	}
	f.empty.Signal()
}

// Front returns a reference to the element at the front of the FIFO.
// Only valid when ReadAvailable() > 0.
func (f *FIFO[T]) Front() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ring[f.head]
}

// Pop removes the front element from the FIFO.
func (f *FIFO[T]) Pop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.n == 0 {
		return
	}
	var zero T
	f.ring[f.head] = zero
	f.head = (f.head + 1) % len(f.ring)
	f.n--
	f.full.Signal()
}

// WriteAvailable returns the number of elements that can currently be pushed.
func (f *FIFO[T]) WriteAvailable() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ring) - f.n
}

// ReadAvailable returns the number of elements currently available to pop.
func (f *FIFO[T]) ReadAvailable() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// WaitReadAvailable blocks until there is at least one element to read, or
// until UnblockConsumer(true) is called, whichever happens first. It returns
// the number of elements available for read at wakeup (which may be 0 if
// unblocked while still empty).
func (f *FIFO[T]) WaitReadAvailable() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.n == 0 && !f.unblockConsumer {
		f.empty.Wait()
	}
	return f.n
}

// UnblockProducer enables (or disables) the mechanism that keeps Push from
// blocking. While enabled the producer never blocks again until this is
// called with unblock=false, or Clear is called.
func (f *FIFO[T]) UnblockProducer(unblock bool) {
	f.mu.Lock()
	f.unblockProducer = unblock
	f.mu.Unlock()
	f.full.Broadcast()
}

// UnblockConsumer enables (or disables) the mechanism that keeps
// WaitReadAvailable from blocking. Same semantics as UnblockProducer.
func (f *FIFO[T]) UnblockConsumer(unblock bool) {
	f.mu.Lock()
	f.unblockConsumer = unblock
	f.mu.Unlock()
	f.empty.Broadcast()
}

// Clear empties the FIFO and disables both unblock mechanisms. Not safe to
// call concurrently with Push/Pop.
func (f *FIFO[T]) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	for i := range f.ring {
		f.ring[i] = zero
	}
	f.head, f.n = 0, 0
	f.unblockProducer = false
	f.unblockConsumer = false
}
