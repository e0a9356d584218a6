// Package buffer implements an owned byte region with zero-copy child views,
// modeled on the reference-counted Buffer/BufferBase design used by the
// ipcaster core (see original_source/src/ipcaster/base/Buffer.hpp): a root
// buffer owns its backing array, and children hold a range into that array
// plus a strong reference that keeps the root alive for as long as any child
// is reachable.
package buffer

// Buffer is an owned byte region, or a child view into a parent Buffer's
// region. A child cannot outlive the byte slice it shares with its root:
// Go's garbage collector keeps the root's backing array alive as long as any
// child slice references it, which is the same guarantee the original
// shared_ptr-based design provides explicitly.
type Buffer struct {
	data   []byte
	size   int
	parent *Buffer
}

// New allocates an owning Buffer with the given capacity and zero size.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// NewFilled allocates an owning Buffer whose contents are copied from b.
func NewFilled(b []byte) *Buffer {
	buf := New(len(b))
	buf.size = copy(buf.data, b)
	return buf
}

// Data returns the full allocated backing slice (capacity, not just Size()).
func (b *Buffer) Data() []byte { return b.data }

// Payload returns the valid portion of the buffer, data[:Size()].
func (b *Buffer) Payload() []byte { return b.data[:b.size] }

// Size returns the size of the valid payload currently held in the buffer.
func (b *Buffer) Size() int { return b.size }

// SetSize sets the size of the valid payload. n must not exceed Capacity().
func (b *Buffer) SetSize(n int) { b.size = n }

// Capacity returns the size of the underlying allocation.
func (b *Buffer) Capacity() int { return cap(b.data) }

// Root returns the buffer that owns the backing allocation: itself if it has
// no parent, or its parent's Root() otherwise.
func (b *Buffer) Root() *Buffer {
	if b.parent == nil {
		return b
	}
	return b.parent.Root()
}

// Child creates a zero-copy sub-view of this buffer spanning
// data[offset:offset+size]. The child holds a reference to this buffer (via
// its Root), so the backing array remains valid as long as the child is
// reachable, independent of the parent's own lifetime.
func (b *Buffer) Child(offset, size int) *Buffer {
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		panic("buffer: child range out of bounds")
	}
	return &Buffer{
		data:   b.data[offset : offset+size : offset+size],
		size:   size,
		parent: b,
	}
}
