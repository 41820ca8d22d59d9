// Package circbuf provides a fixed-capacity, single-producer/single-consumer
// byte queue over caller-supplied storage. It never allocates after Create.
//
// The producer only moves tail, the consumer only moves head. The shared
// occupancy count is atomic and publishes element writes to the other side,
// so one goroutine may Enqueue while another Dequeues without a lock.
package circbuf

import "sync/atomic"

// Buffer is a circular byte queue. The zero value has no storage; use Create.
type Buffer struct {
	buf   []byte
	size  uint32
	head  atomic.Uint32 // consumer index, [0, size)
	tail  atomic.Uint32 // producer index, [0, size)
	count atomic.Uint32 // occupied slots, [0, size]
}

// Create binds a buffer to storage[:capacity] and resets it to empty.
// storage must hold at least capacity bytes; this is not checked.
func Create(storage []byte, capacity int) *Buffer {
	b := &Buffer{buf: storage[:capacity], size: uint32(capacity)}
	return b
}

// New allocates its own storage of the given capacity.
func New(capacity int) *Buffer {
	return Create(make([]byte, capacity), capacity)
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return int(b.size) }

// Len returns the number of queued bytes.
func (b *Buffer) Len() int { return int(b.count.Load()) }

// Free returns the number of bytes that can be enqueued before the buffer is full.
func (b *Buffer) Free() int { return int(b.size - b.count.Load()) }

// Producer side

// Enqueue appends c. It returns false and leaves the buffer unchanged when full.
func (b *Buffer) Enqueue(c byte) bool {
	if b.size == 0 || b.count.Load() == b.size {
		return false
	}
	t := b.tail.Load()
	b.buf[t] = c // 1) write data
	b.tail.Store(b.next(t))
	b.count.Add(1) // 2) publish
	return true
}

// Consumer side

// Dequeue removes and returns the oldest byte. It returns (0, false) when empty.
func (b *Buffer) Dequeue() (byte, bool) {
	if b.count.Load() == 0 {
		return 0, false
	}
	h := b.head.Load()
	c := b.buf[h] // 1) read current element
	b.head.Store(b.next(h))
	b.count.Add(^uint32(0)) // 2) publish consumption
	return c, true
}

// PeekLast returns the most recently enqueued byte without removing it.
// It returns (0, false) when empty.
func (b *Buffer) PeekLast() (byte, bool) {
	if b.count.Load() == 0 {
		return 0, false
	}
	t := b.tail.Load()
	if t == 0 {
		t = b.size
	}
	return b.buf[t-1], true
}

// Reset empties the buffer. It must not race with Enqueue or Dequeue.
func (b *Buffer) Reset() {
	b.head.Store(0)
	b.tail.Store(0)
	b.count.Store(0)
}

func (b *Buffer) next(i uint32) uint32 {
	i++
	if i == b.size {
		return 0
	}
	return i
}
