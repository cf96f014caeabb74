// Package framebuffer provides the single-slot hand-off cell between a capture
// goroutine and the session loop.
//
// Semantics:
//   - Latest-wins: Publish overwrites whatever is in the slot, no queuing
//   - Non-blocking: neither Publish nor Take ever waits on the other side
//   - Copy-on-read: Take returns a private copy, the producer may reuse its
//     own buffers immediately after Publish
//
// Frames overwritten before being taken are counted as drops. Drops are
// expected when the producer is faster than the consumer.
package framebuffer

import (
	"sync"
	"sync/atomic"

	"github.com/e7canasta/camsens/internal/types"
)

// Buffer holds at most one frame plus a seen flag.
// Safe for one producer and one consumer running concurrently.
type Buffer struct {
	mu    sync.Mutex
	frame types.Frame
	has   bool
	seen  bool

	published uint64 // atomic
	drops     uint64 // atomic
}

// New returns an empty buffer
func New() *Buffer {
	return &Buffer{}
}

// Publish stores a copy of frame, replacing the previous one.
//
// The copy is made before taking the lock so the critical section is only a
// slice header swap.
func (b *Buffer) Publish(frame types.Frame) {
	f := frame.Clone()

	b.mu.Lock()
	if b.has && !b.seen {
		atomic.AddUint64(&b.drops, 1)
	}
	b.frame = f
	b.has = true
	b.seen = false
	b.mu.Unlock()

	atomic.AddUint64(&b.published, 1)
}

// Take returns a copy of the latest frame.
//
// isNew is true only on the first Take after a Publish. ok is false while
// nothing has been published yet.
func (b *Buffer) Take() (frame types.Frame, isNew bool, ok bool) {
	b.mu.Lock()
	if !b.has {
		b.mu.Unlock()
		return types.Frame{}, false, false
	}
	frame = b.frame.Clone()
	isNew = !b.seen
	b.seen = true
	b.mu.Unlock()

	return frame, isNew, true
}

// Stats returns the number of publishes and the number of frames overwritten
// before they were taken
func (b *Buffer) Stats() (published, drops uint64) {
	return atomic.LoadUint64(&b.published), atomic.LoadUint64(&b.drops)
}
