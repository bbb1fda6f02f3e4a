// Package arrowmem lets Apache Arrow builders and buffers draw their memory from a sized.Allocator.
package arrowmem

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vkngwrapper/sizedalloc/sized"
)

// Allocator implements arrow's memory.Allocator on top of a byte sized.Allocator. Arrow's
// allocator interface has no error returns, so allocation failures (memutils.ErrCannotExpand or
// memutils.ErrOutOfMemory) are raised as panics carrying the error, the same way arrow's own
// allocators behave when memory cannot be obtained.
//
// Like the underlying allocator, Allocator is not safe for concurrent use.
type Allocator struct {
	bytes *sized.Allocator[byte]
}

var _ memory.Allocator = &Allocator{}

// New creates an Allocator backed by a fresh byte allocator bound to options
func New(options sized.CreateOptions) (*Allocator, error) {
	bytes, err := sized.New[byte](options)
	if err != nil {
		return nil, err
	}

	return Wrap(bytes), nil
}

// Wrap creates an Allocator that draws from an existing byte allocator. The Allocator takes
// ownership of it.
func Wrap(bytes *sized.Allocator[byte]) *Allocator {
	return &Allocator{bytes: bytes}
}

// Allocate reserves size bytes
func (a *Allocator) Allocate(size int) []byte {
	buf, err := a.bytes.Allocate(size)
	if err != nil {
		panic(err)
	}

	return buf
}

// Reallocate returns a buffer of size bytes holding the contents of b. If b is already large
// enough, it is resliced in place; otherwise a new buffer is reserved and b is freed.
func (a *Allocator) Reallocate(size int, b []byte) []byte {
	if size <= len(b) {
		return b[:size]
	}

	buf := a.Allocate(size)
	copy(buf, b)
	a.Free(b)

	return buf
}

// Free returns b to the underlying allocator
func (a *Allocator) Free(b []byte) {
	a.bytes.Deallocate(b, len(b))
}

// ReservedBytes returns the number of bytes the underlying allocator is holding in reserve
func (a *Allocator) ReservedBytes() int {
	return a.bytes.ReservedElements()
}

// Sized returns the underlying byte allocator
func (a *Allocator) Sized() *sized.Allocator[byte] {
	return a.bytes
}

// Release destroys the underlying allocator. Buffers obtained from this Allocator must not be used
// afterward.
func (a *Allocator) Release() error {
	return a.bytes.Destroy()
}
