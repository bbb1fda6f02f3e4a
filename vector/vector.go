// Package vector provides BlockVector, a growable sequence that obtains its storage from a
// caller-provided allocator instead of the Go runtime.
package vector

import (
	"iter"

	"github.com/cockroachdb/errors"
)

//go:generate mockgen -source vector.go -destination ./mocks/allocator.go -package mock_vector

// InitialCapacity is the number of elements a BlockVector reserves when it is created
const InitialCapacity int = 4

// Allocator is the allocation contract BlockVector depends on. *sized.Allocator satisfies it.
//
// If the Allocator also has a `Destroy() error` method, BlockVector.Destroy will call it after
// releasing the vector's storage.
type Allocator[T any] interface {
	Allocate(count int) ([]T, error)
	Deallocate(region []T, count int)
}

type destroyer interface {
	Destroy() error
}

// BlockVector is an append-only sequence of T. It owns its Allocator: the Allocator must not be
// shared with any other container, and BlockVector.Destroy tears it down.
//
// Storage is reserved from the Allocator at creation and replaced wholesale whenever a PushBack
// finds the vector full. BlockVector is not safe for concurrent use.
type BlockVector[T any] struct {
	allocator Allocator[T]
	storage   []T
	size      int
	capacity  int
}

// New creates a BlockVector that reserves its storage from allocator, reserving InitialCapacity
// elements immediately
func New[T any](allocator Allocator[T]) (*BlockVector[T], error) {
	storage, err := allocator.Allocate(InitialCapacity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reserve initial storage of %d elements", InitialCapacity)
	}

	return &BlockVector[T]{
		allocator: allocator,
		storage:   storage,
		capacity:  InitialCapacity,
	}, nil
}

// Size returns the number of elements in the vector
func (v *BlockVector[T]) Size() int { return v.size }

// Capacity returns the number of elements the vector can hold before it must grow
func (v *BlockVector[T]) Capacity() int { return v.capacity }

// IsEmpty returns true if the vector holds no elements
func (v *BlockVector[T]) IsEmpty() bool { return v.size == 0 }

// PushBack appends value to the end of the vector, growing the vector's storage first if it is
// full. If the allocator cannot provide the larger storage, the error is returned and the vector is
// left unchanged.
func (v *BlockVector[T]) PushBack(value T) error {
	if v.size == v.capacity {
		err := v.grow()
		if err != nil {
			return err
		}
	}

	v.storage[v.size] = value
	v.size++
	return nil
}

// nextCapacity returns 1.5x the current capacity, and never less than one more than it. A vector
// without storage starts over at InitialCapacity.
func (v *BlockVector[T]) nextCapacity() int {
	if v.capacity == 0 {
		return InitialCapacity
	}

	newCapacity := v.capacity * 3 / 2
	if newCapacity <= v.capacity {
		newCapacity = v.capacity + 1
	}

	return newCapacity
}

func (v *BlockVector[T]) grow() error {
	newCapacity := v.nextCapacity()

	storage, err := v.allocator.Allocate(newCapacity)
	if err != nil {
		return errors.Wrapf(err, "failed to grow vector from %d to %d elements", v.capacity, newCapacity)
	}
	copy(storage, v.storage[:v.size])

	if v.storage != nil {
		v.allocator.Deallocate(v.storage, v.capacity)
	}

	v.storage = storage
	v.capacity = newCapacity
	return nil
}

// At returns a pointer to the element at index. It panics if index is out of range. The pointer is
// invalidated by the next growth of the vector.
func (v *BlockVector[T]) At(index int) *T {
	if index < 0 || index >= v.size {
		panic(errors.Newf("index %d out of range for vector of size %d", index, v.size))
	}

	return &v.storage[index]
}

// All returns an iterator over the index and a pointer to each element of the vector, in order.
// The iterator may be ranged over any number of times, but must not be used after the vector grows.
func (v *BlockVector[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		storage := v.storage[:v.size]
		for index := range storage {
			if !yield(index, &storage[index]) {
				return
			}
		}
	}
}

// Values returns an iterator over the elements of the vector, in order
func (v *BlockVector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.All() {
			if !yield(*value) {
				return
			}
		}
	}
}

// Destroy releases the vector's storage back to its allocator and, if the allocator supports it,
// destroys the allocator. The vector is empty afterward and may be used again: the next PushBack
// reserves InitialCapacity elements.
func (v *BlockVector[T]) Destroy() error {
	if v.storage != nil {
		v.allocator.Deallocate(v.storage, v.capacity)
	}

	v.storage = nil
	v.size = 0
	v.capacity = 0

	d, ok := v.allocator.(destroyer)
	if !ok {
		return nil
	}

	return d.Destroy()
}
