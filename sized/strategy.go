package sized

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sizedalloc/memutils"
)

// allocationStrategy is the memory discipline behind an Allocator, selected by CreateOptions.Free
type allocationStrategy[T any] interface {
	memutils.Validatable

	Allocate(count int) ([]T, error)
	Deallocate(region []T, count int)
	ReservedElements() int

	AddStatistics(stats *memutils.Statistics)
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	PrintDetailedMap(json *jwriter.ObjectState)

	Destroy() error
}

// reserveElements makes a fresh reservation of count elements, converting a refusal from the
// runtime into memutils.ErrOutOfMemory
func reserveElements[T any](count int) (region []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			region = nil
			err = errors.Wrapf(memutils.ErrOutOfMemory, "failed to reserve %d elements: %v", count, r)
		}
	}()

	return make([]T, count), nil
}
