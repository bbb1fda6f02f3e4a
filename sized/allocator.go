package sized

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"golang.org/x/exp/slog"
)

// Allocator reserves contiguous runs of T on behalf of containers. Its behavior is fixed at creation
// by CreateOptions: pooled allocators carve requests out of a single region sized in batches and
// release it only in Destroy, while per-allocation allocators reserve and release every request
// independently.
//
// Allocator is not safe for concurrent use. Regions returned from Allocate must only be passed back
// to the Allocator that produced them, and only once; doing otherwise is a programming error that
// the Allocator does not detect.
type Allocator[T any] struct {
	logger       *slog.Logger
	options      CreateOptions
	config       config
	elementSize  int
	elementLimit int

	strategy allocationStrategy[T]
}

// Allocate reserves count contiguous elements and returns them. The returned slice has both length
// and capacity equal to count, and remains valid until it is passed to Deallocate or the allocator
// is destroyed.
//
// Returns memutils.ErrCannotExpand if a fixed pool cannot hold the request, and
// memutils.ErrOutOfMemory if the reservation could not be made.
func (a *Allocator[T]) Allocate(count int) ([]T, error) {
	if count < 0 {
		return nil, errors.Newf("attempted to allocate a negative number of elements: %d", count)
	}
	if count > a.elementLimit {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory, "requested %d elements, but at most %d can be reserved", count, a.elementLimit)
	}

	region, err := a.strategy.Allocate(count)
	if err != nil {
		return nil, err
	}

	memutils.DebugValidate(a.strategy)
	return region, nil
}

// Deallocate informs the allocator that region, which was returned from a call to Allocate(count),
// is no longer in use. Pooled allocators ignore this: their memory is reclaimed in Destroy.
func (a *Allocator[T]) Deallocate(region []T, count int) {
	a.strategy.Deallocate(region, count)
	memutils.DebugValidate(a.strategy)
}

// ConstructElement initializes the element at slot with value. slot must point into a region
// returned from Allocate.
func (a *Allocator[T]) ConstructElement(slot *T, value T) {
	*slot = value
}

// DestroyElement finalizes the element at slot, dropping any references it holds. The memory
// remains reserved.
func (a *Allocator[T]) DestroyElement(slot *T) {
	var zero T
	*slot = zero
}

// MaxSize returns the largest request this allocator advertises. Fixed pools advertise their batch
// size; every other configuration advertises the largest request that could ever be reserved.
func (a *Allocator[T]) MaxSize() int {
	if a.config.free == FreePooled && a.config.expand == ExpandFixed {
		return a.config.batchSize
	}

	return a.elementLimit
}

// Equal returns true if other is bound to the same options as this allocator. Memory reserved by
// equal allocators is still managed independently.
func (a *Allocator[T]) Equal(other *Allocator[T]) bool {
	if a == nil || other == nil {
		return a == other
	}

	return a.config == other.config
}

func (a *Allocator[T]) ElementSize() int          { return a.elementSize }
func (a *Allocator[T]) BatchSize() int            { return a.config.batchSize }
func (a *Allocator[T]) ExpandPolicy() ExpandPolicy { return a.config.expand }
func (a *Allocator[T]) FreePolicy() FreePolicy     { return a.config.free }
func (a *Allocator[T]) Options() CreateOptions     { return a.options }

// ReservedElements returns the number of elements this allocator is currently holding in reserve,
// whether or not they have been handed out
func (a *Allocator[T]) ReservedElements() int {
	return a.strategy.ReservedElements()
}

// AddStatistics sums this allocator's statistics into the provided memutils.Statistics object
func (a *Allocator[T]) AddStatistics(stats *memutils.Statistics) {
	a.strategy.AddStatistics(stats)
}

// AddDetailedStatistics sums this allocator's statistics into the provided
// memutils.DetailedStatistics object
func (a *Allocator[T]) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.strategy.AddDetailedStatistics(stats)
}

// Validate performs internal consistency checks on the allocator's bookkeeping
func (a *Allocator[T]) Validate() error {
	return a.strategy.Validate()
}

// Destroy releases all memory held by the allocator. Regions previously returned from Allocate
// must not be used afterward. The allocator may be used again after Destroy, and will begin
// reserving memory as though it were new.
//
// Per-allocation allocators return an error if any reservations were never deallocated; the
// reservations are released regardless.
func (a *Allocator[T]) Destroy() error {
	return a.strategy.Destroy()
}

// BuildStatsString returns a json document describing the allocator's configuration and the memory
// it currently holds. If detailed is true, every region and suballocation is listed.
func (a *Allocator[T]) BuildStatsString(detailed bool) string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	configObj := obj.Name("Config").Object()
	configObj.Name("ElementSize").Int(a.elementSize)
	configObj.Name("BatchSize").Int(a.config.batchSize)
	configObj.Name("Expand").String(a.config.expand.String())
	configObj.Name("Free").String(a.config.free.String())
	configObj.Name("MaxElements").Int(a.config.maxElements)
	configObj.End()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.strategy.AddDetailedStatistics(&stats)

	totalObj := obj.Name("Total").Object()
	printDetailedStatistics(&totalObj, &stats)
	totalObj.End()

	if detailed {
		mapObj := obj.Name("DetailedMap").Object()
		a.strategy.PrintDetailedMap(&mapObj)
		mapObj.End()
	}

	obj.End()
	return string(writer.Bytes())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockElements").Int(stats.BlockElements)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationElements").Int(stats.AllocationElements)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)

	if stats.AllocationCount > 1 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}
	if stats.UnusedRangeCount > 1 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}
}
