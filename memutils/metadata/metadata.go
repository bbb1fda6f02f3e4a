package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sizedalloc/memutils"
)

// BlockMetadata represents the bookkeeping for a single contiguous region of elements. It tracks
// which part of the region has been handed out to consumers and how much remains, and is able to
// report on itself for statistics and diagnostic purposes. It does not own the memory it describes.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It sizes the region, in elements, via the
	// capacity parameter, and discards any previous suballocations.
	Init(capacity int)
	// Capacity retrieves the number of elements the region currently spans
	Capacity() int

	// Validate performs internal consistency checks on the metadata. When the implementation is
	// functioning correctly, it should not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the region
	AllocationCount() int
	// SumFreeSize returns the number of elements in the region that have not been handed out
	SumFreeSize() int
	// CanFit returns true if a request for count elements can be served from the region without
	// extending it
	CanFit(count int) bool
	// IsEmpty will return true if this region has no live suballocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each suballocation and for the
	// free tail of the region, in offset order.
	VisitAllRegions(handleRegion func(offset int, size int, free bool) error) error

	// AddDetailedStatistics sums this region's statistics into the statistics currently present
	// in the provided memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this region's statistics into the statistics currently present in the
	// provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all suballocations while retaining the region's capacity
	Clear()
	// BlockJsonData populates a json object with information about this region
	BlockJsonData(json *jwriter.ObjectState)

	// Alloc commits a suballocation of count elements at the end of the used portion of the region
	// and returns its offset. The implementation must return an error if the region cannot hold
	// the request.
	Alloc(count int) (int, error)
	// Extend grows the region by the provided number of elements. Existing suballocations keep
	// their offsets.
	Extend(count int) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	capacity int
}

// Init sizes the region in elements based on the parameter capacity.
func (m *BlockMetadataBase) Init(capacity int) {
	m.capacity = capacity
}

// Capacity returns the size of the region in elements
func (m *BlockMetadataBase) Capacity() int { return m.capacity }

// WriteBlockJson populates a json object with the shared summary of a region
func (m *BlockMetadataBase) WriteBlockJson(json *jwriter.ObjectState, unusedElements, allocationCount, unusedRangeCount int) {
	json.Name("TotalElements").Int(m.Capacity())
	json.Name("UnusedElements").Int(unusedElements)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
