package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/sizedalloc/memutils"
)

// RegionMetadata is a BlockMetadata implementation for a bump region: suballocations are always
// taken from the end of the used portion and are never returned individually. Space is reclaimed
// only by Clear or by re-initializing the region.
//
// The region may be extended in place, in which case the free tail simply grows.
type RegionMetadata struct {
	BlockMetadataBase

	used           int
	suballocations []Suballocation
}

var _ BlockMetadata = &RegionMetadata{}

// NewRegionMetadata creates a new, zero-capacity RegionMetadata. Init must be called before
// allocations are made against it.
func NewRegionMetadata() *RegionMetadata {
	return &RegionMetadata{
		suballocations: []Suballocation{},
	}
}

// Init prepares this structure for allocations and sizes the region in elements
func (m *RegionMetadata) Init(capacity int) {
	m.BlockMetadataBase.Init(capacity)
	m.Clear()
}

// Used returns the number of elements already handed out from the region
func (m *RegionMetadata) Used() int { return m.used }

// SumFreeSize returns the number of elements in the region that have not been handed out
func (m *RegionMetadata) SumFreeSize() int { return m.Capacity() - m.used }

// AllocationCount returns the number of suballocations made since the region was last cleared
func (m *RegionMetadata) AllocationCount() int { return len(m.suballocations) }

// IsEmpty will return true if this region has no live suballocations
func (m *RegionMetadata) IsEmpty() bool { return len(m.suballocations) == 0 }

// CanFit returns true if capacity - used >= count
func (m *RegionMetadata) CanFit(count int) bool {
	return m.SumFreeSize() >= count
}

// Alloc commits a suballocation of count elements at the end of the used portion of the region
// and returns its offset
func (m *RegionMetadata) Alloc(count int) (int, error) {
	if count < 0 {
		return 0, errors.Errorf("attempted to allocate a negative number of elements: %d", count)
	}
	if !m.CanFit(count) {
		return 0, errors.Errorf("attempted to allocate %d elements from a region with only %d free", count, m.SumFreeSize())
	}

	offset := m.used
	m.suballocations = append(m.suballocations, Suballocation{Offset: offset, Size: count})
	m.used += count

	return offset, nil
}

// Extend grows the region by count elements
func (m *RegionMetadata) Extend(count int) error {
	if count <= 0 {
		return errors.Errorf("regions may only be extended by a positive number of elements, but received %d", count)
	}

	m.BlockMetadataBase.Init(m.Capacity() + count)
	return nil
}

// Clear instantly frees all suballocations while retaining the region's capacity
func (m *RegionMetadata) Clear() {
	m.used = 0
	m.suballocations = m.suballocations[:0]
}

// Validate performs internal consistency checks on the metadata
func (m *RegionMetadata) Validate() error {
	if m.used > m.Capacity() {
		return errors.Errorf("region has %d elements in use but a capacity of only %d", m.used, m.Capacity())
	}

	offset := 0
	for index, suballoc := range m.suballocations {
		if suballoc.Offset != offset {
			return errors.Errorf("suballocation at index %d has offset %d- expected offset %d", index, suballoc.Offset, offset)
		}
		if suballoc.Size < 0 {
			return errors.Errorf("suballocation at index %d has negative size %d", index, suballoc.Size)
		}
		offset = suballoc.End()
	}

	if offset != m.used {
		return errors.Errorf("suballocations cover %d elements, but metadata indicates %d are in use", offset, m.used)
	}

	return nil
}

// VisitAllRegions will call the provided callback once for each suballocation and once more for
// the free tail of the region, if it has one
func (m *RegionMetadata) VisitAllRegions(handleRegion func(offset int, size int, free bool) error) error {
	for _, suballoc := range m.suballocations {
		err := handleRegion(suballoc.Offset, suballoc.Size, false)
		if err != nil {
			return err
		}
	}

	if m.used < m.Capacity() {
		return handleRegion(m.used, m.Capacity()-m.used, true)
	}

	return nil
}

// AddDetailedStatistics sums this region's statistics into the statistics currently present
// in the provided memutils.DetailedStatistics object.
func (m *RegionMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.Statistics.BlockCount++
	stats.Statistics.BlockElements += m.Capacity()

	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}

		return nil
	})
}

// AddStatistics sums this region's statistics into the statistics currently present in the
// provided memutils.Statistics object.
func (m *RegionMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.BlockElements += m.Capacity()
	stats.AllocationCount += len(m.suballocations)
	stats.AllocationElements += m.used
}

// BlockJsonData populates a json object with information about this region
func (m *RegionMetadata) BlockJsonData(json *jwriter.ObjectState) {
	unusedRangeCount := 0
	if m.used < m.Capacity() {
		unusedRangeCount = 1
	}

	m.WriteBlockJson(json, m.SumFreeSize(), len(m.suballocations), unusedRangeCount)
}
