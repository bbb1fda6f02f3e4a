package sized

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"github.com/vkngwrapper/sizedalloc/memutils/metadata"
	"golang.org/x/exp/slog"
)

// pooledStrategy serves every request from a single region. The region is created by the first
// request, sized to memutils.BatchCapacity of that request. Growable pools extend the region by
// memutils.BatchCapacity of any request that does not fit, moving the used prefix into the new
// backing; fixed pools refuse such requests.
//
// The copy is a snapshot taken at extension time. Regions handed out earlier keep referring to the
// previous backing, and writes through them are not reflected in the new one.
type pooledStrategy[T any] struct {
	logger    *slog.Logger
	batchSize int
	expand    ExpandPolicy
	limit     int

	memory   []T
	metadata *metadata.RegionMetadata
}

var _ allocationStrategy[int] = &pooledStrategy[int]{}

func newPooledStrategy[T any](logger *slog.Logger, batchSize int, expand ExpandPolicy, limit int) *pooledStrategy[T] {
	return &pooledStrategy[T]{
		logger:    logger,
		batchSize: batchSize,
		expand:    expand,
		limit:     limit,
		metadata:  metadata.NewRegionMetadata(),
	}
}

func (s *pooledStrategy[T]) hasRegion() bool {
	return s.memory != nil
}

func (s *pooledStrategy[T]) Allocate(count int) ([]T, error) {
	if !s.hasRegion() {
		err := s.createRegion(count)
		if err != nil {
			return nil, err
		}
	} else if !s.metadata.CanFit(count) {
		if s.expand == ExpandFixed {
			return nil, errors.Wrapf(memutils.ErrCannotExpand,
				"requested %d elements, but the pool has only %d of %d elements free",
				count, s.metadata.SumFreeSize(), s.metadata.Capacity())
		}

		err := s.extendRegion(count)
		if err != nil {
			return nil, err
		}
	}

	offset, err := s.metadata.Alloc(count)
	if err != nil {
		return nil, err
	}

	end := offset + count
	return s.memory[offset:end:end], nil
}

// growthFor returns the number of elements the region must grow by to serve count, or false if
// that growth would exceed the element limit
func (s *pooledStrategy[T]) growthFor(count int) (int, bool) {
	if count/s.batchSize >= s.limit/s.batchSize {
		return 0, false
	}

	growth := memutils.BatchCapacity(count, s.batchSize)
	if growth > s.limit-s.ReservedElements() {
		return 0, false
	}

	return growth, true
}

func (s *pooledStrategy[T]) createRegion(count int) error {
	capacity, ok := s.growthFor(count)
	if !ok {
		return errors.Wrapf(memutils.ErrOutOfMemory, "a region for %d elements would exceed the limit of %d elements", count, s.limit)
	}

	memory, err := reserveElements[T](capacity)
	if err != nil {
		return err
	}

	s.logger.Debug("Allocator::createRegion",
		slog.Int("Requested", count),
		slog.Int("Capacity", capacity),
	)

	s.memory = memory
	s.metadata.Init(capacity)
	return nil
}

func (s *pooledStrategy[T]) extendRegion(count int) error {
	growth, ok := s.growthFor(count)
	if !ok {
		return errors.Wrapf(memutils.ErrOutOfMemory, "extending the region for %d elements would exceed the limit of %d elements", count, s.limit)
	}

	oldCapacity := s.metadata.Capacity()
	memory, err := reserveElements[T](oldCapacity + growth)
	if err != nil {
		return err
	}
	copy(memory, s.memory[:s.metadata.Used()])

	err = s.metadata.Extend(growth)
	if err != nil {
		return err
	}

	s.logger.Debug("Allocator::extendRegion",
		slog.Int("Requested", count),
		slog.Int("OldCapacity", oldCapacity),
		slog.Int("NewCapacity", s.metadata.Capacity()),
	)

	s.memory = memory
	return nil
}

func (s *pooledStrategy[T]) Deallocate(region []T, count int) {}

func (s *pooledStrategy[T]) ReservedElements() int {
	if !s.hasRegion() {
		return 0
	}

	return s.metadata.Capacity()
}

func (s *pooledStrategy[T]) AddStatistics(stats *memutils.Statistics) {
	if s.hasRegion() {
		s.metadata.AddStatistics(stats)
	}
}

func (s *pooledStrategy[T]) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	if s.hasRegion() {
		s.metadata.AddDetailedStatistics(stats)
	}
}

func (s *pooledStrategy[T]) PrintDetailedMap(json *jwriter.ObjectState) {
	if !s.hasRegion() {
		return
	}

	regionObj := json.Name("Region").Object()
	s.metadata.BlockJsonData(&regionObj)

	suballocations := regionObj.Name("Suballocations").Array()
	_ = s.metadata.VisitAllRegions(func(offset int, size int, free bool) error {
		obj := suballocations.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Size").Int(size)
		obj.Name("Free").Bool(free)
		return nil
	})
	suballocations.End()

	regionObj.End()
}

func (s *pooledStrategy[T]) Validate() error {
	if !s.hasRegion() {
		if s.metadata.Capacity() != 0 {
			return errors.Newf("pool has no region but its metadata has a capacity of %d", s.metadata.Capacity())
		}
		return nil
	}

	if len(s.memory) != s.metadata.Capacity() {
		return errors.Newf("pool region holds %d elements but its metadata has a capacity of %d", len(s.memory), s.metadata.Capacity())
	}

	return s.metadata.Validate()
}

func (s *pooledStrategy[T]) Destroy() error {
	if s.hasRegion() {
		s.logger.Debug("Allocator::Destroy",
			slog.Int("Capacity", s.metadata.Capacity()),
			slog.Int("Used", s.metadata.Used()),
			slog.Int("Allocations", s.metadata.AllocationCount()),
		)
	}

	s.memory = nil
	s.metadata.Init(0)
	return nil
}
