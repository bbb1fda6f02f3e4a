package sized

import (
	"context"
	"slices"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"golang.org/x/exp/slog"
)

// perAllocationStrategy reserves exactly the requested number of elements for every request and
// releases them as soon as they are deallocated. The only state it keeps is a table of live
// reservations, keyed by the address of their first element, so that statistics and teardown can
// account for them.
//
// Every region of a zero-size element type shares one address, so those reservations are counted
// by size instead of by address.
type perAllocationStrategy[T any] struct {
	logger    *slog.Logger
	limit     int
	zeroSized bool

	reserved         int
	reservations     *swiss.Map[*T, int]
	zeroSizedByCount *swiss.Map[int, int]
}

var _ allocationStrategy[int] = &perAllocationStrategy[int]{}

func newPerAllocationStrategy[T any](logger *slog.Logger, limit int) *perAllocationStrategy[T] {
	var zero T
	return &perAllocationStrategy[T]{
		logger:           logger,
		limit:            limit,
		zeroSized:        unsafe.Sizeof(zero) == 0,
		reservations:     swiss.NewMap[*T, int](42),
		zeroSizedByCount: swiss.NewMap[int, int](8),
	}
}

func (s *perAllocationStrategy[T]) Allocate(count int) ([]T, error) {
	if count == 0 {
		return []T{}, nil
	}

	if count > s.limit-s.reserved {
		return nil, errors.Wrapf(memutils.ErrOutOfMemory,
			"requested %d elements with %d already reserved, but the limit is %d elements",
			count, s.reserved, s.limit)
	}

	region, err := reserveElements[T](count)
	if err != nil {
		return nil, err
	}

	if s.zeroSized {
		outstanding, _ := s.zeroSizedByCount.Get(count)
		s.zeroSizedByCount.Put(count, outstanding+1)
	} else {
		s.reservations.Put(unsafe.SliceData(region), count)
	}
	s.reserved += count

	return region, nil
}

func (s *perAllocationStrategy[T]) Deallocate(region []T, count int) {
	if len(region) == 0 {
		return
	}

	if s.zeroSized {
		s.releaseZeroSized(len(region))
		return
	}

	key := unsafe.SliceData(region)
	size, ok := s.reservations.Get(key)
	if ok {
		s.reservations.Delete(key)
		s.reserved -= size
	}

	clear(region)
}

func (s *perAllocationStrategy[T]) releaseZeroSized(size int) {
	outstanding, ok := s.zeroSizedByCount.Get(size)
	if !ok {
		return
	}

	if outstanding == 1 {
		s.zeroSizedByCount.Delete(size)
	} else {
		s.zeroSizedByCount.Put(size, outstanding-1)
	}
	s.reserved -= size
}

// visitReservations calls visit once for the size of every live reservation
func (s *perAllocationStrategy[T]) visitReservations(visit func(size int)) {
	s.reservations.Iter(func(_ *T, size int) bool {
		visit(size)
		return false
	})
	s.zeroSizedByCount.Iter(func(size int, outstanding int) bool {
		for i := 0; i < outstanding; i++ {
			visit(size)
		}
		return false
	})
}

func (s *perAllocationStrategy[T]) reservationCount() int {
	count := s.reservations.Count()
	s.zeroSizedByCount.Iter(func(_ int, outstanding int) bool {
		count += outstanding
		return false
	})

	return count
}

func (s *perAllocationStrategy[T]) ReservedElements() int {
	return s.reserved
}

func (s *perAllocationStrategy[T]) AddStatistics(stats *memutils.Statistics) {
	s.visitReservations(func(size int) {
		stats.BlockCount++
		stats.BlockElements += size
		stats.AllocationCount++
		stats.AllocationElements += size
	})
}

func (s *perAllocationStrategy[T]) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	s.visitReservations(func(size int) {
		stats.BlockCount++
		stats.BlockElements += size
		stats.AddAllocation(size)
	})
}

func (s *perAllocationStrategy[T]) reservationSizes() []int {
	sizes := make([]int, 0, s.reservationCount())
	s.visitReservations(func(size int) {
		sizes = append(sizes, size)
	})
	slices.Sort(sizes)

	return sizes
}

func (s *perAllocationStrategy[T]) PrintDetailedMap(json *jwriter.ObjectState) {
	reservations := json.Name("Reservations").Array()
	for _, size := range s.reservationSizes() {
		reservations.Int(size)
	}
	reservations.End()
}

func (s *perAllocationStrategy[T]) Validate() error {
	if s.zeroSized && s.reservations.Count() > 0 {
		return errors.Newf("zero-size elements have %d reservations tracked by address", s.reservations.Count())
	}

	total := 0
	var err error
	s.visitReservations(func(size int) {
		if size <= 0 && err == nil {
			err = errors.Newf("reservation table contains an entry of invalid size %d", size)
		}
		total += size
	})
	if err != nil {
		return err
	}

	if total != s.reserved {
		return errors.Newf("reservation table accounts for %d elements, but %d are recorded as reserved", total, s.reserved)
	}
	if s.reserved > s.limit {
		return errors.Newf("%d elements are reserved, which exceeds the limit of %d", s.reserved, s.limit)
	}

	return nil
}

func (s *perAllocationStrategy[T]) Destroy() error {
	unreleased := s.reservationCount()
	sizes := s.reservationSizes()

	s.reservations = swiss.NewMap[*T, int](42)
	s.zeroSizedByCount = swiss.NewMap[int, int](8)
	s.reserved = 0

	if unreleased == 0 {
		return nil
	}

	for _, size := range sizes {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] reservation was never deallocated",
			slog.Int("size", size),
		)
	}

	return errors.Newf("%d reservations were not deallocated before the allocator was destroyed", unreleased)
}
