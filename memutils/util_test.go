package memutils_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sizedalloc/memutils"
)

func TestBatchCapacityAddsExtraBatch(t *testing.T) {
	require.Equal(t, 5, memutils.BatchCapacity(0, 5))
	require.Equal(t, 5, memutils.BatchCapacity(1, 5))
	require.Equal(t, 5, memutils.BatchCapacity(4, 5))
	// Exact multiples still receive one more batch
	require.Equal(t, 10, memutils.BatchCapacity(5, 5))
	require.Equal(t, 15, memutils.BatchCapacity(12, 5))
	require.Equal(t, 20, memutils.BatchCapacity(15, 5))
	require.Equal(t, uint(2), memutils.BatchCapacity[uint](1, 1))
}

func TestCheckPositive(t *testing.T) {
	require.NoError(t, memutils.CheckPositive(1, "BatchSize"))

	err := memutils.CheckPositive(0, "BatchSize")
	require.Error(t, err)
	require.Contains(t, err.Error(), "BatchSize must be greater than zero")

	require.Error(t, memutils.CheckPositive(-3, "BatchSize"))
}

func TestDetailedStatisticsAccumulate(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	stats.BlockCount++
	stats.BlockElements += 10
	stats.AddAllocation(4)
	stats.AddAllocation(2)
	stats.AddUnusedRange(4)

	var other memutils.DetailedStatistics
	other.Clear()
	other.BlockCount++
	other.BlockElements += 5
	other.AddAllocation(5)

	stats.AddDetailedStatistics(&other)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:         2,
			AllocationCount:    3,
			BlockElements:      15,
			AllocationElements: 11,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  2,
		AllocationSizeMax:  5,
		UnusedRangeSizeMin: 4,
		UnusedRangeSizeMax: 4,
	}, stats)
	require.Equal(t, 4, stats.UnusedElements())
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	err := errors.Wrapf(memutils.ErrCannotExpand, "requested %d elements", 3)
	require.True(t, errors.Is(err, memutils.ErrCannotExpand))
	require.False(t, errors.Is(err, memutils.ErrOutOfMemory))
}
