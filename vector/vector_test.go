package vector_test

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"github.com/vkngwrapper/sizedalloc/sized"
	"github.com/vkngwrapper/sizedalloc/vector"
	mock_vector "github.com/vkngwrapper/sizedalloc/vector/mocks"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"
)

func newVector[T any](t require.TestingT, options sized.CreateOptions) (*vector.BlockVector[T], *sized.Allocator[T]) {
	allocator, err := sized.New[T](options)
	require.NoError(t, err)

	v, err := vector.New[T](allocator)
	require.NoError(t, err)

	return v, allocator
}

func TestGrowthReleasesOldCapacity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	allocator := mock_vector.NewMockAllocator[int](ctrl)

	gomock.InOrder(
		allocator.EXPECT().Allocate(4).Return(make([]int, 4), nil),
		allocator.EXPECT().Allocate(6).Return(make([]int, 6), nil),
		allocator.EXPECT().Deallocate(gomock.Any(), 4),
		allocator.EXPECT().Allocate(9).Return(make([]int, 9), nil),
		allocator.EXPECT().Deallocate(gomock.Any(), 6),
		allocator.EXPECT().Deallocate(gomock.Any(), 9),
	)

	v, err := vector.New[int](allocator)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, v.PushBack(i))
	}
	require.Equal(t, 7, v.Size())
	require.Equal(t, 9, v.Capacity())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, slices.Collect(v.Values()))

	require.NoError(t, v.Destroy())
}

func TestGrowthFailureLeavesVectorUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	allocator := mock_vector.NewMockAllocator[int](ctrl)
	allocator.EXPECT().Allocate(4).Return(make([]int, 4), nil)
	allocator.EXPECT().Allocate(6).Return(nil, memutils.ErrCannotExpand)

	v, err := vector.New[int](allocator)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, v.PushBack(i))
	}

	err = v.PushBack(4)
	require.True(t, errors.Is(err, memutils.ErrCannotExpand))
	require.Equal(t, 4, v.Size())
	require.Equal(t, 4, v.Capacity())
	require.Equal(t, []int{0, 1, 2, 3}, slices.Collect(v.Values()))
}

func TestNewPropagatesAllocationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	allocator := mock_vector.NewMockAllocator[int](ctrl)
	allocator.EXPECT().Allocate(vector.InitialCapacity).Return(nil, memutils.ErrOutOfMemory)

	_, err := vector.New[int](allocator)
	require.True(t, errors.Is(err, memutils.ErrOutOfMemory))
}

func TestRoundTripGrowablePool(t *testing.T) {
	v, allocator := newVector[int](t, sized.CreateOptions{BatchSize: 5, Expand: sized.ExpandGrowable})
	require.True(t, v.IsEmpty())

	capacities := []int{v.Capacity()}
	for i := 0; i < 10; i++ {
		require.NoError(t, v.PushBack(i))
		if v.Capacity() != capacities[len(capacities)-1] {
			capacities = append(capacities, v.Capacity())
		}
	}

	require.False(t, v.IsEmpty())
	require.Equal(t, 10, v.Size())
	require.Equal(t, []int{4, 6, 9, 13}, capacities)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, slices.Collect(v.Values()))

	// 4 -> region of 5; 6 -> extend by 10; 9 -> extend by 10; 13 -> extend by 15
	require.Equal(t, 40, allocator.ReservedElements())

	require.NoError(t, v.Destroy())
	require.Equal(t, 0, allocator.ReservedElements())
}

func TestRoundTripPerAllocation(t *testing.T) {
	v, allocator := newVector[int](t, sized.CreateOptions{Free: sized.FreePerAllocation})

	for i := 0; i < 10; i++ {
		require.NoError(t, v.PushBack(i))
	}

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, slices.Collect(v.Values()))
	// Only the live storage remains reserved
	require.Equal(t, v.Capacity(), allocator.ReservedElements())

	// Every reservation is released, so teardown reports no leaks
	require.NoError(t, v.Destroy())
	require.Equal(t, 0, allocator.ReservedElements())
}

func TestFixedPoolCannotGrow(t *testing.T) {
	v, allocator := newVector[int](t, sized.CreateOptions{BatchSize: 5, Expand: sized.ExpandFixed})
	require.Equal(t, 5, allocator.ReservedElements())

	for i := 0; i < 4; i++ {
		require.NoError(t, v.PushBack(i))
	}

	err := v.PushBack(4)
	require.True(t, errors.Is(err, memutils.ErrCannotExpand))
	require.Equal(t, 4, v.Size())
	require.Equal(t, 5, allocator.ReservedElements())
}

func TestIterationIsRestartable(t *testing.T) {
	v, _ := newVector[string](t, sized.CreateOptions{Expand: sized.ExpandGrowable})

	for _, value := range []string{"a", "b", "c"} {
		require.NoError(t, v.PushBack(value))
	}

	require.Equal(t, []string{"a", "b", "c"}, slices.Collect(v.Values()))
	require.Equal(t, []string{"a", "b", "c"}, slices.Collect(v.Values()))

	var visited []int
	for index, value := range v.All() {
		visited = append(visited, index)
		*value += "!"
		if index == 1 {
			break
		}
	}
	require.Equal(t, []int{0, 1}, visited)
	require.Equal(t, []string{"a!", "b!", "c"}, slices.Collect(v.Values()))
	require.Equal(t, "c", *v.At(2))
}

func TestAtOutOfRange(t *testing.T) {
	v, _ := newVector[int](t, sized.CreateOptions{Expand: sized.ExpandGrowable})
	require.NoError(t, v.PushBack(1))

	require.Equal(t, 1, *v.At(0))
	require.Panics(t, func() { v.At(1) })
	require.Panics(t, func() { v.At(-1) })
}

func TestDestroyedVectorCanBeReused(t *testing.T) {
	v, _ := newVector[int](t, sized.CreateOptions{Expand: sized.ExpandGrowable})
	require.NoError(t, v.PushBack(1))

	require.NoError(t, v.Destroy())
	require.True(t, v.IsEmpty())
	require.Equal(t, 0, v.Capacity())
	require.Empty(t, slices.Collect(v.Values()))

	require.NoError(t, v.PushBack(2))
	require.Equal(t, vector.InitialCapacity, v.Capacity())

	for value := 3; value <= 6; value++ {
		require.NoError(t, v.PushBack(value))
	}
	require.Equal(t, 6, v.Capacity())
	require.Equal(t, []int{2, 3, 4, 5, 6}, slices.Collect(v.Values()))
}

func TestPushBackProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		free := rapid.SampledFrom([]sized.FreePolicy{sized.FreePooled, sized.FreePerAllocation}).Draw(t, "free")
		batchSize := rapid.IntRange(1, 16).Draw(t, "batchSize")
		values := rapid.SliceOfN(rapid.Int(), 0, 200).Draw(t, "values")

		v, _ := newVector[int](t, sized.CreateOptions{BatchSize: batchSize, Expand: sized.ExpandGrowable, Free: free})

		for _, value := range values {
			capacity := v.Capacity()
			full := v.Size() == capacity

			require.NoError(t, v.PushBack(value))

			if full {
				require.Greater(t, v.Capacity(), capacity)
			} else {
				require.Equal(t, capacity, v.Capacity())
			}
		}

		require.Equal(t, len(values), v.Size())
		require.Equal(t, len(values) == 0, v.IsEmpty())

		collected := slices.Collect(v.Values())
		if len(values) == 0 {
			require.Empty(t, collected)
		} else {
			require.Equal(t, values, collected)
		}

		require.NoError(t, v.Destroy())
	})
}
