package arrowmem_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sizedalloc/memutils"
	"github.com/vkngwrapper/sizedalloc/sized"
	"github.com/vkngwrapper/sizedalloc/sized/arrowmem"
)

func TestBuilderWithGrowablePool(t *testing.T) {
	mem, err := arrowmem.New(sized.CreateOptions{BatchSize: 64, Expand: sized.ExpandGrowable})
	require.NoError(t, err)

	builder := array.NewInt64Builder(mem)
	for i := 0; i < 100; i++ {
		builder.Append(int64(i))
	}

	values := builder.NewInt64Array()
	require.Equal(t, 100, values.Len())
	for i := 0; i < values.Len(); i++ {
		require.Equal(t, int64(i), values.Value(i))
	}

	values.Release()
	builder.Release()

	// Pooled memory is only reclaimed when the allocator is released
	require.Greater(t, mem.ReservedBytes(), 0)
	require.NoError(t, mem.Release())
	require.Equal(t, 0, mem.ReservedBytes())
}

func TestBuilderWithPerAllocation(t *testing.T) {
	mem, err := arrowmem.New(sized.CreateOptions{Free: sized.FreePerAllocation})
	require.NoError(t, err)

	checked := memory.NewCheckedAllocator(mem)

	builder := array.NewStringBuilder(checked)
	builder.Append("alpha")
	builder.AppendNull()
	builder.Append("gamma")

	values := builder.NewStringArray()
	require.Equal(t, 3, values.Len())
	require.Equal(t, "alpha", values.Value(0))
	require.True(t, values.IsNull(1))
	require.Equal(t, "gamma", values.Value(2))

	values.Release()
	builder.Release()

	checked.AssertSize(t, 0)
	require.Equal(t, 0, mem.ReservedBytes())
	require.NoError(t, mem.Release())
}

func TestReallocate(t *testing.T) {
	mem, err := arrowmem.New(sized.CreateOptions{Free: sized.FreePerAllocation})
	require.NoError(t, err)

	buf := mem.Allocate(4)
	copy(buf, []byte{1, 2, 3, 4})

	shrunk := mem.Reallocate(2, buf)
	require.Equal(t, []byte{1, 2}, shrunk)
	require.Equal(t, 4, mem.ReservedBytes())

	grown := mem.Reallocate(8, buf)
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, grown)
	require.Equal(t, 8, mem.ReservedBytes())

	mem.Free(grown)
	require.Equal(t, 0, mem.ReservedBytes())
}

func TestAllocatePanicsWhenPoolIsExhausted(t *testing.T) {
	bytes, err := sized.New[byte](sized.CreateOptions{BatchSize: 8, Expand: sized.ExpandFixed})
	require.NoError(t, err)
	mem := arrowmem.Wrap(bytes)
	require.Same(t, bytes, mem.Sized())

	_ = mem.Allocate(8)
	_ = mem.Allocate(8)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		panicErr, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(panicErr, memutils.ErrCannotExpand))
	}()
	_ = mem.Allocate(1)
}
