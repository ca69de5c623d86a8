package arena_test

import (
	"os"
	"testing"

	"github.com/memforge/fixedheap"
	"github.com/memforge/fixedheap/arena"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testHeap(t *testing.T, capacity int) *arena.Heap {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout))
	heap, err := arena.New(capacity, logger)
	require.NoError(t, err)
	require.NoError(t, heap.Validate())

	return heap
}

func TestAllocBasic(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	ref1, err := heap.Alloc(100)
	require.NoError(t, err)
	ref2, err := heap.Alloc(200)
	require.NoError(t, err)
	ref3, err := heap.Alloc(50)
	require.NoError(t, err)

	require.NotEqual(t, arena.NullRef, ref1)
	require.NotEqual(t, arena.NullRef, ref2)
	require.NotEqual(t, arena.NullRef, ref3)
	require.NoError(t, heap.Validate())

	// Payloads are disjoint: writing through one slice must not disturb the others
	for i := range heap.Bytes(ref1)[:100] {
		heap.Bytes(ref1)[i] = 0xA1
	}
	for i := range heap.Bytes(ref2)[:200] {
		heap.Bytes(ref2)[i] = 0xB2
	}
	for i := range heap.Bytes(ref3)[:50] {
		heap.Bytes(ref3)[i] = 0xC3
	}

	for _, b := range heap.Bytes(ref1)[:100] {
		require.Equal(t, byte(0xA1), b)
	}
	for _, b := range heap.Bytes(ref2)[:200] {
		require.Equal(t, byte(0xB2), b)
	}
	for _, b := range heap.Bytes(ref3)[:50] {
		require.Equal(t, byte(0xC3), b)
	}
}

func TestAllocAlignment(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	for _, size := range []int{1, 7, 8, 9, 100, 255} {
		ref, err := heap.Alloc(size)
		require.NoError(t, err)
		require.Zerof(t, int(ref)%int(arena.Alignment), "ref %d for size %d is not aligned", ref, size)
		require.GreaterOrEqual(t, len(heap.Bytes(ref)), size)
	}

	require.NoError(t, heap.Validate())
}

func TestAllocZeroSize(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	ref, err := heap.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, arena.NullRef, ref)

	ref, err = heap.Alloc(-5)
	require.NoError(t, err)
	require.Equal(t, arena.NullRef, ref)

	require.Equal(t, 0, heap.UsedBytes())
	require.Equal(t, 1, heap.FreeRegionsCount())
}

func TestAllocOutOfMemory(t *testing.T) {
	heap := testHeap(t, 4096)

	ref, err := heap.Alloc(heap.Size())
	require.ErrorIs(t, err, fixedheap.ErrOutOfMemory)
	require.Equal(t, arena.NullRef, ref)

	// A failed allocation leaves the heap untouched
	require.NoError(t, heap.Validate())
	require.Equal(t, 0, heap.UsedBytes())
	require.Equal(t, heap.Size()-arena.HeaderSize, heap.FreeBytes())
}

func TestAllocWholeHeap(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	// The largest request a fresh heap can satisfy is capacity minus one header
	ref, err := heap.Alloc(heap.Size() - arena.HeaderSize)
	require.NoError(t, err)
	require.NotEqual(t, arena.NullRef, ref)
	require.NoError(t, heap.Validate())

	require.Equal(t, heap.Size()-arena.HeaderSize, heap.UsedBytes())
	require.Equal(t, 0, heap.FreeBytes())
	require.Equal(t, 0, heap.FreeRegionsCount())

	_, err = heap.Alloc(1)
	require.ErrorIs(t, err, fixedheap.ErrOutOfMemory)
}

func TestAllocFreshHeapSizes(t *testing.T) {
	for _, size := range []int{1, 8, 9, 4096, arena.DefaultCapacity / 2, arena.DefaultCapacity - arena.HeaderSize} {
		heap := testHeap(t, arena.DefaultCapacity)

		ref, err := heap.Alloc(size)
		require.NoErrorf(t, err, "size %d must succeed on a fresh heap", size)
		require.NotEqual(t, arena.NullRef, ref)
		require.NoError(t, heap.Validate())
	}
}

func TestAllocSplitConservation(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	before := heap.DumpState()
	require.Len(t, before, 1)

	_, err := heap.Alloc(100)
	require.NoError(t, err)

	after := heap.DumpState()
	require.Len(t, after, 2)
	require.Equal(t, before[0].Size, after[0].Size+after[1].Size)
	require.Equal(t, after[0].Offset+after[0].Size, after[1].Offset)
	require.False(t, after[0].Free)
	require.True(t, after[1].Free)
}

func TestAllocUnsplittableRemainder(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	big, err := heap.Alloc(1000)
	require.NoError(t, err)
	barrier, err := heap.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, heap.Free(big))

	// 1000 bytes of payload are free; asking for 1000 - 24 leaves a remainder smaller than a
	// minimum block, so the whole span is handed over as internal fragmentation
	reused, err := heap.Alloc(1000 - arena.HeaderSize)
	require.NoError(t, err)
	require.Equal(t, big, reused)
	require.Equal(t, 1000, len(heap.Bytes(reused)))
	require.NoError(t, heap.Validate())

	require.NoError(t, heap.Free(reused))
	require.NoError(t, heap.Free(barrier))
}

func TestAllocFirstFitReuse(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	_, err := heap.Alloc(100)
	require.NoError(t, err)
	second, err := heap.Alloc(200)
	require.NoError(t, err)
	_, err = heap.Alloc(50)
	require.NoError(t, err)

	require.NoError(t, heap.Free(second))

	// The freshly freed block sits at the list head; first-fit hands it back
	reused, err := heap.Alloc(150)
	require.NoError(t, err)
	require.Equal(t, second, reused)
	require.NoError(t, heap.Validate())
}

func TestAllocCarvesFreedSpan(t *testing.T) {
	heap := testHeap(t, arena.DefaultCapacity)

	span, err := heap.Alloc(5000)
	require.NoError(t, err)
	require.NoError(t, heap.Free(span))

	spanStart := int(span) - arena.HeaderSize
	spanEnd := spanStart + arena.HeaderSize + 5000

	previous := arena.NullRef
	for _, size := range []int{100, 200, 300} {
		ref, err := heap.Alloc(size)
		require.NoError(t, err)

		require.GreaterOrEqual(t, int(ref), spanStart+arena.HeaderSize)
		require.Less(t, int(ref), spanEnd)
		require.Zero(t, int(ref)%int(arena.Alignment))
		require.Greater(t, ref, previous)
		previous = ref
	}

	require.NoError(t, heap.Validate())
}
