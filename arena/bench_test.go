package arena_test

import (
	"io"
	"testing"

	"github.com/memforge/fixedheap/arena"
	"golang.org/x/exp/slog"
)

func benchHeap(b *testing.B) *arena.Heap {
	b.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard))
	heap, err := arena.New(arena.DefaultCapacity, logger)
	if err != nil {
		b.Fatal(err)
	}

	return heap
}

func BenchmarkAllocFree(b *testing.B) {
	heap := benchHeap(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ref, err := heap.Alloc(256)
		if err != nil {
			b.Fatal(err)
		}
		if err = heap.Free(ref); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAllocFreeFragmented(b *testing.B) {
	heap := benchHeap(b)

	// Leave a checkerboard of live allocations so the free list stays long
	refs := make([]arena.Ref, 512)
	for i := range refs {
		var err error
		refs[i], err = heap.Alloc(512)
		if err != nil {
			b.Fatal(err)
		}
	}
	for i := 0; i < len(refs); i += 2 {
		if err := heap.Free(refs[i]); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ref, err := heap.Alloc(256)
		if err != nil {
			b.Fatal(err)
		}
		if err = heap.Free(ref); err != nil {
			b.Fatal(err)
		}
	}
}
