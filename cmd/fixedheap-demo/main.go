// Command fixedheap-demo walks a fixed-capacity heap through allocation, reuse, splitting,
// coalescing, and the failure paths, printing the heap layout after each phase. All formatting
// lives here; the arena package only supplies the data.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/memforge/fixedheap/arena"
	"golang.org/x/exp/slog"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr))

	heap, err := arena.New(arena.DefaultCapacity, logger)
	if err != nil {
		logger.Error("failed to create heap", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("heap initialized with %d KiB\n", heap.Size()/1024)
	printHeapState(heap)

	basicAllocation(heap)
	freeAndReuse(heap)
	coalescing(heap)
	edgeCases(heap)
	printStateJson(heap)
}

func basicAllocation(heap *arena.Heap) {
	fmt.Println(">>> basic allocation")
	heap.Reset()

	refs := make([]arena.Ref, 0, 3)
	for _, size := range []int{100, 200, 50} {
		ref, err := heap.Alloc(size)
		if err != nil {
			panic(err)
		}

		copy(heap.Bytes(ref), "hello")
		refs = append(refs, ref)
	}

	fmt.Printf("allocated refs: %v\n", refs)
	printHeapState(heap)
}

func freeAndReuse(heap *arena.Heap) {
	fmt.Println(">>> free and reuse")
	heap.Reset()

	first, _ := heap.Alloc(100)
	second, _ := heap.Alloc(200)
	third, _ := heap.Alloc(50)

	if err := heap.Free(second); err != nil {
		panic(err)
	}

	// First-fit hands the freshly freed span back out
	reused, _ := heap.Alloc(150)
	fmt.Printf("freed %v, reallocated at %v (first %v, third %v)\n", second, reused, first, third)
	printHeapState(heap)
}

func coalescing(heap *arena.Heap) {
	fmt.Println(">>> coalescing")
	heap.Reset()

	refs := make([]arena.Ref, 4)
	for i := range refs {
		refs[i], _ = heap.Alloc(256)
	}

	for _, ref := range refs {
		if err := heap.Free(ref); err != nil {
			panic(err)
		}
	}

	fmt.Printf("released four adjacent blocks, %d free region(s) remain\n", heap.FreeRegionsCount())
	printHeapState(heap)
}

func edgeCases(heap *arena.Heap) {
	fmt.Println(">>> edge cases")
	heap.Reset()

	if ref, _ := heap.Alloc(0); ref == arena.NullRef {
		fmt.Println("zero-size allocation returned the null ref")
	}

	if err := heap.Free(arena.NullRef); err == nil {
		fmt.Println("releasing the null ref is a no-op")
	}

	ref, _ := heap.Alloc(64)
	if err := heap.Free(ref); err != nil {
		panic(err)
	}
	if err := heap.Free(ref); err != nil {
		fmt.Printf("second release rejected: %v\n", err)
	}

	if err := heap.Free(arena.Ref(heap.Size() + 4096)); err != nil {
		fmt.Printf("out-of-region release rejected: %v\n", err)
	}

	if _, err := heap.Alloc(heap.Size() * 2); err != nil {
		fmt.Printf("oversized allocation rejected: %v\n", err)
	}

	printHeapState(heap)
}

func printHeapState(heap *arena.Heap) {
	fmt.Printf("used %d bytes, free %d bytes, %d free region(s)\n",
		heap.UsedBytes(), heap.FreeBytes(), heap.FreeRegionsCount())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tSIZE\tUSABLE\tSTATUS")
	for _, block := range heap.DumpState() {
		status := "USED"
		if block.Free {
			status = "FREE"
		}
		fmt.Fprintf(w, "%#x\t%d\t%d\t%s\n", block.Offset, block.Size, block.UsableSize, status)
	}
	w.Flush()

	for _, span := range heap.FreeListState() {
		fmt.Printf("  free list entry: offset %#x, size %d\n", span.Offset, span.Size)
	}
	fmt.Println()
}

func printStateJson(heap *arena.Heap) {
	writer := jwriter.NewWriter()
	heap.WriteStateJson(&writer)

	if err := writer.Error(); err != nil {
		panic(err)
	}

	fmt.Println(string(writer.Bytes()))
}
