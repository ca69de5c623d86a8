package arena

import (
	"context"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/memforge/fixedheap"
	"golang.org/x/exp/slog"
)

// BlockInfo describes one block in an address-ordered heap snapshot.
type BlockInfo struct {
	Offset     int
	Size       int
	UsableSize int
	Free       bool
}

// FreeSpan describes one entry of the free list, in list order.
type FreeSpan struct {
	Offset int
	Size   int
}

// maxWalkSteps bounds diagnostic walks. A well-formed heap can never hold more blocks than
// capacity divided by the minimum block size; anything past that is corruption.
func (h *Heap) maxWalkSteps() int {
	return len(h.data)/MinBlockSize + 1
}

// VisitAllBlocks walks the heap in address order and calls visit once per block with its
// offset, total size, usable payload size, and free state. The walk is read-only. A zero-size
// block or an excessive step count stops the walk with an error wrapping
// fixedheap.ErrCorruptedHeap rather than looping; the heap itself is untouched.
func (h *Heap) VisitAllBlocks(visit func(offset, size, usableSize int, free bool) error) error {
	steps := 0
	for offset := 0; offset < len(h.data); {
		size := h.blockSize(offset)
		if size == 0 {
			return cerrors.Wrapf(fixedheap.ErrCorruptedHeap, "zero-size block at offset %d", offset)
		}
		steps++
		if steps > h.maxWalkSteps() {
			return cerrors.Wrapf(fixedheap.ErrCorruptedHeap, "heap walk exceeded %d steps", h.maxWalkSteps())
		}

		err := visit(offset, size, size-HeaderSize, h.blockIsFree(offset))
		if err != nil {
			return err
		}

		offset += size
	}

	return nil
}

// VisitFreeList follows the free list from its head and calls visit once per entry with its
// list index, offset, and total size. An out-of-range link or a cycle stops the walk with an
// error wrapping fixedheap.ErrCorruptedHeap.
func (h *Heap) VisitFreeList(visit func(index, offset, size int) error) error {
	visited := swiss.NewMap[int, struct{}](8)

	index := 0
	for offset := h.freeHead; offset != nilLink; offset = h.nextFree(offset) {
		if offset < 0 || offset+HeaderSize > len(h.data) {
			return cerrors.Wrapf(fixedheap.ErrCorruptedHeap, "free-list link points at offset %d, outside the region", offset)
		}
		if _, seen := visited.Get(offset); seen {
			return cerrors.Wrapf(fixedheap.ErrCorruptedHeap, "free-list cycle through offset %d", offset)
		}
		visited.Put(offset, struct{}{})

		err := visit(index, offset, h.blockSize(offset))
		if err != nil {
			return err
		}

		index++
	}

	return nil
}

// UsedBytes returns the payload bytes of all live allocations, from an address-ordered walk.
// If the walk detects corruption it is logged and the sum accumulated so far is returned.
func (h *Heap) UsedBytes() int {
	var used int
	err := h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		if !free {
			used += usableSize
		}
		return nil
	})
	if err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "heap walk aborted", slog.Any("error", err))
	}

	return used
}

// FreeBytes returns the payload bytes available across all free blocks, from a free-list walk.
// Under normal operation it agrees with the address-ordered walk's free accumulator.
func (h *Heap) FreeBytes() int {
	var free int
	err := h.VisitFreeList(func(index, offset, size int) error {
		free += size - HeaderSize
		return nil
	})
	if err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "free-list walk aborted", slog.Any("error", err))
	}

	return free
}

// FreeRegionsCount returns the number of free-list entries: the heap's external fragmentation
// count.
func (h *Heap) FreeRegionsCount() int {
	var count int
	err := h.VisitFreeList(func(index, offset, size int) error {
		count++
		return nil
	})
	if err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "free-list walk aborted", slog.Any("error", err))
	}

	return count
}

// DumpState returns an address-ordered snapshot of every block in the heap. Formatting is the
// caller's concern; the heap only supplies the data.
func (h *Heap) DumpState() []BlockInfo {
	var blocks []BlockInfo
	err := h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		blocks = append(blocks, BlockInfo{
			Offset:     offset,
			Size:       size,
			UsableSize: usableSize,
			Free:       free,
		})
		return nil
	})
	if err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "heap walk aborted", slog.Any("error", err))
	}

	return blocks
}

// FreeListState returns the free list as a slice of spans, in list order.
func (h *Heap) FreeListState() []FreeSpan {
	var spans []FreeSpan
	err := h.VisitFreeList(func(index, offset, size int) error {
		spans = append(spans, FreeSpan{Offset: offset, Size: size})
		return nil
	})
	if err != nil {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "free-list walk aborted", slog.Any("error", err))
	}

	return spans
}

// AddStatistics sums this heap's allocation statistics into the provided fixedheap.Statistics
// object.
func (h *Heap) AddStatistics(stats *fixedheap.Statistics) {
	stats.HeapCount++
	stats.HeapBytes += len(h.data)

	_ = h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		if !free {
			stats.AllocationCount++
			stats.AllocationBytes += size
		}
		return nil
	})
}

// AddDetailedStatistics sums this heap's allocation statistics into the provided
// fixedheap.DetailedStatistics object, including free-region counts and size extremes.
func (h *Heap) AddDetailedStatistics(stats *fixedheap.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapBytes += len(h.data)

	_ = h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		if free {
			stats.AddFreeRegion(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// CheckCorruption verifies the debug markers written after every live allocation. It only has
// markers to check when the module is built with the debug_fixedheap tag; without it the method
// returns nil immediately.
func (h *Heap) CheckCorruption() error {
	if fixedheap.DebugMargin == 0 {
		return nil
	}

	return h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		if !free && !fixedheap.ValidateMagicValue(h.data, offset+size-fixedheap.DebugMargin) {
			return cerrors.Errorf("memory corruption detected after the allocation at offset %d", offset)
		}
		return nil
	})
}
