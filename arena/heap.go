package arena

import (
	"github.com/memforge/fixedheap"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// DefaultCapacity is the heap capacity used when there is no reason to pick another: 1 MiB.
const DefaultCapacity = 1 << 20

// Heap is a fixed-capacity heap allocator over a single contiguous byte region. Blocks carry
// their metadata in-band at the start of their span, free blocks are threaded through an
// unordered singly-linked free list, and allocation uses first-fit with block splitting.
// The region never grows.
//
// A Heap is not safe for concurrent use. Callers that share one across goroutines must wrap
// every method in an external lock, or give each goroutine its own Heap.
type Heap struct {
	data     []byte
	freeHead int
	logger   *slog.Logger
}

var _ fixedheap.Validatable = (*Heap)(nil)

// New creates a Heap managing a zeroed region of the provided capacity. The capacity must be a
// multiple of the alignment unit and large enough to hold at least one block. A nil logger
// falls back to slog.Default; the logger is the diagnostic channel for release-path errors and
// aborted walks.
func New(capacity int, logger *slog.Logger) (*Heap, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity < MinBlockSize {
		return nil, errors.Errorf("heap capacity %d cannot hold a single block (minimum %d)", capacity, MinBlockSize)
	}
	if capacity%int(Alignment) != 0 {
		return nil, errors.Errorf("heap capacity %d is not a multiple of the %d-byte alignment unit", capacity, Alignment)
	}
	fixedheap.DebugCheckPow2(Alignment, "heap alignment")

	h := &Heap{
		data:   make([]byte, capacity),
		logger: logger,
	}
	h.Reset()

	return h, nil
}

// Reset returns the heap to its freshly initialized state: the region is zeroed and one free
// block spanning the whole region becomes the sole free-list entry. Any outstanding Refs are
// invalidated.
func (h *Heap) Reset() {
	for i := range h.data {
		h.data[i] = 0
	}

	h.setBlockSize(0, len(h.data))
	h.markFree(0)
	h.setNextFree(0, nilLink)
	h.freeHead = 0
}

// Size returns the capacity of the managed region in bytes.
func (h *Heap) Size() int {
	return len(h.data)
}

// IsEmpty reports whether the heap has no live allocations.
func (h *Heap) IsEmpty() bool {
	empty := true
	_ = h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		if !free {
			empty = false
		}
		return nil
	})

	return empty
}

// Bytes returns the payload region behind ref, aliasing the heap's backing store. Writes
// through the returned slice land in the allocation. It returns nil for NullRef, for
// references outside the region, and for references whose block is not live.
func (h *Heap) Bytes(ref Ref) []byte {
	if ref == NullRef {
		return nil
	}

	offset := int(ref) - HeaderSize
	if offset < 0 || offset+HeaderSize > len(h.data) || h.blockIsFree(offset) {
		return nil
	}

	end := offset + h.blockSize(offset) - fixedheap.DebugMargin
	if end < int(ref) || end > len(h.data) {
		return nil
	}

	return h.data[int(ref):end]
}
