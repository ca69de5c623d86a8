package arena

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/memforge/fixedheap"
)

// Alloc reserves size bytes and returns a reference to the payload. The request is rounded up
// to the alignment unit, so the payload always holds at least size usable bytes and is 8-byte
// aligned. The free list is searched first-fit; a match larger than needed is split unless the
// remainder could not hold a block of its own.
//
// A zero or negative size returns NullRef with no error. When no free block is large enough the
// result is NullRef and an error wrapping fixedheap.ErrOutOfMemory; the region never grows, so
// the caller must free memory before retrying.
func (h *Heap) Alloc(size int) (Ref, error) {
	if size <= 0 {
		return NullRef, nil
	}

	fixedheap.DebugValidate(h)

	aligned := fixedheap.AlignUp(size, Alignment)
	totalSize := HeaderSize + aligned + fixedheap.DebugMargin

	offset, prev, ok := h.findFirstFit(totalSize)
	if !ok {
		return NullRef, cerrors.Wrapf(fixedheap.ErrOutOfMemory, "requested %d bytes (%d with metadata)", size, totalSize)
	}

	h.splitBlock(offset, totalSize)

	// Any split remainder was spliced into the chosen block's list position, so unlinking the
	// chosen block leaves the rest of the list untouched.
	if prev == nilLink {
		h.freeHead = h.nextFree(offset)
	} else {
		h.setNextFree(prev, h.nextFree(offset))
	}

	h.markTaken(offset)
	h.setNextFree(offset, nilLink)

	if fixedheap.DebugMargin > 0 {
		fixedheap.WriteMagicValue(h.data, offset+h.blockSize(offset)-fixedheap.DebugMargin)
	}

	return Ref(offset + HeaderSize), nil
}

// splitBlock shrinks the free block at offset to totalSize and carves the remainder into a new
// free block spliced in directly after it. The new block inherits the original's free-list
// link, so relative ordering of the other entries is undisturbed. Remainders below
// MinBlockSize are left attached to the allocation.
func (h *Heap) splitBlock(offset, totalSize int) {
	remainder := h.blockSize(offset) - totalSize
	if remainder < MinBlockSize {
		return
	}

	newOffset := offset + totalSize
	h.setBlockSize(offset, totalSize)
	h.setBlockSize(newOffset, remainder)
	h.markFree(newOffset)
	h.setNextFree(newOffset, h.nextFree(offset))
	h.setNextFree(offset, newOffset)
}
