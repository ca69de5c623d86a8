package arena

import (
	"context"
	"fmt"

	cerrors "github.com/cockroachdb/errors"
	"github.com/memforge/fixedheap"
	"golang.org/x/exp/slog"
)

// Free releases the allocation behind ref. NullRef is a defined no-op. A reference that does
// not map into the managed region returns an error wrapping fixedheap.ErrInvalidPointer, and a
// reference whose block is already free returns one wrapping fixedheap.ErrDoubleFree; in both
// cases the heap is left unchanged and the error is also reported through the heap's logger.
//
// On success the block is merged with any free address-adjacent neighbors before rejoining the
// free list, so a run of adjacent free blocks always collapses into a single list entry.
//
// The double-free check inspects only the block's own free flag. An out-of-bounds write from a
// neighboring allocation that overwrites the flag after the original free will defeat it.
func (h *Heap) Free(ref Ref) error {
	if ref == NullRef {
		return nil
	}

	offset := int(ref) - HeaderSize
	if offset < 0 || offset+HeaderSize > len(h.data) {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "release of a pointer outside the heap region",
			slog.Int("ref", int(ref)),
			slog.Int("capacity", len(h.data)))
		return cerrors.Wrapf(fixedheap.ErrInvalidPointer, "ref %d maps to block offset %d in a %d-byte region", ref, offset, len(h.data))
	}

	if h.blockIsFree(offset) {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "double free detected",
			slog.Int("ref", int(ref)),
			slog.Int("offset", offset))
		return cerrors.Wrapf(fixedheap.ErrDoubleFree, "block at offset %d is already free", offset)
	}

	fixedheap.DebugValidate(h)

	if fixedheap.DebugMargin > 0 && !fixedheap.ValidateMagicValue(h.data, offset+h.blockSize(offset)-fixedheap.DebugMargin) {
		panic(fmt.Sprintf("memory corruption detected after the allocation at offset %d", offset))
	}

	h.markFree(offset)
	h.setNextFree(offset, nilLink)

	offset, absorbed := h.coalesce(offset)
	if !absorbed {
		h.pushFree(offset)
	}

	return nil
}

// coalesce merges the freshly freed block at offset with free address-adjacent neighbors. The
// forward neighbor is located directly from the block's span; the backward neighbor requires
// walking block by block from the region start, because headers carry no back-reference.
//
// It returns the offset of the surviving block and whether that block was absorbed into a
// predecessor already resident in the free list, in which case the caller must not insert it.
func (h *Heap) coalesce(offset int) (int, bool) {
	nextOffset := offset + h.blockSize(offset)
	if nextOffset < len(h.data) && h.blockIsFree(nextOffset) {
		h.removeFree(nextOffset)
		h.setBlockSize(offset, h.blockSize(offset)+h.blockSize(nextOffset))
	}

	for current := 0; current < offset; {
		size := h.blockSize(current)
		if size == 0 {
			panic(fmt.Sprintf("zero-size block at offset %d while scanning for a backward neighbor", current))
		}

		end := current + size
		if end == offset {
			if h.blockIsFree(current) {
				h.setBlockSize(current, size+h.blockSize(offset))
				return current, true
			}
			break
		}
		if end > offset {
			break
		}

		current = end
	}

	return offset, false
}
