package arena

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

// Validate performs a full consistency check of the heap metadata: the blocks must partition
// the region exactly, every size must respect the minimum and the alignment unit, and the free
// list must agree with the free flags found by the address-ordered walk, both in entry count
// and in byte totals. When the allocator is functioning correctly this cannot fail. It backs
// DebugValidate in debug builds and can assist in diagnosing a misbehaving consumer.
func (h *Heap) Validate() error {
	freeOffsets := swiss.NewMap[int, struct{}](8)
	var walkedFreeCount, walkedFreeBytes int

	steps := 0
	offset := 0
	for offset < len(h.data) {
		steps++
		if steps > h.maxWalkSteps() {
			return errors.Errorf("heap walk exceeded %d steps without reaching the region end", h.maxWalkSteps())
		}

		size := h.blockSize(offset)
		if size < MinBlockSize {
			return errors.Errorf("block at offset %d has size %d, below the minimum block size %d", offset, size, MinBlockSize)
		}
		if size%int(Alignment) != 0 {
			return errors.Errorf("block at offset %d has size %d, not a multiple of the alignment unit", offset, size)
		}
		if offset+size > len(h.data) {
			return errors.Errorf("block at offset %d with size %d extends past the region end", offset, size)
		}

		if h.blockIsFree(offset) {
			walkedFreeCount++
			walkedFreeBytes += size
			freeOffsets.Put(offset, struct{}{})
		}

		offset += size
	}

	if offset != len(h.data) {
		return errors.Errorf("blocks cover %d bytes but the region holds %d", offset, len(h.data))
	}

	seen := swiss.NewMap[int, struct{}](8)
	var listCount, listBytes int
	for current := h.freeHead; current != nilLink; current = h.nextFree(current) {
		if current < 0 || current+HeaderSize > len(h.data) {
			return errors.Errorf("free-list link points at offset %d, outside the region", current)
		}
		if _, ok := seen.Get(current); ok {
			return errors.Errorf("free list contains a cycle through offset %d", current)
		}
		seen.Put(current, struct{}{})

		if _, ok := freeOffsets.Get(current); !ok {
			return errors.Errorf("free-list entry at offset %d is not a free block boundary", current)
		}

		listCount++
		listBytes += h.blockSize(current)
	}

	if listCount != walkedFreeCount {
		return errors.Errorf("the heap walk found %d free blocks but the free list holds %d entries", walkedFreeCount, listCount)
	}
	if listBytes != walkedFreeBytes {
		return errors.Errorf("the heap walk found %d free bytes but the free list accounts for %d", walkedFreeBytes, listBytes)
	}

	return nil
}
