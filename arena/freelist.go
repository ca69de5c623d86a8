package arena

import "fmt"

// pushFree inserts the block at the front of the free list. The list carries no ordering
// guarantee; positions reflect insertion history only.
func (h *Heap) pushFree(offset int) {
	h.setNextFree(offset, h.freeHead)
	h.freeHead = offset
}

// removeFree unlinks a block known to be resident in the free list. The list is singly linked
// and headers hold no back-reference, so the predecessor is found with a linear scan from the
// head.
func (h *Heap) removeFree(offset int) {
	if h.freeHead == offset {
		h.freeHead = h.nextFree(offset)
		return
	}

	for current := h.freeHead; current != nilLink; current = h.nextFree(current) {
		if h.nextFree(current) == offset {
			h.setNextFree(current, h.nextFree(offset))
			return
		}
	}

	panic(fmt.Sprintf("block at offset %d was expected in the free list but was not found", offset))
}

// findFirstFit scans the free list from the head and returns the first block whose total size
// can hold totalSize, along with its list predecessor (nilLink when the match is the head).
func (h *Heap) findFirstFit(totalSize int) (offset, prev int, ok bool) {
	prev = nilLink
	for current := h.freeHead; current != nilLink; current = h.nextFree(current) {
		if h.blockSize(current) >= totalSize {
			return current, prev, true
		}

		prev = current
	}

	return 0, nilLink, false
}
