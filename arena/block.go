package arena

import "encoding/binary"

const (
	// Alignment is the alignment unit of the heap. Every requested size is rounded up to a
	// multiple of it before the header is added, so every payload reference handed out is
	// 8-byte aligned.
	Alignment uint = 8

	// HeaderSize is the number of bytes of in-band metadata stored at the start of every block:
	// total size, flags, and the free-list link.
	HeaderSize = 24

	// MinBlockSize is the smallest block the heap will ever carve out: one header plus one
	// alignment unit of payload. Split remainders below this threshold stay attached to the
	// allocation that produced them as internal fragmentation.
	MinBlockSize = HeaderSize + int(Alignment)

	// nilLink terminates the free list. Offset 0 is a valid block start, so 0 cannot serve as
	// the sentinel.
	nilLink = -1

	freeFlag uint64 = 1
)

// Header layout, little-endian, at the block's start offset:
//
//	[0:8)   total block size in bytes, header included, always a multiple of Alignment
//	[8:16)  flags, bit 0 set while the block is free
//	[16:24) arena offset of the next free-list entry, meaningful only while free
const (
	sizeField = 0
	flagField = 8
	linkField = 16
)

// Ref is a caller-facing reference to an allocated payload: the payload's offset within the
// heap region. The zero value NullRef never refers to live memory, because the lowest possible
// payload begins HeaderSize bytes past the region start.
type Ref int

// NullRef is the null reference. Alloc returns it for zero-size and failed requests, and
// Free accepts it as a no-op.
const NullRef Ref = 0

func (h *Heap) blockSize(offset int) int {
	return int(binary.LittleEndian.Uint64(h.data[offset+sizeField:]))
}

func (h *Heap) setBlockSize(offset, size int) {
	binary.LittleEndian.PutUint64(h.data[offset+sizeField:], uint64(size))
}

func (h *Heap) blockIsFree(offset int) bool {
	return binary.LittleEndian.Uint64(h.data[offset+flagField:])&freeFlag != 0
}

func (h *Heap) markFree(offset int) {
	binary.LittleEndian.PutUint64(h.data[offset+flagField:], freeFlag)
}

func (h *Heap) markTaken(offset int) {
	binary.LittleEndian.PutUint64(h.data[offset+flagField:], 0)
}

func (h *Heap) nextFree(offset int) int {
	return int(int64(binary.LittleEndian.Uint64(h.data[offset+linkField:])))
}

func (h *Heap) setNextFree(offset, next int) {
	binary.LittleEndian.PutUint64(h.data[offset+linkField:], uint64(int64(next)))
}
