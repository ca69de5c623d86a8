package arena

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// WriteStateJson writes a machine-readable snapshot of the heap into the provided writer:
// totals first, then the address-ordered block layout, then the free list in list order.
func (h *Heap) WriteStateJson(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("TotalBytes").Int(h.Size())
	obj.Name("UsedBytes").Int(h.UsedBytes())
	obj.Name("FreeBytes").Int(h.FreeBytes())
	obj.Name("FreeRegions").Int(h.FreeRegionsCount())

	blocks := obj.Name("Blocks").Array()
	_ = h.VisitAllBlocks(func(offset, size, usableSize int, free bool) error {
		blockObj := blocks.Object()
		blockObj.Name("Offset").Int(offset)
		blockObj.Name("Size").Int(size)
		blockObj.Name("UsableSize").Int(usableSize)
		blockObj.Name("Free").Bool(free)
		blockObj.End()

		return nil
	})
	blocks.End()

	freeList := obj.Name("FreeList").Array()
	_ = h.VisitFreeList(func(index, offset, size int) error {
		spanObj := freeList.Object()
		spanObj.Name("Offset").Int(offset)
		spanObj.Name("Size").Int(size)
		spanObj.End()

		return nil
	})
	freeList.End()
}
