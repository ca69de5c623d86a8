package fixedheap

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// ErrOutOfMemory is returned from allocation methods when no free region is large enough to
// satisfy the request. Fixed-capacity heaps never grow, so the caller must free memory before
// retrying.
var ErrOutOfMemory error = errors.New("no free region is large enough for the requested allocation")

// ErrInvalidPointer is returned from release methods when the provided reference does not map
// into the managed region. The heap is left unchanged.
var ErrInvalidPointer error = errors.New("pointer does not map into the managed heap region")

// ErrDoubleFree is returned from release methods when the block behind the provided reference
// is already free. The heap is left unchanged.
var ErrDoubleFree error = errors.New("double free detected")

// ErrCorruptedHeap is returned from diagnostic walks that encounter metadata no valid sequence
// of operations can produce, such as a zero-size block. The walk stops; the heap itself is not
// modified.
var ErrCorruptedHeap error = errors.New("heap metadata is corrupted")
