// Package mem contains the size arithmetic and raw memory helpers shared by
// the kernel's memory management code.
package mem

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// PointerSize is the size of a machine word.
const PointerSize = Size(8)

// AlignUp rounds addr up to the next multiple of align which must be a power
// of two. The second return value is false if rounding overflows.
func AlignUp(addr, align uintptr) (uintptr, bool) {
	mask := align - 1
	aligned := (addr + mask) &^ mask
	return aligned, aligned >= addr
}

// IsAligned returns true if addr is a multiple of align.
func IsAligned(addr, align uintptr) bool {
	return addr&(align-1) == 0
}
