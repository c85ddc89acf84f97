package hal

import (
	"tinykern/kernel"
	"tinykern/kernel/hal/multiboot"
	"tinykern/kernel/mem"
)

var (
	errNoHeapRegion = &kernel.Error{Module: "hal", Message: "kernel image end is not inside an available memory region"}
)

// HeapRegion returns the extents of the heap arena: from the first 8-byte
// aligned address after the kernel image up to the end of the available
// memory region that contains the kernel image end.
func HeapRegion(kernelEnd uintptr) (start, limit uintptr, err *kernel.Error) {
	err = errNoHeapRegion

	multiboot.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		if region.Type != multiboot.MemAvailable {
			return true
		}

		end := uint64(kernelEnd)
		if end < region.PhysAddress || end >= region.End() {
			return true
		}

		aligned, ok := mem.AlignUp(kernelEnd, 8)
		if !ok || uint64(aligned) > region.End() {
			return false
		}

		start, limit, err = aligned, uintptr(region.End()), nil
		return false
	})

	return start, limit, err
}
