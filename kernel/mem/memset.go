package mem

import "unsafe"

// Memset sets size bytes at the given address to the supplied value. The
// implementation is based on bytes.Repeat; instead of using a for loop, this
// function uses log2(size) copy calls.
func Memset(addr uintptr, value byte, size Size) {
	if size == 0 {
		return
	}

	// overlay a slice on top of this address region
	target := Overlay(addr, size)

	// Set first element and make log2(size) optimized copies
	target[0] = value
	for index := Size(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Overlay returns a byte slice of length size that aliases the memory
// region starting at addr.
func Overlay(addr uintptr, size Size) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
}
