package hostsim

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Memory is a block of anonymous memory that plays the role of physical
// RAM. It lives outside of the Go heap so the kernel core can keep raw
// addresses into it.
type Memory struct {
	data []byte
}

// NewMemory maps size bytes of zeroed memory.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		return nil, errors.Newf("invalid memory size %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "map %d bytes of emulated memory", size)
	}

	return &Memory{data: data}, nil
}

// Base returns the address of the first byte.
func (m *Memory) Base() uintptr {
	return uintptr(unsafe.Pointer(&m.data[0]))
}

// Size returns the size of the memory block in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Addr returns the address of the byte at the given offset.
func (m *Memory) Addr(offset uintptr) (uintptr, error) {
	if offset >= uintptr(len(m.data)) {
		return 0, errors.Newf("offset 0x%x outside of emulated memory (size 0x%x)", offset, len(m.data))
	}
	return m.Base() + offset, nil
}

// Bytes exposes the memory contents.
func (m *Memory) Bytes() []byte {
	return m.data
}

// Close unmaps the memory. Addresses previously handed out become invalid.
func (m *Memory) Close() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	return errors.Wrap(err, "unmap emulated memory")
}
