// Package multiboot reads the boot information structure that a multiboot2
// compliant boot loader hands to the kernel. The kernel core only needs three
// facts from it: the physical memory map (to bound the heap arena), the text
// framebuffer location and the boot command line.
package multiboot

import "unsafe"

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

// tagHeader describes the header that precedes each tag.
type tagHeader struct {
	tagType tagType

	// The size of the tag including the header but not including any
	// padding. Each tag starts at an 8-byte aligned address.
	size uint32
}

// mmapHeader describes the header for a memory map tag.
type mmapHeader struct {
	entrySize    uint32
	entryVersion uint32
}

// FramebufferType defines the type of the initialized framebuffer.
type FramebufferType uint8

const (
	// FramebufferTypeIndexed specifies a 256-color palette.
	FramebufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB specifies direct RGB mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA specifies EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo provides information about the initialized framebuffer.
type FramebufferInfo struct {
	// The framebuffer physical address.
	PhysAddr uint64

	// Row pitch in bytes.
	Pitch uint32

	// Width and height in pixels (or characters if Type = FramebufferTypeEGA)
	Width, Height uint32

	// Bits per pixel (non EGA modes only).
	Bpp uint8

	// Framebuffer type.
	Type FramebufferType

	reserved uint16
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown will be mapped to MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region entry, namely its physical address,
// its length and its type.
type MemoryMapEntry struct {
	PhysAddress uint64
	Length      uint64
	Type        MemoryEntryType
}

// End returns the address right after the last byte of the region.
func (e *MemoryMapEntry) End() uint64 {
	return e.PhysAddress + e.Length
}

// MemRegionVisitor defines a visitor function that gets invoked by
// VisitMemRegions for each memory region provided by the boot loader. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// CmdLineVisitor is invoked by VisitBootCmdLine for each key/value pair of
// the boot command line. The visitor must return true to continue or false to
// abort the scan.
type CmdLineVisitor func(key, value string) bool

var infoData uintptr

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// VisitMemRegions invokes the supplied visitor for each memory region that
// is defined by the multiboot info data that we received from the bootloader.
// Regions with an unknown type are reported as reserved.
func VisitMemRegions(visitor MemRegionVisitor) {
	curPtr, size := findTagByType(tagMemoryMap)
	if size == 0 {
		return
	}

	// curPtr points to the memory map header (2 dwords long)
	ptrMapHeader := (*mmapHeader)(unsafe.Pointer(curPtr))
	endPtr := curPtr + uintptr(size)
	curPtr += 8

	var entry *MemoryMapEntry
	for curPtr < endPtr {
		entry = (*MemoryMapEntry)(unsafe.Pointer(curPtr))

		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(entry) {
			return
		}

		curPtr += uintptr(ptrMapHeader.entrySize)
	}
}

// GetFramebufferInfo returns information about the framebuffer initialized by the
// bootloader. This function returns nil if no framebuffer info is available.
func GetFramebufferInfo() *FramebufferInfo {
	curPtr, size := findTagByType(tagFramebufferInfo)
	if size == 0 {
		return nil
	}

	return (*FramebufferInfo)(unsafe.Pointer(curPtr))
}

// GetBootCmdLine returns the raw command line passed to the kernel. The
// returned string aliases the boot information memory.
func GetBootCmdLine() string {
	return cString(findTagByType(tagBootCmdLine))
}

// GetBootLoaderName returns the name of the boot loader that started the
// kernel or an empty string if it was not reported.
func GetBootLoaderName() string {
	return cString(findTagByType(tagBootLoaderName))
}

// VisitBootCmdLine splits the boot command line into space separated fields
// and invokes visitor for each one. Fields of the form "key=value" are
// reported as (key, value); bare fields are reported with the field as both
// key and value. Parsing does not allocate so it can run before the heap is
// available.
func VisitBootCmdLine(visitor CmdLineVisitor) {
	cmdLine := GetBootCmdLine()

	for start := 0; start < len(cmdLine); {
		if cmdLine[start] == ' ' {
			start++
			continue
		}

		end := start
		for end < len(cmdLine) && cmdLine[end] != ' ' {
			end++
		}

		key, value := cmdLine[start:end], cmdLine[start:end]
		for i := start; i < end; i++ {
			if cmdLine[i] == '=' {
				key, value = cmdLine[start:i], cmdLine[i+1:end]
				break
			}
		}

		if !visitor(key, value) {
			return
		}
		start = end
	}
}

// CmdLineValue returns the value of the first command line field whose key
// matches key.
func CmdLineValue(key string) (string, bool) {
	var (
		value string
		found bool
	)

	VisitBootCmdLine(func(k, v string) bool {
		if k != key {
			return true
		}
		value, found = v, true
		return false
	})

	return value, found
}

// cString returns a string that aliases the NULL-terminated string of at most
// size bytes stored at ptr.
func cString(ptr uintptr, size uint32) string {
	if size == 0 {
		return ""
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
	for i, b := range data {
		if b == 0 {
			data = data[:i]
			break
		}
	}

	if len(data) == 0 {
		return ""
	}
	return unsafe.String(&data[0], len(data))
}

// findTagByType scans the multiboot info data looking for the start of the
// specified type. It returns a pointer to the tag contents start offset and
// the content length excluding the tag header.
//
// If the tag is not present in the multiboot info, findTagByType will return
// back (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	var ptrTagHeader *tagHeader

	curPtr := infoData + 8
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}
