package multiboot

import (
	"encoding/binary"
	"unsafe"
)

const mmapEntrySize = 24

// Builder assembles a multiboot2 information structure. Hosted tools use it
// to play the role of the boot loader when running the kernel core outside
// of a real machine.
type Builder struct {
	tags []byte
}

// CmdLine adds a boot command line tag.
func (b *Builder) CmdLine(cmdLine string) *Builder {
	return b.addTag(tagBootCmdLine, append([]byte(cmdLine), 0))
}

// BootLoaderName adds a boot loader name tag.
func (b *Builder) BootLoaderName(name string) *Builder {
	return b.addTag(tagBootLoaderName, append([]byte(name), 0))
}

// MemoryMap adds a memory map tag listing the supplied regions.
func (b *Builder) MemoryMap(entries ...MemoryMapEntry) *Builder {
	data := make([]byte, 8+len(entries)*mmapEntrySize)
	binary.LittleEndian.PutUint32(data[0:], mmapEntrySize)

	for i, entry := range entries {
		off := 8 + i*mmapEntrySize
		binary.LittleEndian.PutUint64(data[off:], entry.PhysAddress)
		binary.LittleEndian.PutUint64(data[off+8:], entry.Length)
		binary.LittleEndian.PutUint32(data[off+16:], uint32(entry.Type))
	}

	return b.addTag(tagMemoryMap, data)
}

// Framebuffer adds a framebuffer info tag.
func (b *Builder) Framebuffer(info FramebufferInfo) *Builder {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[0:], info.PhysAddr)
	binary.LittleEndian.PutUint32(data[8:], info.Pitch)
	binary.LittleEndian.PutUint32(data[12:], info.Width)
	binary.LittleEndian.PutUint32(data[16:], info.Height)
	data[20] = info.Bpp
	data[21] = byte(info.Type)

	return b.addTag(tagFramebufferInfo, data)
}

// Bytes returns the encoded information structure, terminated by an end tag.
// The returned slice is 8-byte aligned so its address can be passed to
// SetInfoPtr.
func (b *Builder) Bytes() []byte {
	total := 8 + len(b.tags) + 8

	// Back the data with a []uint64 so the structure is 8-byte aligned.
	words := make([]uint64, total/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), total)

	binary.LittleEndian.PutUint32(data[0:], uint32(total))
	copy(data[8:], b.tags)
	return data
}

func (b *Builder) addTag(t tagType, content []byte) *Builder {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(t))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(8+len(content)))

	b.tags = append(b.tags, hdr[:]...)
	b.tags = append(b.tags, content...)
	for len(b.tags)%8 != 0 {
		b.tags = append(b.tags, 0)
	}
	return b
}
