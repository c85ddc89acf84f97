package device

import "tinykern/kernel/kfmt"

// ByteWriter is implemented by backends that can output a single byte.
type ByteWriter interface {
	PutByte(info *Info, b byte)
}

// ByteReader is implemented by backends that can input a single byte.
type ByteReader interface {
	GetByte(info *Info) byte
}

// Ioctler is implemented by backends that accept device specific control
// requests.
type Ioctler interface {
	Ioctl(info *Info, arg1, arg2, arg3 int32)
}

// WriteString sends each byte of s to w, in order.
func WriteString[W ByteWriter](w W, info *Info, s string) {
	for i := 0; i < len(s); i++ {
		w.PutByte(info, s[i])
	}
}

// Fprintf formats according to a kfmt format specifier and sends the output
// to w one byte at a time. The sink wrapping w escapes to the heap; kernel
// code that runs before an allocator exists should print through a Handle.
func Fprintf[W ByteWriter](w W, info *Info, format string, args ...interface{}) {
	kfmt.Fprintf(&byteSink[W]{w: w, info: info}, format, args...)
}

// byteSink adapts a ByteWriter to io.Writer.
type byteSink[W ByteWriter] struct {
	w    W
	info *Info
}

func (s *byteSink[W]) Write(p []byte) (int, error) {
	for _, b := range p {
		s.w.PutByte(s.info, b)
	}
	return len(p), nil
}
