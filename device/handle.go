package device

import (
	"tinykern/kernel"
	"tinykern/kernel/kfmt"
	"tinykern/kernel/sync"
)

var (
	errNotSupported = &kernel.Error{Module: "device", Message: "operation not supported by device"}
)

// Device pairs the identity of a device with the backend that drives it.
type Device[P any] struct {
	Info  Info
	Proto P
}

// Handle is the published form of a device. Every operation on the device
// runs with the handle lock held; the lock is released even if the backend
// panics.
type Handle[P any] struct {
	lock sync.Spinlock
	dev  Device[P]
}

// Publish allocates a handle for proto and initializes it via Init.
func Publish[P any](reg *Registry, kind Kind, name string, proto P) (*Handle[P], *kernel.Error) {
	h := &Handle[P]{}
	if err := h.Init(reg, kind, name, proto); err != nil {
		return nil, err
	}
	return h, nil
}

// Init assigns a device ID from reg and binds proto to the handle. If proto
// implements Driver, its DriverInit method is invoked exactly once before
// Init returns; any output it produces goes to the kfmt output sink. Init
// lets the kernel publish devices into statically allocated handles before
// a heap exists.
//
// DriverInit runs without the handle lock so that its output may be routed
// back through this handle by the kfmt sink.
func (h *Handle[P]) Init(reg *Registry, kind Kind, name string, proto P) *kernel.Error {
	h.lock.Acquire()
	h.dev = Device[P]{Info: reg.NewInfo(kind, name), Proto: proto}
	h.lock.Release()

	if drv, ok := any(proto).(Driver); ok {
		return drv.DriverInit(kfmt.Output())
	}
	return nil
}

// Info returns the identity of the device.
func (h *Handle[P]) Info() Info {
	return h.dev.Info
}

// Write implements io.Writer. The handle lock is held until every byte of p
// has been handed to the backend so output from concurrent writers is never
// interleaved within a single call.
func (h *Handle[P]) Write(p []byte) (int, error) {
	w, ok := any(h.dev.Proto).(ByteWriter)
	if !ok {
		return 0, errNotSupported
	}

	h.lock.Acquire()
	defer h.lock.Release()

	for _, b := range p {
		w.PutByte(&h.dev.Info, b)
	}
	return len(p), nil
}

// WriteString sends s to the device while holding the handle lock.
func (h *Handle[P]) WriteString(s string) *kernel.Error {
	w, ok := any(h.dev.Proto).(ByteWriter)
	if !ok {
		return errNotSupported
	}

	h.lock.Acquire()
	defer h.lock.Release()

	WriteString(w, &h.dev.Info, s)
	return nil
}

// Printf formats according to a kfmt format specifier and writes the output
// to the device. The whole formatted output is emitted with the handle lock
// held.
func (h *Handle[P]) Printf(format string, args ...interface{}) *kernel.Error {
	if _, ok := any(h.dev.Proto).(ByteWriter); !ok {
		return errNotSupported
	}

	h.lock.Acquire()
	defer h.lock.Release()

	kfmt.Fprintf(unlockedWriter[P]{h}, format, args...)
	return nil
}

// GetByte reads a single byte from the device.
func (h *Handle[P]) GetByte() (byte, *kernel.Error) {
	r, ok := any(h.dev.Proto).(ByteReader)
	if !ok {
		return 0, errNotSupported
	}

	h.lock.Acquire()
	defer h.lock.Release()

	return r.GetByte(&h.dev.Info), nil
}

// Ioctl passes a control request to the device.
func (h *Handle[P]) Ioctl(arg1, arg2, arg3 int32) *kernel.Error {
	c, ok := any(h.dev.Proto).(Ioctler)
	if !ok {
		return errNotSupported
	}

	h.lock.Acquire()
	defer h.lock.Release()

	c.Ioctl(&h.dev.Info, arg1, arg2, arg3)
	return nil
}

// Do runs fn with the handle lock held. It gives callers access to backend
// operations that are not covered by a capability interface.
func (h *Handle[P]) Do(fn func(dev *Device[P])) {
	h.lock.Acquire()
	defer h.lock.Release()

	fn(&h.dev)
}

// unlockedWriter feeds bytes to the backend of a handle whose lock is
// already held by the caller.
type unlockedWriter[P any] struct {
	h *Handle[P]
}

func (w unlockedWriter[P]) Write(p []byte) (int, error) {
	bw := any(w.h.dev.Proto).(ByteWriter)
	for _, b := range p {
		bw.PutByte(&w.h.dev.Info, b)
	}
	return len(p), nil
}
