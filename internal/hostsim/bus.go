// Package hostsim emulates the small slice of a PC that the kernel core
// touches: the I/O port space with a 16550 UART, the CRT controller and the
// interrupt controllers, plus a block of memory that stands in for physical
// RAM. It lets the boot sequence run as an ordinary process.
package hostsim

import "sync"

// PortDevice is implemented by emulated devices that decode accesses to one
// or more I/O ports.
type PortDevice interface {
	ReadPort(port uint16) uint8
	WritePort(port uint16, val uint8)
}

// PortAccess records a single port read or write.
type PortAccess struct {
	Write bool
	Port  uint16
	Value uint8
}

// PortBus routes port accesses to the attached devices. Reads from ports
// with no attached device return 0xFF as on an idle ISA bus; writes to them
// are dropped. Every access is recorded when tracing is enabled.
type PortBus struct {
	mu      sync.Mutex
	devices map[uint16]PortDevice
	tracing bool
	trace   []PortAccess
}

// NewPortBus returns an empty bus.
func NewPortBus() *PortBus {
	return &PortBus{devices: make(map[uint16]PortDevice)}
}

// Attach routes accesses to the listed ports to dev.
func (b *PortBus) Attach(dev PortDevice, ports ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, port := range ports {
		b.devices[port] = dev
	}
}

// SetTracing enables or disables access recording. Enabling tracing
// discards any previously recorded accesses.
func (b *PortBus) SetTracing(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tracing = enabled
	b.trace = nil
}

// Trace returns a copy of the recorded accesses.
func (b *PortBus) Trace() []PortAccess {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]PortAccess(nil), b.trace...)
}

// ReadPort implements cpu.Ports.
func (b *PortBus) ReadPort(port uint16) uint8 {
	b.mu.Lock()
	dev := b.devices[port]
	b.mu.Unlock()

	val := uint8(0xFF)
	if dev != nil {
		val = dev.ReadPort(port)
	}

	b.record(PortAccess{Port: port, Value: val})
	return val
}

// WritePort implements cpu.Ports.
func (b *PortBus) WritePort(port uint16, val uint8) {
	b.mu.Lock()
	dev := b.devices[port]
	b.mu.Unlock()

	if dev != nil {
		dev.WritePort(port, val)
	}

	b.record(PortAccess{Write: true, Port: port, Value: val})
}

func (b *PortBus) record(access PortAccess) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tracing {
		b.trace = append(b.trace, access)
	}
}
