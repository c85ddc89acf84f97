// Package cpu exposes the handful of privileged instructions the kernel core
// needs: halting and single-byte port I/O.
package cpu

// Ports is implemented by objects that provide access to the 16-bit I/O port
// address space. Drivers receive a Ports value instead of calling the port
// instructions directly so that tests and the hosted emulator can observe
// and answer port accesses.
type Ports interface {
	// WritePort writes val to the given port.
	WritePort(port uint16, val uint8)

	// ReadPort reads a byte from the given port.
	ReadPort(port uint16) uint8
}

// HardwarePorts implements Ports using the in/out CPU instructions.
type HardwarePorts struct{}

// WritePort implements Ports.
func (HardwarePorts) WritePort(port uint16, val uint8) { PortWriteByte(port, val) }

// ReadPort implements Ports.
func (HardwarePorts) ReadPort(port uint16) uint8 { return PortReadByte(port) }

// PortsOrHardware returns p or, if p is nil, a HardwarePorts value.
func PortsOrHardware(p Ports) Ports {
	if p == nil {
		return HardwarePorts{}
	}
	return p
}
