// Package serial implements a polling driver for 16550 compatible UARTs.
// The driver only transmits; there is no receive path and interrupts stay
// disabled.
package serial

import (
	"io"

	"tinykern/device"
	"tinykern/kernel"
	"tinykern/kernel/cpu"
	"tinykern/kernel/kfmt"
)

// Base I/O ports of the four standard serial ports.
const (
	COM1 uint16 = 0x3F8
	COM2 uint16 = 0x2F8
	COM3 uint16 = 0x3E8
	COM4 uint16 = 0x2E8
)

// Register offsets relative to the port base.
const (
	regData       = 0
	regIntEnable  = 1
	regFIFOCtrl   = 2
	regLineCtrl   = 3
	regModemCtrl  = 4
	regLineStatus = 5
)

// Values programmed by DriverInit.
const (
	lineCtrlDLAB    = 0x80
	lineCtrl8N1     = 0x03
	divisorLow38400 = 0x03
	divisorHigh     = 0x00
	fifoEnable14    = 0xC7
	modemDTRRTS     = 0x03

	// lineStatusTHRE is set while the transmit holding register is empty.
	lineStatusTHRE = 0x20
)

var (
	errUnknownPort = &kernel.Error{Module: "serial", Message: "unknown serial port"}
)

// Serial drives a single UART.
type Serial struct {
	port  uint16
	ports cpu.Ports
}

// NewSerial returns a driver for the UART at the given base port. If ports
// is nil the driver uses the in/out instructions.
func NewSerial(port uint16, ports cpu.Ports) *Serial {
	s := &Serial{}
	s.Configure(port, ports)
	return s
}

// Configure sets up a statically allocated driver. The UART is programmed
// by DriverInit.
func (s *Serial) Configure(port uint16, ports cpu.Ports) {
	s.port = port
	s.ports = cpu.PortsOrHardware(ports)
}

// Port returns the base I/O port of the UART.
func (s *Serial) Port() uint16 {
	return s.port
}

// PortByName maps "com1" to "com4" to the matching base port.
func PortByName(name string) (uint16, *kernel.Error) {
	switch name {
	case "com1", "COM1":
		return COM1, nil
	case "com2", "COM2":
		return COM2, nil
	case "com3", "COM3":
		return COM3, nil
	case "com4", "COM4":
		return COM4, nil
	default:
		return 0, errUnknownPort
	}
}

// DriverName returns the name of this driver.
func (s *Serial) DriverName() string {
	return "serial_16550"
}

// DriverVersion returns the version of this driver.
func (s *Serial) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit disables UART interrupts, sets the baud rate divisor to 3
// (38400 baud), selects 8-N-1 framing, enables the FIFOs and raises DTR/RTS.
func (s *Serial) DriverInit(w io.Writer) *kernel.Error {
	s.ports.WritePort(s.port+regIntEnable, 0x00)
	s.ports.WritePort(s.port+regLineCtrl, lineCtrlDLAB)
	s.ports.WritePort(s.port+regData, divisorLow38400)
	s.ports.WritePort(s.port+regIntEnable, divisorHigh)
	s.ports.WritePort(s.port+regLineCtrl, lineCtrl8N1)
	s.ports.WritePort(s.port+regFIFOCtrl, fifoEnable14)
	s.ports.WritePort(s.port+regModemCtrl, modemDTRRTS)

	kfmt.Fprintf(w, "uart at port 0x%x: 38400 8N1\n", s.port)
	return nil
}

// PutByte implements device.ByteWriter.
func (s *Serial) PutByte(_ *device.Info, b byte) {
	s.WriteByte(b)
}

// WriteByte busy-waits until the transmit holding register is empty and
// then hands b to the UART.
func (s *Serial) WriteByte(b byte) error {
	for s.ports.ReadPort(s.port+regLineStatus)&lineStatusTHRE == 0 {
	}

	s.ports.WritePort(s.port+regData, b)
	return nil
}

// Write implements io.Writer.
func (s *Serial) Write(p []byte) (int, error) {
	for _, b := range p {
		s.WriteByte(b)
	}
	return len(p), nil
}
