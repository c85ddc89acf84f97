package hostsim

import (
	"io"
	"sync"
)

const (
	uartData       = 0
	uartIntEnable  = 1
	uartFIFOCtrl   = 2
	uartLineCtrl   = 3
	uartModemCtrl  = 4
	uartLineStatus = 5
	uartScratch    = 7

	lcrDLAB = 0x80

	lsrTHRE = 0x20
	lsrTEMT = 0x40
)

// UART16550 models the transmit side of a 16550 UART. Bytes written to the
// transmit holding register are forwarded to the output writer.
type UART16550 struct {
	mu sync.Mutex

	base uint16
	out  io.Writer

	// BusyPolls is the number of line status reads that report a full
	// transmit holding register after each transmitted byte.
	BusyPolls int
	busy      int

	divisor   uint16
	intEnable uint8
	fifoCtrl  uint8
	lineCtrl  uint8
	modemCtrl uint8
	scratch   uint8
}

// NewUART16550 returns a UART decoding the eight ports starting at base.
func NewUART16550(base uint16, out io.Writer) *UART16550 {
	return &UART16550{base: base, out: out}
}

// Attach connects the UART registers to bus.
func (u *UART16550) Attach(bus *PortBus) {
	ports := make([]uint16, 8)
	for i := range ports {
		ports[i] = u.base + uint16(i)
	}
	bus.Attach(u, ports...)
}

// ReadPort implements PortDevice.
func (u *UART16550) ReadPort(port uint16) uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.base {
	case uartData:
		if u.dlab() {
			return uint8(u.divisor)
		}
		return 0
	case uartIntEnable:
		if u.dlab() {
			return uint8(u.divisor >> 8)
		}
		return u.intEnable
	case uartLineCtrl:
		return u.lineCtrl
	case uartModemCtrl:
		return u.modemCtrl
	case uartLineStatus:
		if u.busy > 0 {
			u.busy--
			return 0
		}
		return lsrTHRE | lsrTEMT
	case uartScratch:
		return u.scratch
	default:
		return 0
	}
}

// WritePort implements PortDevice.
func (u *UART16550) WritePort(port uint16, val uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.base {
	case uartData:
		if u.dlab() {
			u.divisor = u.divisor&0xFF00 | uint16(val)
			return
		}
		if u.out != nil {
			u.out.Write([]byte{val})
		}
		u.busy = u.BusyPolls
	case uartIntEnable:
		if u.dlab() {
			u.divisor = u.divisor&0x00FF | uint16(val)<<8
			return
		}
		u.intEnable = val
	case uartFIFOCtrl:
		u.fifoCtrl = val
	case uartLineCtrl:
		u.lineCtrl = val
	case uartModemCtrl:
		u.modemCtrl = val
	case uartScratch:
		u.scratch = val
	}
}

// Baud returns the configured baud rate or 0 if the divisor is unset.
func (u *UART16550) Baud() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.divisor == 0 {
		return 0
	}
	return 115200 / int(u.divisor)
}

// Framing returns the line settings in the usual "8N1" notation.
func (u *UART16550) Framing() string {
	u.mu.Lock()
	defer u.mu.Unlock()

	dataBits := byte('5' + u.lineCtrl&0x03)

	parity := byte('N')
	if u.lineCtrl&0x08 != 0 {
		switch (u.lineCtrl >> 4) & 0x03 {
		case 0:
			parity = 'O'
		case 1:
			parity = 'E'
		case 2:
			parity = 'M'
		case 3:
			parity = 'S'
		}
	}

	stopBits := byte('1')
	if u.lineCtrl&0x04 != 0 {
		stopBits = '2'
	}

	return string([]byte{dataBits, parity, stopBits})
}

// InterruptsEnabled reports whether any UART interrupt source is enabled.
func (u *UART16550) InterruptsEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.intEnable != 0
}

// FIFOControl returns the last value written to the FIFO control register.
func (u *UART16550) FIFOControl() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.fifoCtrl
}

func (u *UART16550) dlab() bool {
	return u.lineCtrl&lcrDLAB != 0
}
