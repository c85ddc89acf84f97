package hostsim

import (
	"image/color"
	"sync"
)

// VGA register ports.
const (
	CRTCIndexPort = 0x3D4
	CRTCDataPort  = 0x3D5
	DACWriteIndex = 0x3C8
	DACDataPort   = 0x3C9
)

const (
	crtcCursorHigh = 0x0E
	crtcCursorLow  = 0x0F
)

// CRTC models the index/data register pair of the CRT controller.
type CRTC struct {
	mu    sync.Mutex
	index uint8
	regs  [256]uint8
}

// Attach connects the controller registers to bus.
func (c *CRTC) Attach(bus *PortBus) {
	bus.Attach(c, CRTCIndexPort, CRTCDataPort)
}

// ReadPort implements PortDevice.
func (c *CRTC) ReadPort(port uint16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if port == CRTCIndexPort {
		return c.index
	}
	return c.regs[c.index]
}

// WritePort implements PortDevice.
func (c *CRTC) WritePort(port uint16, val uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if port == CRTCIndexPort {
		c.index = val
		return
	}
	c.regs[c.index] = val
}

// CursorOffset returns the linear cursor location programmed into the
// cursor location registers.
func (c *CRTC) CursorOffset() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return uint16(c.regs[crtcCursorHigh])<<8 | uint16(c.regs[crtcCursorLow])
}

// DAC models the write side of the VGA palette DAC. Colors are written as
// three 6-bit components after selecting an index.
type DAC struct {
	mu        sync.Mutex
	index     uint8
	component int
	pending   [3]uint8
	entries   map[uint8]color.RGBA
}

// Attach connects the DAC registers to bus.
func (d *DAC) Attach(bus *PortBus) {
	bus.Attach(d, DACWriteIndex, DACDataPort)
}

// ReadPort implements PortDevice.
func (d *DAC) ReadPort(uint16) uint8 {
	return 0
}

// WritePort implements PortDevice.
func (d *DAC) WritePort(port uint16, val uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if port == DACWriteIndex {
		d.index, d.component = val, 0
		return
	}

	d.pending[d.component] = val & 0x3F
	d.component++
	if d.component < 3 {
		return
	}

	if d.entries == nil {
		d.entries = make(map[uint8]color.RGBA)
	}
	d.entries[d.index] = color.RGBA{R: d.pending[0] << 2, G: d.pending[1] << 2, B: d.pending[2] << 2, A: 0xFF}
	d.index++
	d.component = 0
}

// Entry returns the color loaded into the given palette index.
func (d *DAC) Entry(index uint8) (color.RGBA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.entries[index]
	return c, ok
}
