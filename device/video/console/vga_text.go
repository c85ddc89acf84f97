// Package console implements the VGA text mode console. The console renders
// a byte stream into a grid of character cells that is mapped at a fixed
// physical address, scrolls when the grid is full and keeps the hardware
// cursor of the CRT controller in sync with its logical cursor.
package console

import (
	"image/color"
	"io"
	"unsafe"

	"tinykern/device"
	"tinykern/kernel"
	"tinykern/kernel/cpu"
	"tinykern/kernel/kfmt"
)

// Default text mode geometry and framebuffer location.
const (
	DefaultWidth  = 80
	DefaultHeight = 25

	DefaultFramebuffer = uintptr(0xB8000)
)

const (
	crtcIndexPort    = 0x3D4
	crtcDataPort     = 0x3D5
	crtcCursorHigh   = 0x0E
	crtcCursorLow    = 0x0F
	dacWriteIndex    = 0x3C8
	dacData          = 0x3C9
	tabWidth         = 4
	backspace        = 0x08
	blankChar        = ' '
	defaultAttribute = Attr(LightGrey)
)

var (
	errNoFramebuffer   = &kernel.Error{Module: "vga_text_console", Message: "framebuffer address not set"}
	errInvalidGeometry = &kernel.Error{Module: "vga_text_console", Message: "text grid has zero width or height"}
)

// Console implements an 80x25 (by default) VGA text console.
//
// The logical cursor is a (column, row) pair with column in [0, width] and
// row in [0, height). A column equal to width means that the current row is
// full; the next printable byte wraps to the following row.
type Console struct {
	width  uint32
	height uint32

	fbPhysAddr uintptr
	fb         []Cell

	ports cpu.Ports

	col  uint32
	row  uint32
	attr Attr

	palette [16]color.RGBA
}

// NewConsole returns a console with the given geometry whose grid lives at
// fbPhysAddr. If ports is nil the console talks to the real CRT controller.
func NewConsole(width, height uint32, fbPhysAddr uintptr, ports cpu.Ports) *Console {
	cons := &Console{}
	cons.Configure(width, height, fbPhysAddr, ports)
	return cons
}

// Configure sets up a statically allocated console. The grid is not touched
// until DriverInit runs.
func (cons *Console) Configure(width, height uint32, fbPhysAddr uintptr, ports cpu.Ports) {
	cons.width = width
	cons.height = height
	cons.fbPhysAddr = fbPhysAddr
	cons.fb = nil
	cons.ports = cpu.PortsOrHardware(ports)
	cons.col, cons.row = 0, 0
	cons.attr = defaultAttribute
	cons.palette = defaultPalette
}

// DriverName returns the name of this driver.
func (cons *Console) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *Console) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit overlays the cell grid on the framebuffer and clears it. There
// is no virtual memory so the framebuffer is accessed at its physical
// address.
func (cons *Console) DriverInit(w io.Writer) *kernel.Error {
	if cons.fbPhysAddr == 0 {
		return errNoFramebuffer
	}
	if cons.width == 0 || cons.height == 0 {
		return errInvalidGeometry
	}

	cons.fb = unsafe.Slice((*Cell)(unsafe.Pointer(cons.fbPhysAddr)), int(cons.width*cons.height))
	cons.Clear()

	kfmt.Fprintf(w, "%dx%d text grid at 0x%x\n", cons.width, cons.height, cons.fbPhysAddr)
	return nil
}

// PutByte implements device.ByteWriter.
func (cons *Console) PutByte(_ *device.Info, b byte) {
	cons.WriteByte(b)
}

// WriteByte renders b at the cursor position and advances the cursor. The
// bytes '\r', '\n', '\t' and backspace (0x08) are interpreted; every other
// byte is written to the grid as-is. The hardware cursor is synchronized
// after each byte.
func (cons *Console) WriteByte(b byte) error {
	switch b {
	case '\r':
		cons.col = 0
	case '\n':
		cons.newline()
	case '\t':
		for {
			cons.WriteByte(blankChar)
			if cons.col%tabWidth == 0 {
				break
			}
		}
	case backspace:
		// Row 0 can not be erased.
		if cons.row == 0 {
			break
		}

		if cons.col < cons.width {
			cons.fb[cons.offset(cons.col, cons.row)] = MakeCell(blankChar, cons.attr)
		}

		if cons.col == 0 {
			cons.col, cons.row = cons.width-1, cons.row-1
		} else {
			cons.col--
		}
	default:
		if cons.col >= cons.width {
			cons.newline()
		}
		cons.fb[cons.offset(cons.col, cons.row)] = MakeCell(b, cons.attr)
		cons.col++
	}

	cons.syncCursor()
	return nil
}

// Write implements io.Writer.
func (cons *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		cons.WriteByte(b)
	}
	return len(p), nil
}

// Scroll moves every row of the grid one row up and fills the bottom row
// with blank cells in the current color.
func (cons *Console) Scroll() {
	copy(cons.fb, cons.fb[cons.width:])

	blank := MakeCell(blankChar, cons.attr)
	for i := (cons.height - 1) * cons.width; i < cons.height*cons.width; i++ {
		cons.fb[i] = blank
	}
}

// Clear fills the grid with blank cells in the current color and moves the
// cursor to the top-left corner.
func (cons *Console) Clear() {
	cons.col, cons.row = 0, 0

	blank := MakeCell(blankChar, cons.attr)
	for i := range cons.fb {
		cons.fb[i] = blank
	}

	cons.syncCursor()
}

// SetColor selects the attribute used for subsequently written cells.
func (cons *Console) SetColor(attr Attr) {
	cons.attr = attr
}

// Color returns the attribute used for newly written cells.
func (cons *Console) Color() Attr {
	return cons.attr
}

// Position returns the logical cursor location.
func (cons *Console) Position() (col, row uint32) {
	return cons.col, cons.row
}

// Dimensions returns the console width and height in characters.
func (cons *Console) Dimensions() (width, height uint32) {
	return cons.width, cons.height
}

// Cell returns the contents of the cell at (col, row). Out of range
// coordinates yield a zero Cell.
func (cons *Console) Cell(col, row uint32) Cell {
	if col >= cons.width || row >= cons.height || cons.fb == nil {
		return 0
	}
	return cons.fb[cons.offset(col, row)]
}

// Palette returns the RGB values of the 16 console colors.
func (cons *Console) Palette() color.Palette {
	pal := make(color.Palette, len(cons.palette))
	for i, c := range cons.palette {
		pal[i] = c
	}
	return pal
}

// SetPaletteColor updates the color definition for the specified palette
// index and loads it into the DAC. Indices outside the palette are ignored.
func (cons *Console) SetPaletteColor(c Color, rgba color.RGBA) {
	if int(c) >= len(cons.palette) {
		return
	}

	cons.palette[c] = rgba

	// The DAC expects 6-bit color components.
	cons.ports.WritePort(dacWriteIndex, uint8(c))
	cons.ports.WritePort(dacData, rgba.R>>2)
	cons.ports.WritePort(dacData, rgba.G>>2)
	cons.ports.WritePort(dacData, rgba.B>>2)
}

func (cons *Console) newline() {
	cons.col = 0
	if cons.row < cons.height-1 {
		cons.row++
		return
	}
	cons.Scroll()
}

// syncCursor programs the CRT controller cursor location registers with the
// linear offset of the logical cursor.
func (cons *Console) syncCursor() {
	off := cons.offset(cons.col, cons.row)

	cons.ports.WritePort(crtcIndexPort, crtcCursorHigh)
	cons.ports.WritePort(crtcDataPort, uint8(off>>8))
	cons.ports.WritePort(crtcIndexPort, crtcCursorLow)
	cons.ports.WritePort(crtcDataPort, uint8(off))
}

func (cons *Console) offset(col, row uint32) uint32 {
	return row*cons.width + col
}
