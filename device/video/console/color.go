package console

import "image/color"

// Color is an index into the fixed 16-entry text mode palette.
type Color uint8

// The text mode palette.
const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// Attr packs a foreground and a background Color into the attribute byte of
// a text mode cell.
type Attr uint8

// MakeColor returns the attribute byte for the given foreground and
// background colors.
func MakeColor(fg, bg Color) Attr {
	return Attr(bg)<<4 | Attr(fg)
}

// Foreground returns the foreground color encoded in a.
func (a Attr) Foreground() Color {
	return Color(a & 0xf)
}

// Background returns the background color encoded in a.
func (a Attr) Background() Color {
	return Color(a >> 4)
}

// Cell is a text mode character cell: the attribute byte in the high 8 bits
// and the character code in the low 8 bits.
type Cell uint16

// MakeCell returns the cell that displays ch using attr.
func MakeCell(ch byte, attr Attr) Cell {
	return Cell(attr)<<8 | Cell(ch)
}

// Char returns the character code stored in c.
func (c Cell) Char() byte {
	return byte(c)
}

// Attr returns the attribute byte stored in c.
func (c Cell) Attr() Attr {
	return Attr(c >> 8)
}

// defaultPalette holds the RGB values of the 16 text mode colors.
var defaultPalette = [16]color.RGBA{
	{R: 0, G: 0, B: 0, A: 255},       /* black */
	{R: 0, G: 0, B: 128, A: 255},     /* blue */
	{R: 0, G: 128, B: 0, A: 255},     /* green */
	{R: 0, G: 128, B: 128, A: 255},   /* cyan */
	{R: 128, G: 0, B: 0, A: 255},     /* red */
	{R: 128, G: 0, B: 128, A: 255},   /* magenta */
	{R: 128, G: 64, B: 0, A: 255},    /* brown */
	{R: 192, G: 192, B: 192, A: 255}, /* light grey */
	{R: 64, G: 64, B: 64, A: 255},    /* dark grey */
	{R: 0, G: 0, B: 255, A: 255},     /* light blue */
	{R: 0, G: 255, B: 0, A: 255},     /* light green */
	{R: 0, G: 255, B: 255, A: 255},   /* light cyan */
	{R: 255, G: 0, B: 0, A: 255},     /* light red */
	{R: 255, G: 0, B: 255, A: 255},   /* light magenta */
	{R: 255, G: 255, B: 0, A: 255},   /* yellow */
	{R: 255, G: 255, B: 255, A: 255}, /* white */
}
