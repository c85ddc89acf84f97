package hostsim

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fogleman/gg"
	"golang.org/x/text/encoding/charmap"

	"tinykern/device/video/console"
)

// Size of a rendered character cell in pixels. It matches the 9x16 glyph
// box of the standard VGA text mode.
const (
	CellWidth  = 9
	CellHeight = 16
)

// RenderPNG draws the text grid of cons using its palette and writes the
// result to w as a PNG image.
func RenderPNG(w io.Writer, cons *console.Console) error {
	cols, rows := cons.Dimensions()
	if cols == 0 || rows == 0 {
		return errors.New("console has no cells")
	}

	dc := gg.NewContext(int(cols)*CellWidth, int(rows)*CellHeight)
	palette := cons.Palette()

	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			cell := cons.Cell(col, row)
			attr := cell.Attr()
			x, y := float64(col*CellWidth), float64(row*CellHeight)

			dc.SetColor(palette[attr.Background()])
			dc.DrawRectangle(x, y, CellWidth, CellHeight)
			dc.Fill()

			ch := cell.Char()
			if ch == 0 || ch == ' ' {
				continue
			}

			dc.SetColor(palette[attr.Foreground()])
			dc.DrawStringAnchored(string(charmap.CodePage437.DecodeByte(ch)), x+CellWidth/2, y+CellHeight/2, 0.5, 0.5)
		}
	}

	return errors.Wrap(dc.EncodePNG(w), "encode screenshot")
}
