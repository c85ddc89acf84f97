package console

import "golang.org/x/text/encoding/charmap"

// unknownGlyph is rendered for runes that have no code page 437 glyph.
const unknownGlyph = '?'

// WriteRune renders r using its code page 437 glyph. Runes without a glyph
// are rendered as '?'.
func (cons *Console) WriteRune(r rune) (int, error) {
	b, ok := charmap.CodePage437.EncodeRune(r)
	if !ok {
		b = unknownGlyph
	}

	cons.WriteByte(b)
	return 1, nil
}

// WriteText renders each rune of the UTF-8 encoded string s via WriteRune.
func (cons *Console) WriteText(s string) {
	for _, r := range s {
		cons.WriteRune(r)
	}
}

// DecodeRow returns the contents of the requested grid row as a UTF-8 string
// of width runes. Character codes are decoded using code page 437.
func (cons *Console) DecodeRow(row uint32) string {
	if row >= cons.height || cons.fb == nil {
		return ""
	}

	runes := make([]rune, cons.width)
	for col := uint32(0); col < cons.width; col++ {
		runes[col] = charmap.CodePage437.DecodeByte(cons.fb[cons.offset(col, row)].Char())
	}
	return string(runes)
}
