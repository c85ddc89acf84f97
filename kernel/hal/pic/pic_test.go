package pic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type portWrite struct {
	port uint16
	val  uint8
}

type recorder struct {
	writes []portWrite
}

func (r *recorder) WritePort(port uint16, val uint8) { r.writes = append(r.writes, portWrite{port, val}) }
func (r *recorder) ReadPort(uint16) uint8            { return 0 }

func TestRemap(t *testing.T) {
	var rec recorder
	Remap(&rec)

	exp := []portWrite{
		{0x20, 0x11}, {0x21, 0x20}, {0x21, 0x04}, {0x21, 0x01},
		{0xA0, 0x11}, {0xA1, 0x28}, {0xA1, 0x02}, {0xA1, 0x01},
		{0x21, 0x00}, {0xA1, 0x00},
	}

	var got []portWrite
	for i, w := range rec.writes {
		if i%2 == 1 {
			assert.Equal(t, portWrite{0x80, 0}, w, "[write %d] expected an I/O wait after each command", i)
			continue
		}
		got = append(got, w)
	}

	assert.Equal(t, exp, got)
}
