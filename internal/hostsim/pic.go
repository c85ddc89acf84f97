package hostsim

import "sync"

// PIC ports.
const (
	PICMasterCmd  = 0x20
	PICMasterData = 0x21
	PICSlaveCmd   = 0xA0
	PICSlaveData  = 0xA1
	IOWaitPort    = 0x80
)

const icw1Init = 0x10

// PIC8259 models the initialization sequence of one 8259 interrupt
// controller.
type PIC8259 struct {
	mu sync.Mutex

	cmdPort uint16

	// step is the index of the next expected ICW; 0 when not initializing.
	step     int
	needICW4 bool

	offset  uint8
	cascade uint8
	mode    uint8
	mask    uint8
	inits   int
}

// NewPIC8259 returns a controller decoding cmdPort and cmdPort+1.
func NewPIC8259(cmdPort uint16) *PIC8259 {
	return &PIC8259{cmdPort: cmdPort, mask: 0xFF}
}

// Attach connects the controller registers to bus.
func (p *PIC8259) Attach(bus *PortBus) {
	bus.Attach(p, p.cmdPort, p.cmdPort+1)
}

// ReadPort implements PortDevice.
func (p *PIC8259) ReadPort(port uint16) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port == p.cmdPort+1 {
		return p.mask
	}
	return 0
}

// WritePort implements PortDevice.
func (p *PIC8259) WritePort(port uint16, val uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port == p.cmdPort {
		if val&icw1Init != 0 {
			p.step, p.needICW4 = 2, val&0x01 != 0
			p.inits++
		}
		return
	}

	switch p.step {
	case 2:
		p.offset, p.step = val, 3
	case 3:
		p.cascade, p.step = val, 0
		if p.needICW4 {
			p.step = 4
		}
	case 4:
		p.mode, p.step = val, 0
	default:
		p.mask = val
	}
}

// Offset returns the vector offset programmed with ICW2.
func (p *PIC8259) Offset() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.offset
}

// Cascade returns the value programmed with ICW3.
func (p *PIC8259) Cascade() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cascade
}

// Mode returns the value programmed with ICW4.
func (p *PIC8259) Mode() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.mode
}

// Mask returns the interrupt mask register.
func (p *PIC8259) Mask() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.mask
}

// Initialized reports whether a complete initialization sequence was
// received.
func (p *PIC8259) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inits > 0 && p.step == 0
}
