package hostsim

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"tinykern/device"
	"tinykern/device/serial"
	"tinykern/device/video/console"
	"tinykern/kernel/hal/multiboot"
	"tinykern/kernel/kfmt"
	"tinykern/kernel/kmain"
)

// Layout of the emulated memory. The area below KernelOffset is reported as
// reserved; the kernel image and the heap arena follow it.
const (
	BootInfoOffset    = 0x1000
	FramebufferOffset = 0x8000
	KernelOffset      = 0x10000

	bootInfoLimit = FramebufferOffset - BootInfoOffset
)

// Defaults applied by NewMachine to zero Config fields.
const (
	DefaultMemorySize = 1 << 20
	DefaultKernelSize = 0x3000
	BootLoaderName    = "kernsim"
)

// bootLock serializes boots. The boot information pointer and the kfmt
// output sink are process-wide so only one machine can run the kernel core
// at a time.
var bootLock sync.Mutex

// Config describes the emulated machine.
type Config struct {
	// CmdLine is passed to the kernel through the boot information.
	CmdLine string

	// MemorySize is the amount of emulated RAM in bytes.
	MemorySize int

	// KernelSize is the size of the pretend kernel image placed at
	// KernelOffset. The heap arena starts right after it.
	KernelSize uintptr

	// BusyPolls is the number of line status polls the UART reports as busy
	// after each transmitted byte.
	BusyPolls int
}

// Machine is an emulated PC that runs the kernel boot sequence.
type Machine struct {
	Bus       *PortBus
	UART      *UART16550
	CRTC      *CRTC
	DAC       *DAC
	MasterPIC *PIC8259
	SlavePIC  *PIC8259
	Memory    *Memory

	// Kernel is the state of the kernel core after Boot.
	Kernel kmain.Kernel

	cfg    Config
	serial bytes.Buffer
	booted bool
	halted bool
}

// NewMachine maps the emulated memory, attaches the emulated devices to the
// port bus and writes the boot information structure.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.KernelSize == 0 {
		cfg.KernelSize = DefaultKernelSize
	}
	if uintptr(cfg.MemorySize) <= KernelOffset+cfg.KernelSize {
		return nil, errors.Newf("memory size %d leaves no room for the kernel image and heap", cfg.MemorySize)
	}

	mem, err := NewMemory(cfg.MemorySize)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Bus:       NewPortBus(),
		CRTC:      &CRTC{},
		DAC:       &DAC{},
		MasterPIC: NewPIC8259(PICMasterCmd),
		SlavePIC:  NewPIC8259(PICSlaveCmd),
		Memory:    mem,
		cfg:       cfg,
	}

	port := serial.COM1
	if value, ok := cmdLineValue(cfg.CmdLine, "serial"); ok {
		if p, err := serial.PortByName(value); err == nil {
			port = p
		}
	}

	m.UART = NewUART16550(port, &m.serial)
	m.UART.BusyPolls = cfg.BusyPolls
	m.UART.Attach(m.Bus)
	m.CRTC.Attach(m.Bus)
	m.DAC.Attach(m.Bus)
	m.MasterPIC.Attach(m.Bus)
	m.SlavePIC.Attach(m.Bus)

	if err := m.writeBootInfo(); err != nil {
		mem.Close()
		return nil, err
	}

	return m, nil
}

// KernelExtents returns the addresses of the pretend kernel image.
func (m *Machine) KernelExtents() (start, end uintptr) {
	start = m.Memory.Base() + KernelOffset
	return start, start + m.cfg.KernelSize
}

// Boot runs the kernel boot sequence. Output produced before Boot returns
// is available through SerialOutput.
func (m *Machine) Boot() error {
	if m.booted {
		return errors.New("machine already booted")
	}

	bootLock.Lock()
	defer bootLock.Unlock()

	// Drop anything left in the early print buffer by a previous boot.
	kfmt.SetOutputSink(io.Discard)
	kfmt.SetOutputSink(nil)

	multiboot.SetInfoPtr(m.Memory.Base() + BootInfoOffset)
	kfmt.SetHaltHandler(m.halt)

	start, end := m.KernelExtents()
	if kerr := m.Kernel.Boot(m.Bus, start, end); kerr != nil {
		return errors.Wrapf(kerr, "boot kernel (module %s)", kerr.Module)
	}

	m.booted = true
	return nil
}

// Close detaches the kernel from the process-wide output hooks and unmaps
// the emulated memory.
func (m *Machine) Close() error {
	bootLock.Lock()
	kfmt.SetOutputSink(nil)
	kfmt.SetHaltHandler(nil)
	multiboot.SetInfoPtr(0)
	bootLock.Unlock()

	return m.Memory.Close()
}

// Halted reports whether the kernel has panicked and halted the CPU.
func (m *Machine) Halted() bool {
	return m.halted
}

func (m *Machine) halt() {
	m.halted = true
}

// SerialOutput returns everything the UART has transmitted so far.
func (m *Machine) SerialOutput() string {
	return m.serial.String()
}

// Screen returns the rows of the text console with trailing blanks removed.
func (m *Machine) Screen() []string {
	var rows []string

	m.withConsole(func(cons *console.Console) {
		_, height := cons.Dimensions()
		for row := uint32(0); row < height; row++ {
			rows = append(rows, strings.TrimRight(cons.DecodeRow(row), " "))
		}
	})

	return rows
}

// Cursor returns the hardware cursor location as programmed into the CRT
// controller.
func (m *Machine) Cursor() (col, row uint32) {
	off := uint32(m.CRTC.CursorOffset())
	return off % console.DefaultWidth, off / console.DefaultWidth
}

// Screenshot renders the console as a PNG image.
func (m *Machine) Screenshot(w io.Writer) error {
	if !m.booted {
		return errors.New("machine not booted")
	}

	var err error
	m.withConsole(func(cons *console.Console) {
		err = RenderPNG(w, cons)
	})
	return err
}

func (m *Machine) withConsole(fn func(*console.Console)) {
	if !m.booted || !m.Kernel.Devices.ConsoleReady() {
		return
	}

	m.Kernel.Devices.Console.Do(func(dev *device.Device[*console.Console]) {
		fn(dev.Proto)
	})
}

func (m *Machine) writeBootInfo() error {
	base := uint64(m.Memory.Base())
	size := uint64(m.Memory.Size())

	info := (&multiboot.Builder{}).
		CmdLine(m.cfg.CmdLine).
		BootLoaderName(BootLoaderName).
		MemoryMap(
			multiboot.MemoryMapEntry{PhysAddress: base, Length: KernelOffset, Type: multiboot.MemReserved},
			multiboot.MemoryMapEntry{PhysAddress: base + KernelOffset, Length: size - KernelOffset, Type: multiboot.MemAvailable},
		).
		Framebuffer(multiboot.FramebufferInfo{
			PhysAddr: base + FramebufferOffset,
			Pitch:    console.DefaultWidth * 2,
			Width:    console.DefaultWidth,
			Height:   console.DefaultHeight,
			Bpp:      16,
			Type:     multiboot.FramebufferTypeEGA,
		}).
		Bytes()

	if len(info) > bootInfoLimit {
		return errors.Newf("boot information needs %d bytes; only %d available", len(info), bootInfoLimit)
	}

	copy(m.Memory.Bytes()[BootInfoOffset:], info)
	return nil
}

// cmdLineValue looks up key in a space separated key=value list.
func cmdLineValue(cmdLine, key string) (string, bool) {
	for _, field := range strings.Fields(cmdLine) {
		k, v, found := strings.Cut(field, "=")
		if found && k == key {
			return v, true
		}
	}
	return "", false
}
