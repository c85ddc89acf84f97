// Package hal brings up the devices the kernel core depends on: the serial
// port that carries the kernel log and the VGA text console. Device drivers
// live in statically allocated storage so bring-up works before the heap is
// initialized.
package hal

import (
	"tinykern/device"
	"tinykern/device/serial"
	"tinykern/device/video/console"
	"tinykern/kernel"
	"tinykern/kernel/cpu"
	"tinykern/kernel/hal/multiboot"
	"tinykern/kernel/kfmt"
	"tinykern/kernel/klog"
)

var (
	log = klog.New("hal")
)

// Devices holds the published devices.
type Devices struct {
	Registry device.Registry

	// Serial is the UART selected by Config.SerialPort.
	Serial device.Handle[*serial.Serial]

	// Console is the text console. It is only usable if ConsoleReady
	// returns true.
	Console device.Handle[*console.Console]

	serialDrv  serial.Serial
	consoleDrv console.Console

	serialReady  bool
	consoleReady bool
	target       LogTarget
}

// Probe initializes the serial port and the console, publishes them in the
// device registry and routes kfmt output according to cfg.LogTarget. A
// console that fails to initialize is reported and skipped; log output
// that targets it falls back to the serial port.
//
// If ports is nil the drivers use the in/out instructions.
func (d *Devices) Probe(cfg Config, ports cpu.Ports) *kernel.Error {
	klog.SetDebug(cfg.HeapDebug)

	d.serialDrv.Configure(cfg.SerialPort, ports)
	if err := d.Serial.Init(&d.Registry, device.KindChars, "serial", &d.serialDrv); err != nil {
		return err
	}
	d.serialReady = true
	logDriverInit(&d.serialDrv, nil)

	width, height, fb := consoleGeometry()
	d.consoleDrv.Configure(width, height, fb, ports)
	d.consoleDrv.SetColor(cfg.ConsoleColor)
	err := d.Console.Init(&d.Registry, device.KindChars, "console", &d.consoleDrv)
	d.consoleReady = err == nil
	logDriverInit(&d.consoleDrv, err)

	d.target = cfg.LogTarget
	if d.target == LogConsole && !d.consoleReady {
		d.target = LogSerial
	}

	if d.target == LogOff {
		kfmt.SetOutputSink(discard{})
	} else {
		kfmt.SetOutputSink(logSink{d})
	}

	return nil
}

// ConsoleReady returns true if the console was successfully initialized.
func (d *Devices) ConsoleReady() bool {
	return d.consoleReady
}

// LogTarget returns the devices that currently receive kfmt output.
func (d *Devices) LogTarget() LogTarget {
	return d.target
}

// consoleGeometry returns the text grid reported by the boot loader or the
// standard VGA text mode defaults when the loader did not set up an EGA
// text framebuffer.
func consoleGeometry() (width, height uint32, fb uintptr) {
	info := multiboot.GetFramebufferInfo()
	if info == nil || info.Type != multiboot.FramebufferTypeEGA {
		return console.DefaultWidth, console.DefaultHeight, console.DefaultFramebuffer
	}

	return info.Width, info.Height, uintptr(info.PhysAddr)
}

func logDriverInit(drv device.Driver, err *kernel.Error) {
	major, minor, patch := drv.DriverVersion()
	if err != nil {
		log.Printf("%s(%d.%d.%d): init failed: %s", drv.DriverName(), major, minor, patch, err.Message)
		return
	}
	log.Printf("%s(%d.%d.%d): initialized", drv.DriverName(), major, minor, patch)
}

// logSink fans kfmt output out to the devices selected by the log target.
type logSink struct {
	d *Devices
}

func (s logSink) Write(p []byte) (int, error) {
	switch s.d.target {
	case LogConsole:
		return s.d.Console.Write(p)
	case LogBoth:
		if s.d.consoleReady {
			s.d.Console.Write(p)
		}
	}
	return s.d.Serial.Write(p)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) {
	return len(p), nil
}
