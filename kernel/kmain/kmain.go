// Package kmain contains the kernel entry point and the boot sequence that
// brings the runtime core up: interrupt controller remap, device probe and
// heap initialization.
package kmain

import (
	"tinykern/device"
	"tinykern/device/video/console"
	"tinykern/kernel"
	"tinykern/kernel/cpu"
	"tinykern/kernel/hal"
	"tinykern/kernel/hal/multiboot"
	"tinykern/kernel/hal/pic"
	"tinykern/kernel/kfmt"
	"tinykern/kernel/klog"
	"tinykern/kernel/mem/heap"
)

const banner = "Hello, world!\n"

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// bootPorts is the port space used by Kmain. A nil value selects the
	// in/out instructions; tests substitute a recorder.
	bootPorts cpu.Ports

	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	// kern is statically allocated since Kmain runs before the heap exists.
	kern Kernel

	log = klog.New("kmain")
)

// Kernel groups the state of the runtime core once it has booted.
type Kernel struct {
	Config  hal.Config
	Devices hal.Devices
	Heap    heap.Allocator
}

// Boot runs the boot sequence against the boot information installed via
// multiboot.SetInfoPtr. The heap arena starts right after kernelEnd and
// extends to the end of the available memory region that contains it.
func (k *Kernel) Boot(ports cpu.Ports, kernelStart, kernelEnd uintptr) *kernel.Error {
	pic.Remap(ports)

	k.Config = hal.ParseBootConfig()
	if err := k.Devices.Probe(k.Config, ports); err != nil {
		return err
	}

	if k.Devices.ConsoleReady() {
		k.Devices.Console.Do(func(dev *device.Device[*console.Console]) {
			dev.Proto.Clear()
			dev.Proto.Write([]byte(banner))
		})
	}

	if name := multiboot.GetBootLoaderName(); name != "" {
		log.Printf("booted by %s", name)
	}
	log.Printf("kernel image: [0x%x, 0x%x)", kernelStart, kernelEnd)

	start, limit, err := hal.HeapRegion(kernelEnd)
	if err != nil {
		return err
	}
	k.Heap.Init(start, limit)

	log.Printf("heap arena: [0x%x, 0x%x), %d bytes", start, limit, limit-start)
	return nil
}

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. It is invoked by the rt0 assembly code after setting
// up the GDT and a minimal g0 struct that allows Go code to run on the stack
// allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the boot loader as well as the physical addresses for the kernel start/end.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	if err := kern.Boot(bootPorts, kernelStart, kernelEnd); err != nil {
		panicFn(err)
		return
	}

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}
