// Package pic reprograms the two cascaded 8259 programmable interrupt
// controllers so that hardware IRQs do not collide with CPU exception
// vectors.
package pic

import "tinykern/kernel/cpu"

const (
	masterCommand = 0x20
	masterData    = 0x21
	slaveCommand  = 0xA0
	slaveData     = 0xA1

	// Writes to this unused port give the controllers time to settle.
	waitPort = 0x80

	icw1Init = 0x10
	icw1ICW4 = 0x01

	icw3SlaveOnIRQ2 = 0x04
	icw3CascadeID   = 0x02

	icw4Mode8086 = 0x01

	unmaskAll = 0x00
)

// Vector offsets of the first IRQ handled by each controller.
const (
	MasterOffset = 0x20
	SlaveOffset  = 0x28
)

// Remap runs the ICW1-ICW4 initialization sequence on both controllers,
// moving IRQs 0-7 to vectors 0x20-0x27 and IRQs 8-15 to 0x28-0x2F, and then
// unmasks every IRQ line. CPU interrupts are left untouched.
func Remap(ports cpu.Ports) {
	ports = cpu.PortsOrHardware(ports)

	writeWait(ports, masterCommand, icw1Init|icw1ICW4)
	writeWait(ports, masterData, MasterOffset)
	writeWait(ports, masterData, icw3SlaveOnIRQ2)
	writeWait(ports, masterData, icw4Mode8086)

	writeWait(ports, slaveCommand, icw1Init|icw1ICW4)
	writeWait(ports, slaveData, SlaveOffset)
	writeWait(ports, slaveData, icw3CascadeID)
	writeWait(ports, slaveData, icw4Mode8086)

	writeWait(ports, masterData, unmaskAll)
	writeWait(ports, slaveData, unmaskAll)
}

func writeWait(ports cpu.Ports, port uint16, val uint8) {
	ports.WritePort(port, val)
	ports.WritePort(waitPort, 0)
}
