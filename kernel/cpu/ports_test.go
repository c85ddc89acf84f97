package cpu

import "testing"

type nopPorts struct{}

func (nopPorts) WritePort(uint16, uint8) {}
func (nopPorts) ReadPort(uint16) uint8   { return 0x42 }

func TestPortsOrHardware(t *testing.T) {
	if _, ok := PortsOrHardware(nil).(HardwarePorts); !ok {
		t.Fatal("expected a nil Ports to be replaced by HardwarePorts")
	}

	var p Ports = nopPorts{}
	if got := PortsOrHardware(p); got.ReadPort(0) != 0x42 {
		t.Fatal("expected PortsOrHardware to return the supplied Ports unchanged")
	}
}
