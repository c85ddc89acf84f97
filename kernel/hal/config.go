package hal

import (
	"tinykern/device/serial"
	"tinykern/device/video/console"
	"tinykern/kernel/hal/multiboot"
)

// LogTarget selects the devices that receive kernel log output.
type LogTarget uint8

// The supported log targets.
const (
	LogSerial LogTarget = iota
	LogConsole
	LogBoth
	LogOff
)

// String implements fmt.Stringer for LogTarget.
func (t LogTarget) String() string {
	switch t {
	case LogSerial:
		return "serial"
	case LogConsole:
		return "console"
	case LogBoth:
		return "both"
	default:
		return "off"
	}
}

// Config holds the settings that can be tuned from the boot command line.
type Config struct {
	// LogTarget is selected with klog=serial|console|both|off.
	LogTarget LogTarget

	// SerialPort is the UART used for logging, selected with
	// serial=com1..com4.
	SerialPort uint16

	// ConsoleColor is selected with consoleColor=<fg>,<bg> where fg and bg
	// are palette indices.
	ConsoleColor console.Attr

	// HeapDebug enables the per-allocation accounting log when the command
	// line contains heapDebug=on.
	HeapDebug bool
}

// DefaultConfig returns the settings used when the command line is empty.
func DefaultConfig() Config {
	return Config{
		LogTarget:    LogSerial,
		SerialPort:   serial.COM1,
		ConsoleColor: console.MakeColor(console.LightGrey, console.Black),
	}
}

// ParseBootConfig applies the recognized boot command line options on top
// of DefaultConfig. Unknown keys and malformed values are ignored.
func ParseBootConfig() Config {
	cfg := DefaultConfig()

	multiboot.VisitBootCmdLine(func(key, value string) bool {
		cfg.apply(key, value)
		return true
	})

	return cfg
}

func (cfg *Config) apply(key, value string) {
	switch key {
	case "klog":
		switch value {
		case "serial":
			cfg.LogTarget = LogSerial
		case "console":
			cfg.LogTarget = LogConsole
		case "both":
			cfg.LogTarget = LogBoth
		case "off":
			cfg.LogTarget = LogOff
		}
	case "serial":
		if port, err := serial.PortByName(value); err == nil {
			cfg.SerialPort = port
		}
	case "consoleColor":
		if attr, ok := parseColor(value); ok {
			cfg.ConsoleColor = attr
		}
	case "heapDebug":
		cfg.HeapDebug = value == "on"
	}
}

// parseColor parses "<fg>,<bg>" where both values are decimal palette
// indices in [0, 15].
func parseColor(value string) (console.Attr, bool) {
	for i := 0; i < len(value); i++ {
		if value[i] != ',' {
			continue
		}

		fg, fgOK := parseColorIndex(value[:i])
		bg, bgOK := parseColorIndex(value[i+1:])
		if !fgOK || !bgOK {
			return 0, false
		}
		return console.MakeColor(fg, bg), true
	}

	return 0, false
}

func parseColorIndex(s string) (console.Color, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}

	var v int
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + int(s[i]-'0')
	}

	if v > int(console.White) {
		return 0, false
	}
	return console.Color(v), true
}
