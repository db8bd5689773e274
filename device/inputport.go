package device

import (
	"github.com/sixfive/emu/bus"
	"github.com/sixfive/emu/io"
)

// Switch is a single-bit input, the simplest io.PortIn8 source: a toggled
// boolean such as a joystick direction, a console switch, or a debounced
// button.
type Switch struct {
	pressed bool
}

// NewSwitch returns a Switch in the given initial state.
func NewSwitch(pressed bool) *Switch { return &Switch{pressed: pressed} }

// Set updates the switch state.
func (s *Switch) Set(pressed bool) { s.pressed = pressed }

// Input implements a one-bit io.PortIn8-compatible read: true is reported
// as 0x01, matching the active-high convention used by InputPort below.
func (s *Switch) Input() uint8 {
	if s.pressed {
		return 1
	}
	return 0
}

// InputPort is a memory-mapped, read-only digital input device: each of
// up to 8 io.PortIn8 sources is OR'd into one bit of a single byte, the
// generalized shape of a console's joystick/switch input ports.
type InputPort struct {
	name    string
	sources [8]io.PortIn8
}

// NewInputPort returns an InputPort named name. Bits left nil in sources
// always read as 0.
func NewInputPort(name string, sources [8]io.PortIn8) *InputPort {
	return &InputPort{name: name, sources: sources}
}

// Name implements bus.Device.
func (p *InputPort) Name() string { return p.name }

func (p *InputPort) read() uint8 {
	var out uint8
	for bit, src := range p.sources {
		if src == nil {
			continue
		}
		if src.Input() != 0 {
			out |= 1 << uint(bit)
		}
	}
	return out
}

// Read implements bus.Reader.
func (p *InputPort) Read(addr bus.Address) uint8 { return p.read() }

// Get implements bus.Getter identically to Read: polling switch state has
// no side effect to bypass.
func (p *InputPort) Get(addr bus.Address) uint8 { return p.read() }
