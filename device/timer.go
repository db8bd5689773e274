package device

import (
	"github.com/sixfive/emu/bus"
	"github.com/sixfive/emu/io"
	"github.com/sixfive/emu/irq"
)

// Timer implements a small memory-mapped interval timer with an attached
// 8 bit output port, generalizing the countdown/interrupt logic of a 6532
// style RIOT chip down to what a demo peripheral needs: a programmable
// divide-by countdown register and an edge into the control-input state
// machine via Raised().
//
// Register layout (relative address, 4 registers mirrored across the
// window a caller overlays this onto):
//
//	0: port output value (write sets it, read returns it)
//	1: timer register: a write sets the countdown value to the written
//	   byte and picks the divisor from that byte's low two bits
//	   (see divisorFor); read returns the current countdown value.
//	2: interrupt-enable flag (non-zero write arms timer-expiry interrupts)
//	3: interrupt-pending flag (read clears it)
type Timer struct {
	name       string
	port       uint8
	value      uint8
	divisor    uint16
	count      uint16
	expired    bool
	intEnabled bool
	intPending bool
}

var _ io.PortOut8 = (*Timer)(nil)
var _ irq.Sender = (*Timer)(nil)

// NewTimer returns a powered-on Timer named name.
func NewTimer(name string) *Timer {
	t := &Timer{name: name}
	t.PowerOn()
	return t
}

// PowerOn resets the timer to its post-reset state: divisor 1024 (the
// real RIOT's documented startup divisor), zero count, no interrupts
// armed or pending.
func (t *Timer) PowerOn() {
	t.port = 0
	t.value = 0
	t.divisor = 1024
	t.count = 1024
	t.expired = false
	t.intEnabled = false
	t.intPending = false
}

// Name implements bus.Device.
func (t *Timer) Name() string { return t.name }

const (
	regPort      = 0
	regTimer     = 1
	regIntEnable = 2
	regIntFlag   = 3
)

// Read implements bus.Reader.
func (t *Timer) Read(addr bus.Address) uint8 {
	switch addr.Relative % 4 {
	case regPort:
		return t.port
	case regTimer:
		return t.value
	case regIntEnable:
		if t.intEnabled {
			return 1
		}
		return 0
	case regIntFlag:
		v := uint8(0)
		if t.intPending {
			v = 1
		}
		t.intPending = false
		return v
	}
	return 0
}

// Get implements bus.Getter as a silent read that never clears the
// pending-interrupt flag, so a debugger can inspect state without
// disturbing it.
func (t *Timer) Get(addr bus.Address) uint8 {
	switch addr.Relative % 4 {
	case regPort:
		return t.port
	case regTimer:
		return t.value
	case regIntEnable:
		if t.intEnabled {
			return 1
		}
		return 0
	case regIntFlag:
		if t.intPending {
			return 1
		}
		return 0
	}
	return 0
}

// divisorFor maps the low two bits of a timer-control write to one of the
// four documented 6532 divide rates: /1, /8, /64, /1024.
func divisorFor(val uint8) uint16 {
	switch val & 0x03 {
	case 0:
		return 1
	case 1:
		return 8
	case 2:
		return 64
	default:
		return 1024
	}
}

// Write implements bus.Writer.
func (t *Timer) Write(addr bus.Address, val uint8) {
	switch addr.Relative % 4 {
	case regPort:
		t.port = val
	case regTimer:
		t.divisor = divisorFor(val)
		t.value = val
		t.count = t.divisor
		t.expired = false
	case regIntEnable:
		t.intEnabled = val != 0
	case regIntFlag:
		t.intPending = false
	}
}

// Place implements bus.Placer identically to Write; the timer has no
// distinct silent-write behavior.
func (t *Timer) Place(addr bus.Address, val uint8) { t.Write(addr, val) }

// Output implements io.PortOut8 so the timer's port register can be wired
// as an input elsewhere on the bus (e.g. into another device's PortIn8).
func (t *Timer) Output() uint8 { return t.port }

// Tick advances the timer by one clock cycle: once the divisor
// countdown expires the timer byte decrements, and hitting 0xFF arms
// the pending-interrupt flag if interrupts are enabled, then free-runs
// (wrapping) until rewritten.
func (t *Timer) Tick() {
	if !t.expired {
		if t.count == 0 {
			t.count = t.divisor
			t.value--
		} else {
			t.count--
		}
		if t.value == 0xFF {
			t.expired = true
			if t.intEnabled {
				t.intPending = true
			}
		}
		return
	}
	t.value--
	if t.intEnabled {
		t.intPending = true
	}
}

// Raised implements irq.Sender so a Timer can directly drive cpu.Chip's
// IRQ line.
func (t *Timer) Raised() bool {
	return t.intPending
}
