package device

import (
	"testing"

	"github.com/sixfive/emu/bus"
	"github.com/sixfive/emu/io"
)

func TestMemoryReadWrite(t *testing.T) {
	m := NewRAM("ram", 16)
	m.Write(bus.Address{Full: 0, Relative: 3}, 0x42)
	if got := m.Read(bus.Address{Full: 0, Relative: 3}); got != 0x42 {
		t.Errorf("Read = %#x, want 0x42", got)
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	m := NewRAM("ram", 4)
	if got := m.Read(bus.Address{Relative: 10}); got != 0 {
		t.Errorf("out of range Read = %#x, want 0", got)
	}
	m.Write(bus.Address{Relative: 10}, 0xFF) // must not panic
}

func TestROMIgnoresWrites(t *testing.T) {
	rom := NewROM("rom", []uint8{1, 2, 3, 4})
	rom.Write(bus.Address{Relative: 0}, 0xFF)
	if got := rom.Read(bus.Address{Relative: 0}); got != 1 {
		t.Errorf("ROM byte after write = %#x, want unchanged 1", got)
	}
}

func TestMemoryPowerOnDeterministic(t *testing.T) {
	a := NewRAM("a", 64)
	b := NewRAM("b", 64)
	a.PowerOn(42)
	b.PowerOn(42)
	for i := 0; i < 64; i++ {
		ai := a.Read(bus.Address{Relative: uint16(i)})
		bi := b.Read(bus.Address{Relative: uint16(i)})
		if ai != bi {
			t.Fatalf("PowerOn(42) not deterministic at %d: %#x vs %#x", i, ai, bi)
		}
	}
}

func TestMemoryCopy(t *testing.T) {
	m := NewRAM("ram", 8)
	if !m.Copy(2, []uint8{0xAA, 0xBB}) {
		t.Fatal("Copy returned false for an in-range write")
	}
	if got := m.Read(bus.Address{Relative: 2}); got != 0xAA {
		t.Errorf("Read(2) = %#x, want 0xAA", got)
	}
	if m.Copy(7, []uint8{1, 2, 3}) {
		t.Error("Copy returned true for an out-of-range write, want false")
	}
}

func TestBankROMHotspotSwitch(t *testing.T) {
	data := make([]uint8, 8192)
	for i := range data[:4096] {
		data[i] = 0xA0
	}
	for i := range data[4096:] {
		data[4096+i] = 0xB0
	}
	rom, err := NewBankROM("cart", data, 4096, map[int]int{0x0FF8: 0, 0x0FF9: 1})
	if err != nil {
		t.Fatalf("NewBankROM: %v", err)
	}
	if got := rom.Read(bus.Address{Relative: 0x0000}); got != 0xA0 {
		t.Errorf("initial bank Read = %#x, want 0xA0", got)
	}
	rom.Read(bus.Address{Relative: 0x0FF9}) // Switch to bank 1.
	if got := rom.Read(bus.Address{Relative: 0x0000}); got != 0xB0 {
		t.Errorf("after hotspot switch Read = %#x, want 0xB0", got)
	}
}

func TestTimerCountsDownAndRaisesInterrupt(t *testing.T) {
	tm := NewTimer("timer")
	tm.Write(bus.Address{Relative: regIntEnable}, 1)
	tm.Write(bus.Address{Relative: regTimer}, 0x00) // divisor /1, value 0x00.
	for i := 0; i < 0x101; i++ {
		tm.Tick()
	}
	if !tm.Raised() {
		t.Error("Timer never raised an interrupt after wrapping through 0xFF")
	}
	if got := tm.Read(bus.Address{Relative: regIntFlag}); got != 1 {
		t.Errorf("interrupt flag read = %d, want 1", got)
	}
	if tm.Raised() {
		t.Error("reading the interrupt flag should clear Raised()")
	}
}

func TestInputPortORsBits(t *testing.T) {
	up := NewSwitch(true)
	down := NewSwitch(false)
	p := NewInputPort("pad", [8]io.PortIn8{up, down, nil, nil, nil, nil, nil, nil})
	if got, want := p.Read(bus.Address{}), uint8(0x01); got != want {
		t.Errorf("Read = %#x, want %#x", got, want)
	}
}

func TestDisplayWriteReadAndDirty(t *testing.T) {
	d := NewDisplay("disp", 4, 4)
	if d.Flush() {
		t.Error("fresh Display reported dirty")
	}
	d.Write(bus.Address{Relative: 5}, 7) // (x=1, y=1)
	if !d.Flush() {
		t.Error("Display did not report dirty after a write")
	}
	if d.Flush() {
		t.Error("Flush did not clear the dirty flag")
	}
	if got := d.At(1, 1); got != 7 {
		t.Errorf("At(1,1) = %d, want 7", got)
	}
}
