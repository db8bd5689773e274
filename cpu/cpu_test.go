package cpu

import (
	"flag"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/sixfive/emu/bus"
	"github.com/sixfive/emu/device"
)

var verbose = flag.Bool("verbose", false, "If set, failing tests dump full Chip state via spew.")

// newTestChip wires a Chip variant to 64K of RAM and loads program at
// 0x0200, with the reset vector pointed at it.
func newTestChip(t *testing.T, v Variant, program []uint8) (*Chip, *device.Memory) {
	t.Helper()
	b := bus.New()
	ram := device.NewRAM("ram", 65536)
	if err := b.Add(ram, 0x0000, 0xFFFF); err != nil {
		t.Fatalf("bus.Add: %v", err)
	}
	ram.Copy(0x0200, program)
	ram.Copy(0xFFFC, []uint8{0x00, 0x02}) // Reset vector -> 0x0200.

	c, err := Init(&ChipDef{Variant: v, Bus: b})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if c.PC != 0x0200 {
		t.Fatalf("PC after PowerOn = %#04x, want 0x0200", c.PC)
	}
	return c, ram
}

func dumpOnFail(t *testing.T, c *Chip) {
	if t.Failed() && *verbose {
		t.Log(spew.Sdump(c))
	}
}

func TestPowerOnLoadsResetVector(t *testing.T) {
	c, _ := newTestChip(t, NMOS, []uint8{0xEA})
	defer dumpOnFail(t, c)
	if c.SP != 0xFD {
		t.Errorf("SP after PowerOn = %#02x, want 0xFD", c.SP)
	}
	if c.P&Flag1 == 0 || c.P&FlagI == 0 {
		t.Errorf("P after PowerOn = %#02x, want Flag1|FlagI set", c.P)
	}
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	tests := []struct {
		name    string
		val     uint8
		wantZ   bool
		wantN   bool
	}{
		{"zero", 0x00, true, false},
		{"negative", 0x80, false, true},
		{"positive", 0x42, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestChip(t, NMOS, []uint8{0xA9, tc.val})
			defer dumpOnFail(t, c)
			if err := c.RunInstruction(); err != nil {
				t.Fatalf("RunInstruction: %v", err)
			}
			if c.A != tc.val {
				t.Errorf("A = %#02x, want %#02x", c.A, tc.val)
			}
			if got := c.P&FlagZ != 0; got != tc.wantZ {
				t.Errorf("Z = %v, want %v", got, tc.wantZ)
			}
			if got := c.P&FlagN != 0; got != tc.wantN {
				t.Errorf("N = %v, want %v", got, tc.wantN)
			}
		})
	}
}

func TestADCDecimalMode(t *testing.T) {
	// SED ; LDA #0x58 ; ADC #0x46 -> BCD 58+46 = 104, so A=0x04, C=1.
	c, _ := newTestChip(t, NMOS, []uint8{0xF8, 0xA9, 0x58, 0x69, 0x46})
	defer dumpOnFail(t, c)
	for i := 0; i < 3; i++ {
		if err := c.RunInstruction(); err != nil {
			t.Fatalf("RunInstruction %d: %v", i, err)
		}
	}
	if c.A != 0x04 {
		t.Errorf("A = %#02x, want 0x04", c.A)
	}
	if c.P&FlagC == 0 {
		t.Error("C flag not set after decimal carry-out")
	}
}

func TestBranchTakenCostsExtraCycle(t *testing.T) {
	// CLC ; BCC +2 (taken, same page): 0x0203 + 2 = 0x0205, 2+1 cycles.
	c, _ := newTestChip(t, NMOS, []uint8{0x18, 0x90, 0x02})
	defer dumpOnFail(t, c)
	if err := c.RunInstruction(); err != nil { // CLC
		t.Fatalf("CLC: %v", err)
	}
	before := c.TotalCycles()
	if err := c.RunInstruction(); err != nil { // BCC
		t.Fatalf("BCC: %v", err)
	}
	if c.PC != 0x0205 {
		t.Errorf("PC after taken branch = %#04x, want 0x0205", c.PC)
	}
	if got := c.TotalCycles() - before; got != 3 {
		t.Errorf("cycles for taken BCC = %d, want 3", got)
	}
}

func TestIrqServicedWhenUnmasked(t *testing.T) {
	c, ram := newTestChip(t, NMOS, []uint8{0x58}) // CLI
	defer dumpOnFail(t, c)
	ram.Copy(0xFFFE, []uint8{0x00, 0x03}) // IRQ vector -> 0x0300.
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("CLI: %v", err)
	}
	c.Irq(true)
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("IRQ service: %v", err)
	}
	if c.PC != 0x0300 {
		t.Errorf("PC after IRQ service = %#04x, want 0x0300", c.PC)
	}
	if c.P&FlagI == 0 {
		t.Error("I flag not set after IRQ entry")
	}
}

func TestNmiIsEdgeTriggeredOnce(t *testing.T) {
	c, ram := newTestChip(t, NMOS, []uint8{0xEA, 0xEA, 0xEA})
	defer dumpOnFail(t, c)
	ram.Copy(0xFFFA, []uint8{0x00, 0x03}) // NMI vector -> 0x0300.
	ram.Copy(0x0300, []uint8{0x40})       // RTI to return cleanly.

	c.Nmi(true)
	if err := c.RunInstruction(); err != nil { // Services the NMI, not the NOP.
		t.Fatalf("first RunInstruction: %v", err)
	}
	if c.PC != 0x0300 {
		t.Fatalf("PC after NMI entry = %#04x, want 0x0300", c.PC)
	}
	if err := c.RunInstruction(); err != nil { // RTI back to 0x0200.
		t.Fatalf("RTI: %v", err)
	}
	if c.PC != 0x0200 {
		t.Fatalf("PC after RTI = %#04x, want 0x0200", c.PC)
	}
	// NMI is still held high but already serviced: held level must not
	// re-trigger without a new rising edge.
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("NOP after RTI: %v", err)
	}
	if c.PC != 0x0201 {
		t.Errorf("PC after holding NMI high = %#04x, want 0x0201 (no re-entry)", c.PC)
	}
}

func TestPHPPLPRoundTrip(t *testing.T) {
	c, _ := newTestChip(t, NMOS, []uint8{0x08, 0x28}) // PHP ; PLP
	defer dumpOnFail(t, c)
	c.P = Flag1 | FlagI | FlagC | FlagN
	want := c.P
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("PHP: %v", err)
	}
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("PLP: %v", err)
	}
	if c.P != want {
		t.Errorf("P after PHP/PLP round trip = %#02x, want %#02x", c.P, want)
	}
}

func TestResetPriorityOverIrqAndNmi(t *testing.T) {
	c, ram := newTestChip(t, NMOS, []uint8{0x58}) // CLI
	defer dumpOnFail(t, c)
	ram.Copy(0xFFFC, []uint8{0x00, 0x04}) // Reset vector -> 0x0400.
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("CLI: %v", err)
	}
	c.Irq(true)
	c.Nmi(true)
	c.Reset(true)
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("RunInstruction during RESET: %v", err)
	}
	if c.PC != 0x0400 {
		t.Errorf("PC after RESET asserted with IRQ/NMI also pending = %#04x, want 0x0400 (RESET wins)", c.PC)
	}
}

func TestWaiHaltsUntilInterrupt(t *testing.T) {
	// WAI never clears the I flag itself, so an IRQ alone would leave the
	// chip stuck asleep; NMI is edge-triggered and always wakes it.
	c, ram := newTestChip(t, CMOS, []uint8{0xCB, 0xEA}) // WAI ; NOP
	defer dumpOnFail(t, c)
	ram.Copy(0xFFFA, []uint8{0x00, 0x03}) // NMI vector -> 0x0300.
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("WAI: %v", err)
	}
	if !c.Waiting() {
		t.Fatal("Waiting() false after WAI")
	}
	for i := 0; i < 5; i++ {
		if err := c.RunInstruction(); err != nil {
			t.Fatalf("idle RunInstruction %d: %v", i, err)
		}
		if !c.Waiting() {
			t.Fatalf("left WAI state with no control input asserted at iteration %d", i)
		}
	}
	c.Nmi(true)
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("RunInstruction to service NMI out of WAI: %v", err)
	}
	if c.Waiting() {
		t.Error("still Waiting() after NMI should have woken the chip")
	}
	if c.PC != 0x0300 {
		t.Errorf("PC after waking from WAI = %#04x, want 0x0300", c.PC)
	}
}

func TestCompareFindsDeepDiffOnRegisterMismatch(t *testing.T) {
	c1, _ := newTestChip(t, NMOS, []uint8{0xA9, 0x01})
	c2, _ := newTestChip(t, NMOS, []uint8{0xA9, 0x02})
	if err := c1.RunInstruction(); err != nil {
		t.Fatalf("c1 RunInstruction: %v", err)
	}
	if err := c2.RunInstruction(); err != nil {
		t.Fatalf("c2 RunInstruction: %v", err)
	}
	if diffs := deep.Equal(c1.A, c2.A); len(diffs) == 0 {
		t.Fatal("expected deep.Equal to report a difference between A=0x01 and A=0x02")
	}
}

func TestBBRBranchesWhenBitClear(t *testing.T) {
	// RMB0 $10 clears bit 0; BBR0 $10,+2 should then branch.
	c, _ := newTestChip(t, Rockwell, []uint8{0x07, 0x10, 0x0F, 0x10, 0x02})
	defer dumpOnFail(t, c)
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("RMB0: %v", err)
	}
	if err := c.RunInstruction(); err != nil {
		t.Fatalf("BBR0: %v", err)
	}
	if c.PC != 0x0207 {
		t.Errorf("PC after BBR0 taken = %#04x, want 0x0207", c.PC)
	}
}
