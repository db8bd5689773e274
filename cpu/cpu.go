// Package cpu implements the MOS 6502 family execution engine: registers,
// flags, the addressing-mode resolver, the instruction set, and the
// control-input state machine for RESET/IRQ/NMI/WAI/STP, generalized
// across the NMOS, Rockwell, and WDC 65C02 variants from one decoder
// table per Variant.
package cpu

import (
	"fmt"

	"github.com/sixfive/emu/bus"
)

// Status flag bits, matching the hardware P register layout.
const (
	FlagC uint8 = 1 << 0 // Carry
	FlagZ uint8 = 1 << 1 // Zero
	FlagI uint8 = 1 << 2 // Interrupt disable
	FlagD uint8 = 1 << 3 // Decimal mode
	FlagB uint8 = 1 << 4 // Break (only meaningful in the pushed copy)
	Flag1 uint8 = 1 << 5 // Unused, always reads as 1
	FlagV uint8 = 1 << 6 // Overflow
	FlagN uint8 = 1 << 7 // Negative
)

const (
	vectorNMI   = 0xFFFA
	vectorReset = 0xFFFC
	vectorIRQ   = 0xFFFE
)

// InvalidCPUState is returned when Clock or RunInstruction is asked to
// run a Chip that was never given a bus, or Init is given a bad Variant.
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// UnimplementedInstruction is a defensive backstop returned if a decoded
// opcode somehow has no handler wired in execute's switch. Every table
// entry produced by tableFor routes to a handled Inst, so this should
// never actually surface at runtime.
type UnimplementedInstruction struct {
	Opcode uint8
}

func (e UnimplementedInstruction) Error() string {
	return fmt.Sprintf("unimplemented instruction for opcode %#02x", e.Opcode)
}

// ChipDef configures a new Chip.
type ChipDef struct {
	// Variant selects the NMOS/Rockwell/CMOS decoder table.
	Variant Variant
	// Bus is the address bus this Chip executes against.
	Bus *bus.Bus
}

// Chip is a single 6502-family core: registers, flags, and the
// control-input latches RunInstruction/Clock service between
// instructions.
type Chip struct {
	A, X, Y, SP uint8
	PC          uint16
	P           uint8

	variant Variant
	bus     *bus.Bus
	table   [256]opcode

	cycles           int
	totalCycles      uint64
	instructionCount uint64

	irqLine    bool
	nmiLine    bool
	nmiPrev    bool
	nmiPending bool
	resetLine  bool
	waiting    bool
	stopped    bool
	lastOpcode uint8
	lastPC     uint16
}

// Init builds a Chip from def and immediately runs PowerOn.
func Init(def *ChipDef) (*Chip, error) {
	if def.Bus == nil {
		return nil, InvalidCPUState{Reason: "ChipDef.Bus is nil"}
	}
	if def.Variant <= VariantUnknown || def.Variant >= variantMax {
		return nil, InvalidCPUState{Reason: fmt.Sprintf("ChipDef.Variant %d is invalid", def.Variant)}
	}
	c := &Chip{
		variant: def.Variant,
		bus:     def.Bus,
		table:   tables[def.Variant],
	}
	c.PowerOn()
	return c, nil
}

// PowerOn resets the Chip to its documented post-RESET state: A/X/Y
// zeroed, SP pinned to a deterministic 0xFD rather than the real
// hardware's randomized power-on state (so traces stay reproducible),
// I and the always-1 bit set, PC loaded from the reset vector.
func (c *Chip) PowerOn() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.P = Flag1 | FlagI
	c.cycles = 0
	c.totalCycles = 0
	c.instructionCount = 0
	c.irqLine, c.nmiLine, c.nmiPrev, c.nmiPending = false, false, false, false
	c.resetLine, c.waiting, c.stopped = false, false, false
	c.PC = c.bus.Read16(vectorReset)
}

// Variant reports which instruction-set variant this Chip decodes.
func (c *Chip) Variant() Variant { return c.variant }

// TotalCycles is the running count of clock cycles this Chip has
// consumed since PowerOn.
func (c *Chip) TotalCycles() uint64 { return c.totalCycles }

// InstructionCount is the running count of instructions (not interrupt
// services) this Chip has executed since PowerOn.
func (c *Chip) InstructionCount() uint64 { return c.instructionCount }

// PendingCycles is how many cycles of the in-flight instruction are
// still owed before the next boundary.
func (c *Chip) PendingCycles() int { return c.cycles }

// LastOpcode is the most recently fetched opcode byte, for trace.
func (c *Chip) LastOpcode() uint8 { return c.lastOpcode }

// LastPC is the PC value the most recent instruction was fetched from.
func (c *Chip) LastPC() uint16 { return c.lastPC }

// Waiting reports whether the Chip is halted in WAI, waiting for a
// control input.
func (c *Chip) Waiting() bool { return c.waiting }

// Stopped reports whether the Chip is halted in STP, waiting for RESET.
func (c *Chip) Stopped() bool { return c.stopped }

// addrAt builds the bus.Address a flat 16 bit address resolves to. Full
// and Relative are identical here: a Chip has no region offsetting of
// its own, that's the Bus's job once the Chip is wired onto it.
func (c *Chip) addrAt(a uint16) bus.Address {
	return bus.Address{Full: a, Relative: a}
}

// Reset asserts or deasserts the RESET control input. RESET is
// level-sensitive and highest priority: while asserted, every
// instruction boundary re-services it.
func (c *Chip) Reset(active bool) { c.resetLine = active }

// Irq asserts or deasserts the IRQ control input. IRQ is level
// sensitive and gated by the I flag at service time.
func (c *Chip) Irq(active bool) { c.irqLine = active }

// Nmi asserts or deasserts the NMI control input. NMI is edge
// triggered: only the deasserted-to-asserted transition arms a pending
// service, so holding the line high does not re-trigger it every
// boundary the way RESET and IRQ do.
func (c *Chip) Nmi(active bool) { c.nmiLine = active }

// sampleNMI latches a pending NMI service on the rising edge of the NMI
// line. Called once per instruction boundary, before deciding what to
// service.
func (c *Chip) sampleNMI() {
	if c.nmiLine && !c.nmiPrev {
		c.nmiPending = true
	}
	c.nmiPrev = c.nmiLine
}

func (c *Chip) setZN(v uint8) {
	if v == 0 {
		c.P |= FlagZ
	} else {
		c.P &^= FlagZ
	}
	if v&0x80 != 0 {
		c.P |= FlagN
	} else {
		c.P &^= FlagN
	}
}

func (c *Chip) push(v uint8) {
	c.bus.Write(c.addrAt(0x0100|uint16(c.SP)), v)
	c.SP--
}

func (c *Chip) pull() uint8 {
	c.SP++
	return c.bus.Read(c.addrAt(0x0100 | uint16(c.SP)))
}

func (c *Chip) push16(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *Chip) pull16() uint16 {
	lo := uint16(c.pull())
	hi := uint16(c.pull())
	return lo | hi<<8
}

// serviceInterrupt runs the shared push-PC/push-P/load-vector sequence
// used by BRK, IRQ, and NMI. brk marks the pushed status byte's B flag,
// which is only ever set for a software BRK and cleared for a hardware
// interrupt; vector selects which vector table entry to load PC from.
func (c *Chip) serviceInterrupt(vector uint16, brk bool) {
	c.push16(c.PC)
	status := c.P | Flag1
	if brk {
		status |= FlagB
	} else {
		status &^= FlagB
	}
	c.push(status)
	c.P |= FlagI
	c.PC = c.bus.Read16(vector)
}

// serviceReset performs the documented RESET sequence: the stack
// pointer moves by 3 as if PC/P had been pushed (real hardware does
// dummy reads, nothing is actually written), then PC loads from the
// reset vector.
func (c *Chip) serviceReset() {
	c.SP -= 3
	c.P |= FlagI
	c.PC = c.bus.Read16(vectorReset)
	c.waiting, c.stopped = false, false
}

// boundary runs once per Clock() call where c.cycles has reached zero:
// it services the highest priority pending control input (RESET > NMI >
// IRQ), or else fetches, decodes, resolves addressing, and executes the
// next instruction. In both cases it leaves c.cycles holding every
// cycle still owed for what it just started, the first of which this
// same Clock() call accounts for.
func (c *Chip) boundary() error {
	c.sampleNMI()

	if c.stopped {
		if c.resetLine {
			c.serviceReset()
			c.cycles = 6
		}
		return nil
	}
	if c.waiting {
		switch {
		case c.resetLine:
			c.serviceReset()
			c.cycles = 6
		case c.nmiPending:
			c.nmiPending = false
			c.waiting = false
			c.serviceInterrupt(vectorNMI, false)
			c.cycles = 6
		case c.irqLine && c.P&FlagI == 0:
			c.waiting = false
			c.serviceInterrupt(vectorIRQ, false)
			c.cycles = 6
		}
		return nil
	}

	switch {
	case c.resetLine:
		c.serviceReset()
		c.cycles = 6
		return nil
	case c.nmiPending:
		c.nmiPending = false
		c.serviceInterrupt(vectorNMI, false)
		c.cycles = 6
		return nil
	case c.irqLine && c.P&FlagI == 0:
		c.serviceInterrupt(vectorIRQ, false)
		c.cycles = 6
		return nil
	}

	c.lastPC = c.PC
	op := c.fetch8()
	c.lastOpcode = op
	entry := c.table[op]
	extra, err := c.execute(op, entry)
	if err != nil {
		return err
	}
	c.instructionCount++
	total := entry.cycles + extra
	if total > 0 {
		c.cycles = total - 1
	}
	return nil
}

// Clock advances the Chip by exactly one clock cycle: if an instruction
// (or interrupt service) is already in flight it just drains a cycle,
// otherwise it runs a full fetch/decode/execute at this boundary and
// spreads the resulting cycle count over subsequent calls.
func (c *Chip) Clock() error {
	if c.bus == nil {
		return InvalidCPUState{Reason: "Chip has no bus"}
	}
	if c.cycles > 0 {
		c.cycles--
		c.totalCycles++
		return nil
	}
	if err := c.boundary(); err != nil {
		return err
	}
	c.totalCycles++
	return nil
}

// RunInstruction drains any cycles left over from the previous
// instruction, executes exactly one more instruction (or interrupt
// service), and drains its cycles too, leaving the Chip parked at the
// next boundary. This is the whole-instruction-at-a-time convenience
// entry point for hosts that don't need cycle-accurate pacing.
func (c *Chip) RunInstruction() error {
	for c.cycles > 0 {
		if err := c.Clock(); err != nil {
			return err
		}
	}
	if err := c.Clock(); err != nil {
		return err
	}
	for c.cycles > 0 {
		if err := c.Clock(); err != nil {
			return err
		}
	}
	return nil
}
