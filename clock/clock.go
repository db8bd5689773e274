// Package clock paces a cpu.Chip against wall-clock time, the host side
// of the cycle-at-a-time execution model: a standalone pacer the host
// drives explicitly, since Chip.Clock is a pure function of bus state
// with no wall-clock dependency of its own.
package clock

import (
	"fmt"
	"time"

	"github.com/sixfive/emu/cpu"
)

// InvalidRate is returned when a Pacer is asked to run at a rate it
// cannot calibrate against (zero or negative).
type InvalidRate struct {
	HZ int
}

func (e InvalidRate) Error() string {
	return fmt.Sprintf("invalid clock rate: %d Hz", e.HZ)
}

// Pacer drives a cpu.Chip at a target frequency by calling Clock() in a
// loop and sleeping off whatever time each call didn't consume, using
// time.Sleep directly rather than a busy spin since this isn't chasing
// sub-microsecond jitter.
type Pacer struct {
	chip   *cpu.Chip
	period time.Duration
}

// NewPacer returns a Pacer driving chip at hz clock cycles per second.
func NewPacer(chip *cpu.Chip, hz int) (*Pacer, error) {
	if hz <= 0 {
		return nil, InvalidRate{HZ: hz}
	}
	return &Pacer{chip: chip, period: time.Second / time.Duration(hz)}, nil
}

// Step advances the Chip by exactly one clock cycle, sleeping for
// whatever fraction of the configured period remains once Clock()
// returns, and returns how long the whole step actually took.
func (p *Pacer) Step() (time.Duration, error) {
	start := time.Now()
	if err := p.chip.Clock(); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	if elapsed < p.period {
		time.Sleep(p.period - elapsed)
	}
	return time.Since(start), nil
}

// Run drives the Pacer until stop is closed or Clock returns an error,
// the host-facing equivalent of the original clock_run(target_hz) loop.
func (p *Pacer) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if _, err := p.Step(); err != nil {
			return err
		}
	}
}

// PulseReset asserts RESET, steps the Chip a single cycle, then
// deasserts it. The single Clock() call only starts the reset
// sequence - it lands on the boundary, calls serviceReset, and leaves
// six cycles outstanding for subsequent Pacer.Step calls to drain at
// the configured rate, the same as any other instruction.
func PulseReset(chip *cpu.Chip) error {
	chip.Reset(true)
	if err := chip.Clock(); err != nil {
		return err
	}
	chip.Reset(false)
	return nil
}
