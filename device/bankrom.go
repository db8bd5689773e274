package device

import (
	"fmt"

	"github.com/sixfive/emu/bus"
)

// BankROM implements a bank-switched ROM: a larger-than-window image
// where writes (or reads, depending on style) to specific hotspot offsets
// within the window switch which bank is currently mapped in. This
// generalizes the Atari 2600 "F8-style" bank-switch carts, which used
// 4k windows and a pair of hotspots at the top of the window to pick
// between two 4k banks.
type BankROM struct {
	name       string
	data       []uint8
	windowSize int
	bank       int
	hotspots   map[int]int // offset within the window (relative addr) -> bank index
}

// NewBankROM returns a BankROM of windowSize bytes per bank, with
// hotspots mapping a relative offset inside the window to the bank it
// should switch to. len(data) must be an exact multiple of windowSize.
func NewBankROM(name string, data []uint8, windowSize int, hotspots map[int]int) (*BankROM, error) {
	if windowSize <= 0 || len(data)%windowSize != 0 {
		return nil, fmt.Errorf("device: BankROM data length %d is not a multiple of window size %d", len(data), windowSize)
	}
	cp := make([]uint8, len(data))
	copy(cp, data)
	return &BankROM{name: name, data: cp, windowSize: windowSize, hotspots: hotspots}, nil
}

// Name implements bus.Device.
func (r *BankROM) Name() string { return r.name }

func (r *BankROM) checkHotspot(addr bus.Address) {
	if bank, ok := r.hotspots[int(addr.Relative)]; ok {
		r.bank = bank
	}
}

// Read implements bus.Reader. A read at a hotspot offset both returns the
// byte mapped there and performs the bank switch, matching the F8-cart
// behavior this is grounded on.
func (r *BankROM) Read(addr bus.Address) uint8 {
	r.checkHotspot(addr)
	off := r.bank*r.windowSize + int(addr.Relative)%r.windowSize
	if off < 0 || off >= len(r.data) {
		return 0
	}
	return r.data[off]
}

// Get implements bus.Getter as a silent read: it returns the byte the
// currently selected bank would produce but never triggers a hotspot
// switch, so debuggers can't perturb bank state.
func (r *BankROM) Get(addr bus.Address) uint8 {
	off := r.bank*r.windowSize + int(addr.Relative)%r.windowSize
	if off < 0 || off >= len(r.data) {
		return 0
	}
	return r.data[off]
}

// Write implements bus.Writer purely for hotspot detection; ROM bank
// carts with no onboard RAM ignore the value itself.
func (r *BankROM) Write(addr bus.Address, val uint8) {
	r.checkHotspot(addr)
}

// Bank returns the currently selected bank index, mostly for tests.
func (r *BankROM) Bank() int { return r.bank }
