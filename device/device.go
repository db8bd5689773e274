// Package device provides the stock bus.Device backends: byte-addressable
// RAM and ROM, a bank-switched ROM, a programmable interval timer with an
// 8 bit I/O port, and a memory-mapped framebuffer for the demo harness.
//
// These backends are intentionally simple - a trivial array with bounds
// checks - the interesting engineering lives in the bus and the CPU, not
// here.
package device

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sixfive/emu/bus"
)

// Memory is a byte-addressable array device. It implements bus.Reader and,
// when writable, bus.Writer; Get/Place alias Read/Write since a plain
// memory backend has no side effects to bypass.
type Memory struct {
	name      string
	data      []uint8
	writable  bool
	logSource string // identifies this backend in out-of-range log lines.
}

// NewRAM returns a writable Memory backend of the given size.
func NewRAM(name string, size int) *Memory {
	return &Memory{name: name, data: make([]uint8, size), writable: true, logSource: name}
}

// NewROM returns a read-only Memory backend preloaded with data. Writes
// are silently dropped.
func NewROM(name string, data []uint8) *Memory {
	cp := make([]uint8, len(data))
	copy(cp, data)
	return &Memory{name: name, data: cp, writable: false, logSource: name}
}

// Name implements bus.Device.
func (m *Memory) Name() string { return m.name }

// Read implements bus.Reader. Out-of-range addresses are logged and
// return 0, never propagated as an error.
func (m *Memory) Read(addr bus.Address) uint8 {
	if int(addr.Relative) >= len(m.data) {
		log.Printf("device %s: read out of range at relative address %#04x (size %d)", m.logSource, addr.Relative, len(m.data))
		return 0
	}
	return m.data[addr.Relative]
}

// Get implements bus.Getter identically to Read: a memory array has no
// read side effects to bypass.
func (m *Memory) Get(addr bus.Address) uint8 { return m.Read(addr) }

// Write implements bus.Writer. Writes to a non-writable (ROM) backend or
// to an out-of-range address are silently dropped.
func (m *Memory) Write(addr bus.Address, val uint8) {
	if !m.writable {
		return
	}
	if int(addr.Relative) >= len(m.data) {
		log.Printf("device %s: write out of range at relative address %#04x (size %d)", m.logSource, addr.Relative, len(m.data))
		return
	}
	m.data[addr.Relative] = val
}

// Place implements bus.Placer identically to Write.
func (m *Memory) Place(addr bus.Address, val uint8) { m.Write(addr, val) }

// PowerOn fills the backend with deterministic pseudo-random bytes
// seeded by seed, mimicking real hardware's unpredictable-but-nonzero
// power-on state while staying reproducible for tests.
func (m *Memory) PowerOn(seed int64) {
	r := rand.New(rand.NewSource(seed))
	for i := range m.data {
		m.data[i] = uint8(r.Intn(256))
	}
}

// PowerOnRandom is PowerOn seeded from the current time, for non-test use.
func (m *Memory) PowerOnRandom() {
	m.PowerOn(time.Now().UnixNano())
}

// Copy bulk-loads data into the backend starting at offset. It returns
// false (and copies nothing) if the data wouldn't fit.
func (m *Memory) Copy(offset int, data []uint8) bool {
	if offset < 0 || offset+len(data) > len(m.data) {
		return false
	}
	copy(m.data[offset:], data)
	return true
}

// LoadFile reads path in full and copies it into the backend starting at
// offset, reporting false on any failure rather than propagating an
// error. Provided since cmd/demo needs to load ROM images.
func (m *Memory) LoadFile(offset int, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	data := make([]uint8, info.Size())
	if _, err := f.Read(data); err != nil {
		return false
	}
	return m.Copy(offset, data)
}

// Size returns the backend's byte length, for callers sizing bus.Add
// ranges.
func (m *Memory) Size() int { return len(m.data) }

var _ fmt.Stringer = (*Memory)(nil)

// String implements fmt.Stringer for debug dumps.
func (m *Memory) String() string {
	return fmt.Sprintf("%s(%d bytes, writable=%t)", m.name, len(m.data), m.writable)
}
