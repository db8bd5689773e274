// Package bus implements the address-decoding bus for a 65xx family
// emulator: a sparse interval map from the full 16 bit address space to
// the devices (RAM, ROM, memory mapped I/O) that are overlaid onto it.
//
// The bus itself holds no device lifetimes; a Device is a borrowed
// reference and must outlive any Bus that references it. The bus is not
// safe for concurrent use - it's owned by a single execution context,
// generally a cpu.Chip driven by a clock pacer.
package bus

import "fmt"

// Address pairs the full 16 bit address a device was accessed at with the
// relative address inside that device's own local coordinate space (the
// region's base plus the offset from the region's begin).
type Address struct {
	Full     uint16
	Relative uint16
}

// Device is the minimal identity every bus occupant must provide. The
// actual read/write/get/place behavior is expressed through the optional
// Reader, Writer, Getter and Placer interfaces below: a device that
// doesn't implement one of them behaves as if that operation were absent.
type Device interface {
	// Name identifies the device for diagnostics (trace.PrintRegions, etc).
	Name() string
}

// Reader is implemented by devices that support a notified (side-effecting)
// read.
type Reader interface {
	Read(addr Address) uint8
}

// Writer is implemented by devices that support a notified (side-effecting)
// write.
type Writer interface {
	Write(addr Address, val uint8)
}

// Getter is implemented by devices that support a silent read bypassing
// any side effects a Reader would trigger. Debuggers and CPU disassembly
// prefetch use this so they don't perturb I/O device state.
type Getter interface {
	Get(addr Address) uint8
}

// Placer is implemented by devices that support a silent write bypassing
// any side effects a Writer would trigger.
type Placer interface {
	Place(addr Address, val uint8)
}

// nullDevice backs any range of the address space not explicitly claimed
// by a bus_add call. It has no Reader/Writer/Getter/Placer so every
// access falls through to the bus's own zero-value defaults.
type nullDevice struct{}

func (nullDevice) Name() string { return "null" }

// Null is the sentinel device every freshly initialised Bus is entirely
// backed by. bus_add calls with a nil device are normalised to Null.
var Null Device = nullDevice{}

// region is one contiguous, inclusive slice of the address space owned by
// exactly one device, along with the offset into that device's local
// coordinate space corresponding to region.begin.
type region struct {
	begin, end uint16
	base       uint16
	device     Device
}

func (r region) contains(addr uint16) bool {
	return addr >= r.begin && addr <= r.end
}

// Bus is the sparse interval map at the heart of the address decoder: an
// ordered, non-overlapping sequence of regions whose union always covers
// [0x0000, 0xFFFF].
type Bus struct {
	regions []region
}

// New returns an initialised Bus with the entire address space backed by
// the null device, mirroring bus_init() in the original C source.
func New() *Bus {
	return &Bus{
		regions: []region{{begin: 0x0000, end: 0xFFFF, base: 0, device: Null}},
	}
}

// Destroy clears the bus back to an empty, uninitialised state. It never
// touches any device - devices are borrowed and are the caller's to tear
// down once the bus itself is gone.
func (b *Bus) Destroy() {
	b.regions = nil
}

// Add overlays device across the inclusive range [begin, end], splitting
// and merging existing regions so the bus invariants (full coverage,
// strict ordering, no adjacent same-device regions) are preserved. This
// is the central algorithm of the address decoder.
//
// begin/end are normalised (swapped) if begin > end. A nil device is
// normalised to Null. The only failure is calling Add on a bus that was
// destroyed (or never initialised), which returns an error and leaves
// the bus unchanged; there's no allocation-failure condition to model.
func (b *Bus) Add(device Device, begin, end uint16) error {
	if b.regions == nil {
		return fmt.Errorf("bus: Add called on an uninitialised or destroyed bus")
	}
	if begin > end {
		begin, end = end, begin
	}
	if device == nil {
		device = Null
	}

	scratch := make([]region, 0, len(b.regions)+2)
	emitted := false
	for _, r := range b.regions {
		if r.end < begin || r.begin > end {
			scratch = append(scratch, r)
			continue
		}
		if r.begin < begin {
			scratch = append(scratch, region{begin: r.begin, end: begin - 1, base: r.base, device: r.device})
		}
		if !emitted {
			scratch = append(scratch, region{begin: begin, end: end, base: 0, device: device})
			emitted = true
		}
		if r.end > end {
			scratch = append(scratch, region{
				begin:  end + 1,
				end:    r.end,
				base:   r.base + (end + 1 - r.begin),
				device: r.device,
			})
		}
	}

	b.regions = coalesce(scratch)
	return nil
}

// coalesce merges adjacent regions that reference the identical device,
// extending the left region's end over the right one.
func coalesce(regions []region) []region {
	if len(regions) == 0 {
		return regions
	}
	out := make([]region, 0, len(regions))
	out = append(out, regions[0])
	for _, r := range regions[1:] {
		last := &out[len(out)-1]
		if last.device == r.device && last.end+1 == r.begin {
			last.end = r.end
			continue
		}
		out = append(out, r)
	}
	return out
}

// find does the O(log n) binary search for the region containing addr.
// The bus always fully covers the address space so this never misses.
func (b *Bus) find(addr uint16) region {
	lo, hi := 0, len(b.regions)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		r := b.regions[mid]
		switch {
		case addr < r.begin:
			hi = mid - 1
		case addr > r.end:
			lo = mid + 1
		default:
			return r
		}
	}
	// Unreachable if invariants hold; fall back to the null device rather
	// than panic so a corrupted bus degrades gracefully.
	return region{begin: addr, end: addr, base: 0, device: Null}
}

func (b *Bus) addrFor(r region, addr uint16) Address {
	return Address{Full: addr, Relative: r.base + (addr - r.begin)}
}

// Read dispatches a notified read to the device owning addr. If the
// device has no Reader, it returns 0.
func (b *Bus) Read(addr uint16) uint8 {
	r := b.find(addr)
	if rd, ok := r.device.(Reader); ok {
		return rd.Read(b.addrFor(r, addr))
	}
	return 0
}

// Write dispatches a notified write to the device owning addr. If the
// device has no Writer, the write is silently dropped.
func (b *Bus) Write(addr uint16, val uint8) {
	r := b.find(addr)
	if wr, ok := r.device.(Writer); ok {
		wr.Write(b.addrFor(r, addr), val)
	}
}

// Get performs a silent read: it prefers the device's Getter, falls back
// to its Reader, and finally returns 0 if neither is implemented.
func (b *Bus) Get(addr uint16) uint8 {
	r := b.find(addr)
	if g, ok := r.device.(Getter); ok {
		return g.Get(b.addrFor(r, addr))
	}
	if rd, ok := r.device.(Reader); ok {
		return rd.Read(b.addrFor(r, addr))
	}
	return 0
}

// Place performs a silent write: it prefers the device's Placer, falls
// back to its Writer, and finally drops the write if neither exists.
func (b *Bus) Place(addr uint16, val uint8) {
	r := b.find(addr)
	if p, ok := r.device.(Placer); ok {
		p.Place(b.addrFor(r, addr), val)
		return
	}
	if wr, ok := r.device.(Writer); ok {
		wr.Write(b.addrFor(r, addr), val)
	}
}

// Read16 reads a little-endian 16 bit value starting at addr, matching
// the addressing-mode resolver's read16(a) = read(a) | (read(a+1) << 8).
func (b *Bus) Read16(addr uint16) uint16 {
	lo := uint16(b.Read(addr))
	hi := uint16(b.Read(addr + 1))
	return lo | hi<<8
}

// Read16ZeroPage is Read16 but wraps the high byte fetch at the zero page
// boundary (addr+1 wraps to 0x00 rather than crossing into page 1), as
// required by the zero-page indirect addressing modes.
func (b *Bus) Read16ZeroPage(addr uint8) uint16 {
	lo := uint16(b.Read(uint16(addr)))
	hi := uint16(b.Read(uint16(addr + 1)))
	return lo | hi<<8
}

// Regions returns a snapshot of the current region list for diagnostics
// (trace.PrintRegions) and tests. The returned slice is a copy; mutating
// it has no effect on the Bus.
type Region struct {
	Begin, End uint16
	Base       uint16
	Device     Device
}

func (b *Bus) Regions() []Region {
	out := make([]Region, len(b.regions))
	for i, r := range b.regions {
		out[i] = Region{Begin: r.begin, End: r.end, Base: r.base, Device: r.device}
	}
	return out
}
