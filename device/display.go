package device

import "github.com/sixfive/emu/bus"

// Display is a memory-mapped framebuffer device: a Width x Height grid of
// single-byte palette indices, each written by a plain bus write at the
// address the device is overlaid onto starting from relative 0 in
// row-major order. cmd/demo owns translating indices to actual colors
// and blitting them to an SDL surface so the rendering stack (sdl2,
// x/image) stays out of the core device package.
type Display struct {
	name          string
	width, height int
	pixels        []uint8
	dirty         bool
}

// NewDisplay returns a blank Display of width x height palette-index cells.
func NewDisplay(name string, width, height int) *Display {
	return &Display{name: name, width: width, height: height, pixels: make([]uint8, width*height)}
}

// Name implements bus.Device.
func (d *Display) Name() string { return d.name }

// Read implements bus.Reader, returning the palette index last written at
// that cell.
func (d *Display) Read(addr bus.Address) uint8 {
	if int(addr.Relative) >= len(d.pixels) {
		return 0
	}
	return d.pixels[addr.Relative]
}

// Get implements bus.Getter identically to Read.
func (d *Display) Get(addr bus.Address) uint8 { return d.Read(addr) }

// Write implements bus.Writer, storing the palette index and marking the
// frame dirty for the next blit.
func (d *Display) Write(addr bus.Address, val uint8) {
	if int(addr.Relative) >= len(d.pixels) {
		return
	}
	d.pixels[addr.Relative] = val
	d.dirty = true
}

// Place implements bus.Placer identically to Write.
func (d *Display) Place(addr bus.Address, val uint8) { d.Write(addr, val) }

// Dims returns the framebuffer dimensions.
func (d *Display) Dims() (width, height int) { return d.width, d.height }

// Flush reports whether any cell has changed since the last call to
// Flush, and clears the flag.
func (d *Display) Flush() bool {
	was := d.dirty
	d.dirty = false
	return was
}

// At returns the palette index at (x, y), used by a renderer to blit the
// frame.
func (d *Display) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return 0
	}
	return d.pixels[y*d.width+x]
}
