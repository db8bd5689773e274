// Command demo wires the bus, cpu, and device packages into a runnable
// machine: a ROM cartridge (optionally bank switched), RAM, a Timer,
// and a Display, blitted to an SDL2 window. No InputPort is mapped.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"io/ioutil"
	"log"
	"strings"

	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sixfive/emu/bus"
	"github.com/sixfive/emu/clock"
	"github.com/sixfive/emu/cpu"
	"github.com/sixfive/emu/device"
	"github.com/sixfive/emu/irq"
	"github.com/sixfive/emu/trace"
)

var (
	cart        = flag.String("cart", "", "Path to a ROM image to load at 0x8000")
	bankWindow  = flag.Int("bank_window", 0, "If non-zero, treat -cart as bank switched with this window size and two hotspots at the top of the window (last byte selects bank 0, the byte before it bank 1)")
	variantFlag = flag.String("variant", "nmos", "Instruction set variant: nmos, rockwell, or cmos")
	hz          = flag.Int("hz", 1_000_000, "Target clock rate in Hz")
	scale       = flag.Int("scale", 4, "Window scale factor over the Display's native size")
	debug       = flag.Bool("debug", false, "If true, print a register trace line per instruction")
	width       = flag.Int("width", 64, "Display width in palette-index cells")
	height      = flag.Int("height", 48, "Display height in palette-index cells")
)

var palette = []string{"black", "white", "red", "green", "blue", "yellow", "cyan", "magenta",
	"gray", "darkgray", "orange", "purple", "brown", "pink", "lightblue", "lightgreen"}

func parseVariant(s string) cpu.Variant {
	switch strings.ToLower(s) {
	case "rockwell":
		return cpu.Rockwell
	case "cmos":
		return cpu.CMOS
	default:
		return cpu.NMOS
	}
}

func buildMachine() (*cpu.Chip, *device.Display, *device.Timer, error) {
	b := bus.New()
	ram := device.NewRAM("ram", 0x2000)
	if err := b.Add(ram, 0x0000, 0x1FFF); err != nil {
		return nil, nil, nil, fmt.Errorf("mapping RAM: %w", err)
	}

	disp := device.NewDisplay("display", *width, *height)
	if err := b.Add(disp, 0x2000, uint16(0x2000+*width**height-1)); err != nil {
		return nil, nil, nil, fmt.Errorf("mapping Display: %w", err)
	}

	timer := device.NewTimer("timer")
	if err := b.Add(timer, 0x3000, 0x3003); err != nil {
		return nil, nil, nil, fmt.Errorf("mapping Timer: %w", err)
	}

	if *cart != "" {
		data, err := ioutil.ReadFile(*cart)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading -cart: %w", err)
		}
		var romDevice bus.Device
		if *bankWindow > 0 {
			bank, err := device.NewBankROM("cart", data, *bankWindow, map[int]int{*bankWindow - 1: 0, *bankWindow - 2: 1})
			if err != nil {
				return nil, nil, nil, fmt.Errorf("building bank switched cart: %w", err)
			}
			romDevice = bank
		} else {
			romDevice = device.NewROM("cart", data)
		}
		if err := b.Add(romDevice, 0x8000, 0xFFFF); err != nil {
			return nil, nil, nil, fmt.Errorf("mapping cart: %w", err)
		}
	} else {
		// No cart supplied: fall back to zeroed RAM so the demo still
		// boots, with the reset vector pointed at 0x8000, whose zero
		// byte is a BRK. BRK vectors through the zero IRQ vector to
		// 0x0000, also zero, so the CPU keeps executing BRKs rather than
		// arbitrary bytes.
		blank := device.NewRAM("rom-fallback", 0x8000)
		blank.Copy(0x7FFC, []uint8{0x00, 0x80})
		if err := b.Add(blank, 0x8000, 0xFFFF); err != nil {
			return nil, nil, nil, fmt.Errorf("mapping fallback ROM: %w", err)
		}
	}

	c, err := cpu.Init(&cpu.ChipDef{Variant: parseVariant(*variantFlag), Bus: b})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cpu.Init: %w", err)
	}
	return c, disp, timer, nil
}

func blit(window *sdl.Window, disp *device.Display) error {
	surface, err := window.GetSurface()
	if err != nil {
		return fmt.Errorf("GetSurface: %w", err)
	}
	w, h := disp.Dims()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := int(disp.At(x, y)) % len(palette)
			col := colornames.Map[palette[idx]]
			rect := &sdl.Rect{X: int32(x * *scale), Y: int32(y * *scale), W: int32(*scale), H: int32(*scale)}
			surface.FillRect(rect, sdl.MapRGBA(surface.Format, col.R, col.G, col.B, col.A))
		}
	}
	return window.UpdateSurface()
}

// overlayFace is the register-readout font, golang.org/x/image's stock
// 7x13 bitmap face so the demo doesn't need to ship its own font asset.
var overlayFace font.Face = basicfont.Face7x13

// drawOverlay renders a register readout in the top-left corner onto
// an in-memory RGBA canvas the same size as the glyph advances require,
// then pokes each set pixel into the SDL surface directly; kept here
// rather than in the device package so the core stays free of
// rendering dependencies.
func drawOverlay(surface *sdl.Surface, c *cpu.Chip) {
	text := fmt.Sprintf("PC:%04X A:%02X X:%02X Y:%02X SP:%02X P:%02X", c.LastPC(), c.A, c.X, c.Y, c.SP, c.P)
	canvas := image.NewRGBA(image.Rect(0, 0, len(text)*7+4, 13))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: overlayFace,
		Dot:  fixed.Point26_6{X: fixed.I(2), Y: fixed.I(11)},
	}
	d.DrawString(text)

	// Poke pixel bytes directly rather than going through a generic
	// image.Image Set call, avoiding the GC churn of routing every pixel
	// through color.Color conversion.
	pixels := surface.Pixels()
	bpp := int32(surface.Format.BytesPerPixel)
	bounds := canvas.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := canvas.At(x, y).RGBA(); a == 0 {
				continue
			}
			i := int32(y)*surface.Pitch + int32(x)*bpp
			if i < 0 || int(i)+int(bpp) > len(pixels) {
				continue
			}
			col := sdl.MapRGBA(surface.Format, 255, 255, 255, 255)
			switch bpp {
			case 4:
				pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] =
					uint8(col), uint8(col>>8), uint8(col>>16), uint8(col>>24)
			default:
				pixels[i] = uint8(col)
			}
		}
	}
}

func main() {
	flag.Parse()

	c, disp, timer, err := buildMachine()
	if err != nil {
		log.Fatalf("buildMachine: %v", err)
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		log.Fatalf("sdl.Init: %v", err)
	}
	defer sdl.Quit()

	w, h := disp.Dims()
	window, err := sdl.CreateWindow("sixfive demo", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w**scale), int32(h**scale), sdl.WINDOW_SHOWN)
	if err != nil {
		log.Fatalf("sdl.CreateWindow: %v", err)
	}
	defer window.Destroy()

	pacer, err := clock.NewPacer(c, *hz)
	if err != nil {
		log.Fatalf("clock.NewPacer: %v", err)
	}
	if err := clock.PulseReset(c); err != nil {
		log.Fatalf("clock.PulseReset: %v", err)
	}

	// Route the timer's interrupt line to the CPU through irq.Sender
	// rather than the concrete *device.Timer, so the IRQ wiring doesn't
	// care which device asserts it.
	var irqSrc irq.Sender = timer

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event.(type) {
			case *sdl.QuitEvent:
				running = false
			}
		}

		if err := c.RunInstruction(); err != nil {
			log.Fatalf("RunInstruction: %v", err)
		}
		timer.Tick()
		if irqSrc.Raised() {
			c.Irq(true)
		} else {
			c.Irq(false)
		}
		if *debug {
			trace.PrintState(logWriter{}, c)
		}
		if disp.Flush() {
			if err := blit(window, disp); err != nil {
				log.Fatalf("blit: %v", err)
			}
			if surface, err := window.GetSurface(); err == nil {
				drawOverlay(surface, c)
			}
		}
		if _, err := pacer.Step(); err != nil {
			log.Fatalf("pacer.Step: %v", err)
		}
	}
}

// logWriter adapts the standard logger into an io.Writer for
// trace.PrintState, keeping the demo's trace output on the same
// timestamped format as its other log.Fatalf calls.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}
