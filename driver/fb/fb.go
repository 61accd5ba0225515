// Package fb implements a minimal linear framebuffer descriptor: a mapped
// MMIO pixel window with SetPixel/Clear/Fill. It deliberately stops there —
// no font rendering, no compositor, no GUI stack (Non-goal) — just enough
// to prove the MMIO-consumer contract for a pixel device, the same role
// framebuffer.go plays for bcm2835's mailbox-configured display.
package fb

import (
	"errors"

	"github.com/Neptune-Developer/Comet-OS/internal/reg"
	"github.com/Neptune-Developer/Comet-OS/vm"
)

// Framebuffer describes one mapped linear pixel buffer, BPP bits per
// pixel, Stride bytes per scanline (may exceed Width*BPP/8 if the hardware
// pads rows).
type Framebuffer struct {
	PhysBase uint64
	VirtBase uint64

	Width, Height uint32
	Stride        uint32
	BPP           uint32

	base        uintptr
	initialized bool
}

// Init maps the framebuffer's MMIO window.
func (f *Framebuffer) Init() error {
	if f.initialized {
		return nil
	}
	if f.VirtBase == 0 || f.PhysBase == 0 {
		return errors.New("fb: Base addresses not set")
	}
	if f.BPP != 32 {
		return errors.New("fb: only 32bpp is supported")
	}

	windowSize := uint64(f.Stride) * uint64(f.Height)
	for off := uint64(0); off < windowSize; off += 4096 {
		if ok := vm.Map(f.VirtBase+off, f.PhysBase+off, vm.ProtRead|vm.ProtWrite); !ok {
			return errors.New("fb: failed to map device window")
		}
	}

	f.base = uintptr(f.VirtBase)
	f.initialized = true

	return nil
}

// offset returns the byte offset of pixel (x, y) within the framebuffer; ok
// is false if the coordinate is out of range.
func (f *Framebuffer) offset(x, y uint32) (uintptr, bool) {
	if x >= f.Width || y >= f.Height {
		return 0, false
	}
	return uintptr(y)*uintptr(f.Stride) + uintptr(x)*4, true
}

// SetPixel writes a single 0xAARRGGBB (or 0x00RRGGBB) pixel at (x, y). It is
// a no-op if the coordinate is out of bounds.
func (f *Framebuffer) SetPixel(x, y uint32, rgba uint32) {
	off, ok := f.offset(x, y)
	if !ok {
		return
	}
	reg.Write32(f.base+off, rgba)
}

// Clear fills the entire framebuffer with a single color.
func (f *Framebuffer) Clear(rgba uint32) {
	f.Fill(0, 0, f.Width, f.Height, rgba)
}

// Fill fills the rectangle [x, x+w) x [y, y+h) with a single color, clipped
// to the framebuffer's bounds.
func (f *Framebuffer) Fill(x, y, w, h uint32, rgba uint32) {
	x1, y1 := x+w, y+h
	if x1 > f.Width {
		x1 = f.Width
	}
	if y1 > f.Height {
		y1 = f.Height
	}

	for py := y; py < y1; py++ {
		for px := x; px < x1; px++ {
			f.SetPixel(px, py, rgba)
		}
	}
}
