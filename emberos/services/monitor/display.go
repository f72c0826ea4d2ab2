package monitor

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts a hal.Framebuffer to the display interface tinyterm and
// tinyfont draw on.
type fbDisplay struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*fbDisplay)(nil)

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	off, ok := d.offset(int(x), int(y))
	if !ok {
		return
	}
	buf := d.fb.Buffer()
	pixel := rgb565(c)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	w, h := d.fb.Width(), d.fb.Height()
	x0 := clamp(int(x), 0, w)
	y0 := clamp(int(y), 0, h)
	x1 := clamp(int(x)+int(width), 0, w)
	y1 := clamp(int(y)+int(height), 0, h)

	buf := d.fb.Buffer()
	pixel := rgb565(c)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			if off, ok := d.offset(px, py); ok {
				buf[off] = byte(pixel)
				buf[off+1] = byte(pixel >> 8)
			}
		}
	}
	return nil
}

// The monitor redraws the whole screen each period, so the terminal never
// needs to scroll.
func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	if rotation != drivers.Rotation0 {
		return hal.ErrNotImplemented
	}
	return nil
}

func (d *fbDisplay) offset(x, y int) (int, bool) {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return 0, false
	}
	if x < 0 || x >= d.fb.Width() || y < 0 || y >= d.fb.Height() {
		return 0, false
	}
	off := y*d.fb.StrideBytes() + x*2
	if off+1 >= len(d.fb.Buffer()) {
		return 0, false
	}
	return off, true
}

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
