// Package hal is the boundary between Ember and the board it runs on: a
// log sink, an LED, an optional framebuffer and a tick source.
package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// ErrStop is returned by an application step to end the runner cleanly.
var ErrStop = errors.New("stop")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp little endian: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a pixel buffer plus a "present" hook. Drawing goes to
// Buffer; Present publishes it.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	// Buffer is nil when the board has no addressable framebuffer.
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides the kernel tick stream. Each value is the sequence number
// of a tick; a reader that falls behind sees gaps.
type Time interface {
	Ticks() <-chan uint64
}

// NewApp builds an application on h and returns the step function the
// runner calls once per frame.
type NewApp func(h HAL) (step func() error, err error)

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Time() Time
}
