//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig configures the desktop HAL.
type HostConfig struct {
	// TickHz is the rate of the tick stream, in ticks per second of wall
	// clock time.
	TickHz int
	// Width and Height size the framebuffer. Zero selects 320x320.
	Width, Height int
	// LogLED writes a log line for each LED change.
	LogLED bool
	// Out receives log lines. Nil selects os.Stdout.
	Out io.Writer
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	t      *hostTime
}

// New returns a host HAL implementation.
func New(cfg HostConfig) (HAL, error) {
	h, err := newHost(cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func newHost(cfg HostConfig) (*hostHAL, error) {
	if cfg.TickHz <= 0 {
		return nil, fmt.Errorf("hal: invalid tick rate %d", cfg.TickHz)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 320, 320
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	logger := &hostLogger{w: cfg.Out}
	led := &hostLED{}
	if cfg.LogLED {
		led.logger = logger
	}
	return &hostHAL{
		logger: logger,
		led:    led,
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		t:      newHostTime(cfg.TickHz),
	}, nil
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

// On reports the LED state.
func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	l.on = on
	l.mu.Unlock()
	if l.logger == nil {
		return
	}
	if on {
		l.logger.WriteLineString("led: HIGH")
	} else {
		l.logger.WriteLineString("led: LOW")
	}
}
