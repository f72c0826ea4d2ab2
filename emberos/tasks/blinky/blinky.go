// Package blinky toggles an LED from a periodic software timer. It has no
// thread of its own.
package blinky

import (
	"sync/atomic"

	"ember/emberos/kernel"
	"ember/hal"
)

type Blinky struct {
	led     hal.LED
	timer   kernel.SoftwareTimer
	on      bool
	toggles atomic.Uint32
}

func New(k *kernel.Kernel, led hal.LED) *Blinky {
	b := &Blinky{led: led}
	b.timer.Init(k, b.toggle)
	return b
}

// Start toggles the LED every period ticks.
func (b *Blinky) Start(period uint64) error {
	return b.timer.StartPeriodic(period, period)
}

func (b *Blinky) Stop() { b.timer.Stop() }

// Toggles returns how many times the LED changed state.
func (b *Blinky) Toggles() uint32 { return b.toggles.Load() }

// toggle runs in interrupt context.
func (b *Blinky) toggle() {
	b.on = !b.on
	if b.led != nil {
		if b.on {
			b.led.High()
		} else {
			b.led.Low()
		}
	}
	b.toggles.Add(1)
}
