// Package pingpong runs two threads of equal priority that take turns
// through a pair of semaphores.
package pingpong

import (
	"fmt"
	"sync/atomic"

	"ember/emberos/kernel"
	"ember/hal"
)

const (
	stackSize = 1024
	// one log line per logEvery rounds
	logEvery = 10
)

type PingPong struct {
	k      *kernel.Kernel
	log    hal.Logger
	period uint64

	ping, pong *kernel.Semaphore
	rounds     atomic.Uint32

	pingStack, pongStack [stackSize]byte
}

// New returns a ping-pong pair that completes one round every period ticks.
func New(k *kernel.Kernel, log hal.Logger, period uint64) *PingPong {
	return &PingPong{
		k:      k,
		log:    log,
		period: period,
		ping:   kernel.NewSemaphore(k, 1),
		pong:   kernel.NewSemaphore(k, 0),
	}
}

// Start creates both threads at priority p.
func (pp *PingPong) Start(p kernel.Priority) error {
	if pp.period == 0 {
		return fmt.Errorf("pingpong: %w: zero period", kernel.ErrInvalidConfig)
	}
	threads := []struct {
		name  string
		stack []byte
		entry func(kernel.Thread)
	}{
		{"ping", pp.pingStack[:], pp.runPing},
		{"pong", pp.pongStack[:], pp.runPong},
	}
	for _, tt := range threads {
		th, err := pp.k.NewThread(kernel.ThreadConfig{
			Name:     tt.name,
			Priority: p,
			Stack:    tt.stack,
			Entry:    tt.entry,
		})
		if err != nil {
			return fmt.Errorf("pingpong: %w", err)
		}
		if err := th.Start(); err != nil {
			return fmt.Errorf("pingpong: %w", err)
		}
	}
	return nil
}

// Rounds returns the number of completed ping turns.
func (pp *PingPong) Rounds() uint32 { return pp.rounds.Load() }

func (pp *PingPong) runPing(kernel.Thread) {
	for {
		if err := pp.ping.Wait(kernel.Forever); err != nil {
			continue
		}
		n := pp.rounds.Add(1)
		if pp.log != nil && n%logEvery == 0 {
			pp.log.WriteLineString(fmt.Sprintf("pingpong: %d rounds at tick %d", n, pp.k.Ticks()))
		}
		_ = pp.k.SleepFor(pp.period)
		_ = pp.pong.Post()
	}
}

func (pp *PingPong) runPong(kernel.Thread) {
	for {
		if err := pp.pong.Wait(kernel.Forever); err != nil {
			continue
		}
		_ = pp.ping.Post()
	}
}
