// Package inherit shows priority inheritance at work. Three threads share
// one mutex schedule:
//
//	base     low locks the mutex and sleeps for two ticks
//	base+1   high blocks on the mutex, lending low its priority
//	base+2   low and medium wake together
//
// With inheritance low runs first at base+2, releases the mutex and high
// runs before medium. Without it medium runs first: an inversion.
package inherit

import (
	"fmt"
	"sync/atomic"

	"ember/emberos/kernel"
	"ember/hal"
)

const stackSize = 1024

type Config struct {
	// Period separates rounds, in ticks. It must be at least 4.
	Period uint64
	// Protocol of the shared mutex.
	Protocol kernel.Protocol
	Log      hal.Logger
}

type Demo struct {
	k   *kernel.Kernel
	cfg Config
	m   *kernel.Mutex

	base  uint64
	order [3]byte
	n     int

	rounds     atomic.Uint32
	inversions atomic.Uint32
	// lent is the effective priority low ran at while holding the mutex in
	// the last round.
	lent atomic.Uint32

	stacks [3][stackSize]byte
}

func New(k *kernel.Kernel, cfg Config) *Demo {
	return &Demo{k: k, cfg: cfg, m: kernel.NewMutex(k, kernel.MutexNormal, cfg.Protocol)}
}

// Start creates high at priority p, medium at p-1 and low at p-2.
func (d *Demo) Start(p kernel.Priority) error {
	if p < 3 {
		return fmt.Errorf("inherit: %w: priority %d, need at least 3", kernel.ErrInvalidPriority, p)
	}
	if d.cfg.Period < 4 {
		return fmt.Errorf("inherit: %w: period %d, need at least 4", kernel.ErrInvalidConfig, d.cfg.Period)
	}
	d.base = d.k.Ticks() + d.cfg.Period
	threads := []struct {
		name  string
		p     kernel.Priority
		entry func(kernel.Thread)
	}{
		{"inh-high", p, d.runHigh},
		{"inh-med", p - 1, d.runMedium},
		{"inh-low", p - 2, d.runLow},
	}
	for i, tt := range threads {
		th, err := d.k.NewThread(kernel.ThreadConfig{
			Name:     tt.name,
			Priority: tt.p,
			Stack:    d.stacks[i][:],
			Entry:    tt.entry,
		})
		if err != nil {
			return fmt.Errorf("inherit: %w", err)
		}
		if err := th.Start(); err != nil {
			return fmt.Errorf("inherit: %w", err)
		}
	}
	return nil
}

// Rounds returns the number of completed rounds.
func (d *Demo) Rounds() uint32 { return d.rounds.Load() }

// Inversions returns the number of rounds in which medium ran before high.
func (d *Demo) Inversions() uint32 { return d.inversions.Load() }

// Lent returns the priority low held the mutex at in the last round.
func (d *Demo) Lent() kernel.Priority { return kernel.Priority(d.lent.Load()) }

func (d *Demo) mark(who byte) {
	if d.n < len(d.order) {
		d.order[d.n] = who
		d.n++
	}
}

func (d *Demo) runLow(th kernel.Thread) {
	for next := d.base; ; next += d.cfg.Period {
		if err := d.k.SleepUntil(next); err != nil {
			continue
		}
		if err := d.m.Lock(kernel.Forever); err != nil {
			continue
		}
		_ = d.k.SleepUntil(next + 2)
		d.lent.Store(uint32(th.EffectivePriority()))
		d.mark('L')
		_ = d.m.Unlock()
	}
}

func (d *Demo) runHigh(kernel.Thread) {
	for next := d.base; ; next += d.cfg.Period {
		if err := d.k.SleepUntil(next + 1); err != nil {
			continue
		}
		if err := d.m.Lock(kernel.Forever); err != nil {
			continue
		}
		d.mark('H')
		_ = d.m.Unlock()
	}
}

func (d *Demo) runMedium(kernel.Thread) {
	for next := d.base; ; next += d.cfg.Period {
		if err := d.k.SleepUntil(next + 2); err != nil {
			continue
		}
		d.mark('M')
		d.finish()
	}
}

// finish closes a round once all three threads have run in it.
func (d *Demo) finish() {
	// medium ran first: low and high only get the CPU once it sleeps.
	for d.n < len(d.order) {
		_ = d.k.SleepFor(1)
	}
	order := string(d.order[:])
	inverted := order[0] == 'M'
	if inverted {
		d.inversions.Add(1)
	}
	n := d.rounds.Add(1)
	if d.cfg.Log != nil {
		d.cfg.Log.WriteLineString(fmt.Sprintf("inherit: round %d order %s low at %d inverted %v", n, order, d.lent.Load(), inverted))
	}
	d.n = 0
}
