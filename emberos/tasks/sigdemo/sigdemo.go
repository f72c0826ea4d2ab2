// Package sigdemo exercises signals and condition variables.
//
// A periodic timer generates SigTick for the worker every period and
// SigReport every ReportEvery periods. The worker catches SigTick with a
// handler and waits for SigReport. Alongside, a producer and a consumer
// pass values through a bounded queue guarded by a mutex and two condition
// variables.
package sigdemo

import (
	"fmt"
	"sync/atomic"

	"ember/emberos/kernel"
	"ember/hal"
)

const (
	SigTick   = 1
	SigReport = 2

	ReportEvery = 4

	queueSize = 4
	stackSize = 1024
)

type Demo struct {
	k      *kernel.Kernel
	log    hal.Logger
	period uint64

	worker  kernel.Thread
	timer   kernel.SoftwareTimer
	fired   uint32
	actions [2]kernel.SignalAction

	caught   atomic.Uint32
	reports  atomic.Uint32
	produced atomic.Uint32
	consumed atomic.Uint32
	sum      atomic.Uint64

	m                 *kernel.Mutex
	notEmpty, notFull *kernel.CondVar
	queue             [queueSize]uint32
	head, n           int

	stacks [3][stackSize]byte
}

func New(k *kernel.Kernel, log hal.Logger, period uint64) *Demo {
	d := &Demo{
		k:        k,
		log:      log,
		period:   period,
		m:        kernel.NewMutex(k, kernel.MutexNormal, kernel.ProtocolInherit),
		notEmpty: kernel.NewCondVar(k),
		notFull:  kernel.NewCondVar(k),
	}
	d.timer.Init(k, d.tick)
	return d
}

// Start creates the worker, producer and consumer at priority p and arms
// the signal timer.
func (d *Demo) Start(p kernel.Priority) error {
	if d.period == 0 {
		return fmt.Errorf("sigdemo: %w: zero period", kernel.ErrInvalidConfig)
	}
	threads := []struct {
		name  string
		entry func(kernel.Thread)
	}{
		{"sig-worker", d.runWorker},
		{"producer", d.runProducer},
		{"consumer", d.runConsumer},
	}
	for i, tt := range threads {
		th, err := d.k.NewThread(kernel.ThreadConfig{
			Name:     tt.name,
			Priority: p,
			Stack:    d.stacks[i][:],
			Entry:    tt.entry,
		})
		if err != nil {
			return fmt.Errorf("sigdemo: %w", err)
		}
		if err := th.Start(); err != nil {
			return fmt.Errorf("sigdemo: %w", err)
		}
		if i == 0 {
			d.worker = th
		}
	}
	return d.timer.StartPeriodic(d.period, d.period)
}

// Caught returns how many SigTick handlers ran.
func (d *Demo) Caught() uint32 { return d.caught.Load() }

// Reports returns how many SigReport signals the worker accepted.
func (d *Demo) Reports() uint32 { return d.reports.Load() }

// Produced and Consumed count queue traffic; Sum adds up consumed values.
func (d *Demo) Produced() uint32 { return d.produced.Load() }
func (d *Demo) Consumed() uint32 { return d.consumed.Load() }
func (d *Demo) Sum() uint64      { return d.sum.Load() }

// tick runs in interrupt context.
func (d *Demo) tick() {
	d.fired++
	_ = d.worker.GenerateSignal(SigTick)
	if d.fired%ReportEvery == 0 {
		_ = d.worker.GenerateSignal(SigReport)
	}
}

func (d *Demo) runWorker(kernel.Thread) {
	catcher := kernel.NewSignalsCatcher(d.k, d.actions[:])
	_ = catcher.SetHandler(SigTick, func(int) { d.caught.Add(1) })
	if err := d.k.SetSignalsCatcher(catcher); err != nil {
		d.logf("sigdemo: catcher: %v", err)
		return
	}
	for {
		n, err := d.k.WaitSignals(kernel.Forever, kernel.Signals(SigReport))
		if err != nil {
			// a caught SigTick interrupts the wait; its handler has run.
			continue
		}
		d.reports.Add(1)
		d.logf("sigdemo: signal %d, caught %d ticks, queue %d/%d", n, d.caught.Load(), d.consumed.Load(), d.produced.Load())
	}
}

func (d *Demo) runProducer(kernel.Thread) {
	for v := uint32(1); ; v++ {
		_ = d.k.SleepFor(d.period)
		_ = d.m.Lock(kernel.Forever)
		for d.n == queueSize {
			_ = d.notFull.Wait(kernel.Forever, d.m)
		}
		d.queue[(d.head+d.n)%queueSize] = v
		d.n++
		d.produced.Add(1)
		d.notEmpty.NotifyOne()
		_ = d.m.Unlock()
	}
}

func (d *Demo) runConsumer(kernel.Thread) {
	for {
		_ = d.m.Lock(kernel.Forever)
		for d.n == 0 {
			_ = d.notEmpty.Wait(kernel.Forever, d.m)
		}
		v := d.queue[d.head]
		d.head = (d.head + 1) % queueSize
		d.n--
		d.notFull.NotifyOne()
		_ = d.m.Unlock()
		d.consumed.Add(1)
		d.sum.Add(uint64(v))
	}
}

func (d *Demo) logf(format string, args ...any) {
	if d.log != nil {
		d.log.WriteLineString(fmt.Sprintf(format, args...))
	}
}
