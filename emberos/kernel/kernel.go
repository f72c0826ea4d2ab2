// Package kernel implements a preemptive, priority-based thread scheduler
// for a single core, together with the primitives threads use to
// coordinate: semaphores, mutexes, condition variables, signals and
// software timers.
//
// Every kernel list is mutated with interrupts masked through the port
// layer. The kernel never uses its own primitives to protect itself.
package kernel

import (
	"fmt"
	"sync/atomic"

	"ember/emberos/kernel/port"
)

const (
	// MinStackSize is the smallest stack region a thread may be given.
	MinStackSize = 256

	// MaxPriorities is the largest number of priority levels supported.
	MaxPriorities = 256

	// DefaultPriorities is used when Config.Priorities is zero.
	DefaultPriorities = 16
	// DefaultTimeSlice is the round-robin quantum, in ticks, used when
	// Config.TimeSlice is zero.
	DefaultTimeSlice = 10
	// DefaultMaxThreads is used when Config.MaxThreads is zero.
	DefaultMaxThreads = 32
)

const idleThread ThreadID = 1

// Logger receives kernel diagnostics one line at a time. hal.Logger
// satisfies it.
type Logger interface {
	WriteLineString(s string)
}

// Config sizes the kernel. Zero fields take their defaults.
type Config struct {
	// Priorities is the number of priority levels; valid thread priorities
	// are 1..Priorities-1.
	Priorities int
	// TimeSlice is the round-robin quantum in ticks.
	TimeSlice uint32
	// MaxThreads bounds the number of application threads.
	MaxThreads int

	Logger Logger
	// OnFault is called, with interrupts masked, for every fault. When nil
	// the process-wide handler installed by SetFaultHandler is used.
	OnFault func(FaultInfo)
}

func (c *Config) withDefaults() (Config, error) {
	out := *c
	if out.Priorities == 0 {
		out.Priorities = DefaultPriorities
	}
	if out.TimeSlice == 0 {
		out.TimeSlice = DefaultTimeSlice
	}
	if out.MaxThreads == 0 {
		out.MaxThreads = DefaultMaxThreads
	}
	if out.Priorities < 2 || out.Priorities > MaxPriorities {
		return Config{}, fmt.Errorf("%w: priorities %d not in 2..%d", ErrInvalidConfig, out.Priorities, MaxPriorities)
	}
	if out.MaxThreads < 1 || out.MaxThreads > 1<<15 {
		return Config{}, fmt.Errorf("%w: max threads %d", ErrInvalidConfig, out.MaxThreads)
	}
	return out, nil
}

// Kernel is the scheduler of one core.
type Kernel struct {
	cpu *port.CPU
	cfg Config

	// threads is the arena. Slot 0 is the nil thread, slot 1 the idle
	// thread.
	threads []tcb
	count   int

	ready     []threadList
	readyBits []uint32

	suspended     threadList
	sleepers      threadList
	signalWaiters threadList

	current   ThreadID
	idleStack [MinStackSize]byte

	started  bool
	resched  bool
	switches uint64

	ticks  atomic.Uint64
	timers *SoftwareTimer
}

// New returns a kernel that has not started scheduling yet.
func New(cfg Config) (*Kernel, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg:       c,
		threads:   make([]tcb, c.MaxThreads+2),
		ready:     make([]threadList, c.Priorities),
		readyBits: make([]uint32, (c.Priorities+31)/32),
	}
	k.cpu = port.New(k.tick, k.pendSV)

	if _, err := k.newThread(ThreadConfig{
		Name:  "idle",
		Stack: k.idleStack[:],
		Entry: k.idle,
	}); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kernel) idle(Thread) {
	for {
		k.cpu.WaitForInterrupt()
	}
}

// Start begins scheduling. It must be called once, from the boot goroutine,
// after the initial threads have been started; it returns when the first
// thread owns the CPU and the boot goroutine no longer runs kernel code.
func (k *Kernel) Start() error {
	s := k.lock()
	if k.started {
		k.cpu.Restore(s)
		return ErrStarted
	}
	k.started = true

	idle := &k.threads[idleThread]
	k.cpu.Spawn(&idle.ctx, func() { k.run(idleThread) })
	k.makeReady(idleThread, false)

	next := k.highestReady()
	k.removeReady(next)
	t := &k.threads[next]
	t.state = StateRunning
	t.quantum = k.cfg.TimeSlice
	k.current = next
	k.resched = false
	k.logf("kernel: started, %d threads, %d priorities, slice %d", k.count, k.cfg.Priorities, k.cfg.TimeSlice)
	k.cpu.Handoff(&t.ctx)
	return nil
}

// Started reports whether Start has been called.
func (k *Kernel) Started() bool {
	k.cpu.Lock()
	defer k.cpu.Unlock()
	return k.started
}

func (k *Kernel) lock() port.State { return k.cpu.Disable() }

// unlock leaves a critical section. Leaving the outermost one in thread
// context performs a pending reschedule and then runs pending signal
// handlers of the thread that owns the CPU afterwards.
func (k *Kernel) unlock(s port.State) {
	if s != 0 || !k.started || k.cpu.InInterrupt() {
		k.cpu.Restore(s)
		return
	}
	if k.resched {
		k.reschedule()
	}
	k.cpu.Restore(s)
	k.deliverSignals()
}

// blockable checks that the caller may suspend.
func (k *Kernel) blockable() error {
	if k.cpu.InInterrupt() {
		k.fault(FaultInterruptContext, ErrInterruptContext)
		return ErrInterruptContext
	}
	if !k.started {
		return ErrNotStarted
	}
	return nil
}

// Ticks returns the number of ticks since boot. It is safe from any context.
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// Current returns the thread that owns the CPU. It must be called from a
// thread or an interrupt handler.
func (k *Kernel) Current() Thread {
	return Thread{k: k, id: k.current}
}

// Thread returns the handle for id.
func (k *Kernel) Thread(id ThreadID) (Thread, bool) {
	if id == nilThread || int(id) > k.count {
		return Thread{}, false
	}
	return Thread{k: k, id: id}, true
}

// InInterrupt reports whether the caller runs in interrupt context.
func (k *Kernel) InInterrupt() bool { return k.cpu.InInterrupt() }

// RaiseTick queues a tick interrupt. It is safe from any goroutine and
// returns a sequence number for WaitHandled.
func (k *Kernel) RaiseTick() uint64 { return k.cpu.RaiseTick() }

// RaiseInterrupt queues fn to run in interrupt context, as a peripheral
// handler would. It is safe from any goroutine and returns a sequence number
// for WaitHandled.
func (k *Kernel) RaiseInterrupt(fn func()) uint64 {
	if fn == nil {
		return 0
	}
	return k.cpu.Raise(func() {
		defer func() {
			if r := recover(); r != nil {
				k.fault(FaultInterruptPanic, r)
			}
		}()
		fn()
	})
}

// WaitHandled blocks the calling goroutine, which must not be a kernel
// thread, until interrupt seq has been serviced.
func (k *Kernel) WaitHandled(seq uint64) { k.cpu.WaitHandled(seq) }

// WaitIdle blocks the calling goroutine, which must not be a kernel thread,
// until every thread is blocked and no interrupt is pending.
func (k *Kernel) WaitIdle() { k.cpu.WaitIdle() }

// Switches returns the number of context switches performed.
func (k *Kernel) Switches() uint64 {
	k.cpu.Lock()
	defer k.cpu.Unlock()
	return k.switches
}

func (k *Kernel) logf(format string, args ...any) {
	if k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString(fmt.Sprintf(format, args...))
}
