// Package port is the processor layer beneath the kernel: the interrupt
// mask, interrupt delivery and the context switch.
//
// The core is emulated with goroutines. Every kernel thread runs on its own
// goroutine, but only the goroutine that owns the CPU executes; ownership is
// handed over explicitly by Switch and Handoff. Interrupt sources outside the
// CPU (a tick timer, a test, a window loop) only queue requests; the owning
// goroutine services them at its next safe point, which is any Restore that
// unmasks interrupts, or WaitForInterrupt when the core is idle.
package port

import "sync"

// State is the interrupt mask state returned by Disable. It must be passed
// back to Restore on the same context.
type State int

// Context is the saved execution context of one thread.
type Context struct {
	wake  chan struct{}
	depth int
}

// CPU is one emulated core.
//
// Masking interrupts holds mu, so code outside the CPU can still inspect
// kernel state safely with Lock/Unlock while the core runs unmasked.
type CPU struct {
	mu    sync.Mutex
	depth int
	isr   bool
	hw    hwState

	tick   func()
	pendSV func()

	qmu      sync.Mutex
	cond     *sync.Cond
	queue    []func() // nil entries are tick interrupts
	raised   uint64
	handled  uint64
	sleeping bool
}

// New returns a CPU that runs tick for every raised tick interrupt and calls
// pendSV, still masked, after each serviced interrupt.
func New(tick, pendSV func()) *CPU {
	c := &CPU{tick: tick, pendSV: pendSV}
	c.cond = sync.NewCond(&c.qmu)
	return c
}

// Disable masks interrupts and returns the previous state.
// Only the goroutine that owns the CPU may call it.
func (c *CPU) Disable() State {
	if c.depth == 0 {
		c.mu.Lock()
		c.hw = maskHW()
	}
	c.depth++
	return State(c.depth - 1)
}

// Restore returns to a state obtained from Disable. Unmasking services any
// pending interrupts before returning.
func (c *CPU) Restore(s State) {
	if !c.restore(s) {
		return
	}
	c.poll()
}

func (c *CPU) restore(s State) bool {
	c.depth = int(s)
	if c.depth > 0 {
		return false
	}
	hw := c.hw
	c.mu.Unlock()
	unmaskHW(hw)
	return true
}

// InInterrupt reports whether the CPU is executing an interrupt handler.
func (c *CPU) InInterrupt() bool { return c.isr }

// Lock masks the CPU for read-only inspection of kernel state by a goroutine
// that does not own it, or by the owner while interrupts are enabled. It
// must not be used with interrupts masked, which already holds it.
func (c *CPU) Lock() { c.mu.Lock() }

// Unlock releases Lock.
func (c *CPU) Unlock() { c.mu.Unlock() }

// Spawn prepares ctx to run entry on a new goroutine the first time it is
// switched to. entry starts with interrupts masked at depth 1.
func (c *CPU) Spawn(ctx *Context, entry func()) {
	ctx.wake = make(chan struct{}, 1)
	ctx.depth = 1
	go func() {
		<-ctx.wake
		c.depth = ctx.depth
		entry()
	}()
}

// Switch saves the running context into from and resumes to. It must be
// called with interrupts masked and returns once from is resumed.
func (c *CPU) Switch(from, to *Context) {
	from.depth = c.depth
	to.wake <- struct{}{}
	<-from.wake
	c.depth = from.depth
}

// Handoff resumes to without saving the caller, which gives up the CPU for
// good. It is used at boot and when a thread terminates.
func (c *CPU) Handoff(to *Context) {
	to.wake <- struct{}{}
}

// RaiseTick requests a tick interrupt and returns its sequence number.
// It is safe to call from any goroutine.
func (c *CPU) RaiseTick() uint64 {
	return c.raise(nil)
}

// Raise requests an interrupt that runs fn and returns its sequence number.
// It is safe to call from any goroutine.
func (c *CPU) Raise(fn func()) uint64 {
	if fn == nil {
		return 0
	}
	return c.raise(fn)
}

func (c *CPU) raise(fn func()) uint64 {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	c.queue = append(c.queue, fn)
	c.raised++
	c.cond.Broadcast()
	return c.raised
}

// WaitForInterrupt parks the owning goroutine until an interrupt is
// pending, then services it. Interrupts must be unmasked.
func (c *CPU) WaitForInterrupt() {
	c.qmu.Lock()
	for len(c.queue) == 0 {
		c.sleeping = true
		c.cond.Broadcast()
		c.cond.Wait()
	}
	c.sleeping = false
	c.qmu.Unlock()
	c.poll()
}

// WaitHandled blocks until the interrupt with sequence number seq has been
// serviced. Interrupts are serviced in the order they were raised.
func (c *CPU) WaitHandled(seq uint64) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	for c.handled < seq {
		c.cond.Wait()
	}
}

// WaitIdle blocks until the core sleeps in WaitForInterrupt with nothing
// pending.
func (c *CPU) WaitIdle() {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	for !c.sleeping || len(c.queue) > 0 {
		c.cond.Wait()
	}
}

func (c *CPU) poll() {
	for {
		fn, ok := c.next()
		if !ok {
			return
		}
		c.service(fn)
	}
}

func (c *CPU) next() (func(), bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	fn := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if fn == nil {
		fn = c.tick
	}
	return fn, true
}

func (c *CPU) service(fn func()) {
	s := c.Disable()
	c.isr = true
	fn()
	c.isr = false

	c.qmu.Lock()
	c.handled++
	c.cond.Broadcast()
	c.qmu.Unlock()

	// The handler may have readied a thread; the switch happens here, after
	// the interrupt returns, and resumes this goroutine later.
	c.pendSV()
	c.restore(s)
}
