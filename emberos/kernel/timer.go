package kernel

import "sync/atomic"

// SoftwareTimer runs a callback once a deadline in ticks has passed,
// optionally repeating with a fixed period.
//
// Callbacks run in interrupt context with interrupts masked. They must be
// short and must not block; they may post semaphores, generate signals and
// start or stop timers.
type SoftwareTimer struct {
	k  *Kernel
	fn func()

	deadline uint64
	period   uint64
	next     *SoftwareTimer
	armed    atomic.Bool
}

// NewSoftwareTimer returns an unarmed timer that calls fn on expiry.
func NewSoftwareTimer(k *Kernel, fn func()) *SoftwareTimer {
	t := &SoftwareTimer{}
	t.Init(k, fn)
	return t
}

// Init prepares a statically allocated timer. It must not be called on an
// armed timer.
func (t *SoftwareTimer) Init(k *Kernel, fn func()) {
	t.k = k
	t.fn = fn
}

// Start arms a one-shot timer that fires delay ticks from now.
func (t *SoftwareTimer) Start(delay uint64) error {
	return t.start(delay, 0, true)
}

// StartPeriodic arms a timer that first fires delay ticks from now and then
// every period ticks. A zero period arms a one-shot timer.
func (t *SoftwareTimer) StartPeriodic(delay, period uint64) error {
	return t.start(delay, period, true)
}

// StartAt arms a timer for an absolute deadline. A deadline that has
// already passed fires on the next tick.
func (t *SoftwareTimer) StartAt(deadline, period uint64) error {
	return t.start(deadline, period, false)
}

func (t *SoftwareTimer) start(at, period uint64, relative bool) error {
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	if t.armed.Load() {
		return ErrTimerRunning
	}
	if relative {
		at = after(k.ticks.Load(), at)
	}
	t.arm(at, period)
	return nil
}

// Stop disarms the timer. Stopping an unarmed timer does nothing.
func (t *SoftwareTimer) Stop() {
	k := t.k
	if k == nil || !t.armed.Load() {
		return
	}
	s := k.lock()
	t.stop()
	k.unlock(s)
}

// IsRunning reports whether the timer is armed. It is safe from any context.
func (t *SoftwareTimer) IsRunning() bool { return t.armed.Load() }

// Deadline returns the tick at which an armed timer fires next.
func (t *SoftwareTimer) Deadline() uint64 {
	k := t.k
	s := k.lock()
	defer k.unlock(s)
	return t.deadline
}

func (t *SoftwareTimer) arm(deadline, period uint64) {
	t.deadline = deadline
	t.period = period
	t.k.insertTimer(t)
	t.armed.Store(true)
}

func (t *SoftwareTimer) stop() {
	if !t.armed.Load() {
		return
	}
	for pp := &t.k.timers; *pp != nil; pp = &(*pp).next {
		if *pp == t {
			*pp = t.next
			break
		}
	}
	t.next = nil
	t.armed.Store(false)
}

// insertTimer keeps the list ascending by deadline. A timer goes after every
// timer with the same deadline.
func (k *Kernel) insertTimer(t *SoftwareTimer) {
	pp := &k.timers
	for *pp != nil && (*pp).deadline <= t.deadline {
		pp = &(*pp).next
	}
	t.next = *pp
	*pp = t
}

// expireTimers fires every timer due at now in list order. Periodic timers
// are re-armed before their callback runs.
func (k *Kernel) expireTimers(now uint64) {
	for k.timers != nil && k.timers.deadline <= now {
		t := k.timers
		k.timers = t.next
		t.next = nil
		t.armed.Store(false)
		if t.period > 0 {
			t.arm(after(t.deadline, t.period), t.period)
		}
		k.fire(t)
	}
}

func (k *Kernel) fire(t *SoftwareTimer) {
	defer func() {
		if r := recover(); r != nil {
			k.fault(FaultTimerPanic, r)
		}
	}()
	t.fn()
}

// ActiveTimers returns the number of armed timers.
func (k *Kernel) ActiveTimers() int {
	k.cpu.Lock()
	defer k.cpu.Unlock()
	n := 0
	for t := k.timers; t != nil; t = t.next {
		n++
	}
	return n
}
