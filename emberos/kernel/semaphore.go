package kernel

import (
	"math"
	"sync/atomic"
)

// Semaphore is a counting semaphore with a FIFO queue of waiters.
type Semaphore struct {
	k       *Kernel
	count   atomic.Uint32
	max     uint32
	waiters threadList
}

// NewSemaphore returns a semaphore holding initial units.
func NewSemaphore(k *Kernel, initial uint32) *Semaphore {
	s := &Semaphore{k: k, max: math.MaxUint32}
	s.count.Store(initial)
	return s
}

// NewBoundedSemaphore returns a semaphore that never holds more than max
// units.
func NewBoundedSemaphore(k *Kernel, initial, max uint32) (*Semaphore, error) {
	if max == 0 || initial > max {
		return nil, ErrInvalidConfig
	}
	s := &Semaphore{k: k, max: max}
	s.count.Store(initial)
	return s, nil
}

// Wait takes one unit, blocking as w allows while none is available.
func (sem *Semaphore) Wait(w Waiter) error {
	k := sem.k
	s := k.lock()
	defer k.unlock(s)

	if v := sem.count.Load(); v > 0 {
		sem.count.Store(v - 1)
		return nil
	}
	return w.suspend(k, &sem.waiters, ReasonSemaphore)
}

// Post releases one unit. When threads are waiting the unit goes straight to
// the longest waiting one and the count is left unchanged. Post may be
// called from interrupt context.
func (sem *Semaphore) Post() error {
	k := sem.k
	s := k.lock()
	defer k.unlock(s)

	if id := k.popFront(&sem.waiters); id != nilThread {
		k.unblock(id, UnblockNormal)
		return nil
	}
	v := sem.count.Load()
	if v >= sem.max {
		return ErrOverflow
	}
	sem.count.Store(v + 1)
	return nil
}

// Value returns the number of available units. It is safe from any context.
func (sem *Semaphore) Value() uint32 { return sem.count.Load() }

// Waiting returns the number of threads blocked on the semaphore.
func (sem *Semaphore) Waiting() int {
	sem.k.cpu.Lock()
	defer sem.k.cpu.Unlock()
	return sem.waiters.n
}
