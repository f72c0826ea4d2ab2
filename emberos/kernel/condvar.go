package kernel

// CondVar is a condition variable: a FIFO queue of threads waiting for a
// condition protected by a mutex.
type CondVar struct {
	k       *Kernel
	waiters threadList
}

// NewCondVar returns a condition variable with no waiters.
func NewCondVar(k *Kernel) *CondVar {
	return &CondVar{k: k}
}

// Wait releases m, which the caller must own, and waits as w allows for a
// notification. Releasing m and queueing the caller happen in one critical
// section, so a notification sent after m is released is never missed.
//
// m is re-acquired before Wait returns, whatever the outcome of the wait,
// with the recursion depth the caller held.
func (cv *CondVar) Wait(w Waiter, m *Mutex) error {
	k := cv.k
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	defer k.unlock(s)

	if m.owner != k.current {
		return ErrNotOwner
	}
	depth := m.depth
	m.release()

	err := w.suspend(k, &cv.waiters, ReasonConditionVariable)

	for m.take(Forever) == ErrInterrupted {
	}
	m.depth = depth
	return err
}

// NotifyOne wakes the longest waiting thread, if any. It may be called from
// interrupt context.
func (cv *CondVar) NotifyOne() {
	k := cv.k
	s := k.lock()
	defer k.unlock(s)
	if id := k.popFront(&cv.waiters); id != nilThread {
		k.unblock(id, UnblockNormal)
	}
}

// NotifyAll wakes every waiting thread in FIFO order.
func (cv *CondVar) NotifyAll() {
	k := cv.k
	s := k.lock()
	defer k.unlock(s)
	for id := k.popFront(&cv.waiters); id != nilThread; id = k.popFront(&cv.waiters) {
		k.unblock(id, UnblockNormal)
	}
}
