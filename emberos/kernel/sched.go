package kernel

import "math/bits"

// All functions in this file run with interrupts masked.

func (k *Kernel) highestReady() ThreadID {
	for i := len(k.readyBits) - 1; i >= 0; i-- {
		if w := k.readyBits[i]; w != 0 {
			return k.ready[i*32+bits.Len32(w)-1].head
		}
	}
	return nilThread
}

func (k *Kernel) enqueue(id ThreadID, front bool) {
	p := int(k.threads[id].effective)
	if front {
		k.pushFront(&k.ready[p], id)
	} else {
		k.pushBack(&k.ready[p], id)
	}
	k.readyBits[p/32] |= 1 << (p % 32)
}

func (k *Kernel) removeReady(id ThreadID) {
	p := int(k.threads[id].effective)
	l := &k.ready[p]
	k.remove(l, id)
	if l.empty() {
		k.readyBits[p/32] &^= 1 << (p % 32)
	}
}

func (k *Kernel) makeReady(id ThreadID, front bool) {
	t := &k.threads[id]
	t.state = StateReady
	t.reason = ReasonNone
	k.enqueue(id, front)
	k.resched = true
}

// reschedule runs the highest ready thread if the running one has to give
// way. A running thread is only preempted by a strictly higher priority and
// then goes back to the front of its level.
func (k *Kernel) reschedule() {
	k.resched = false
	cur := &k.threads[k.current]
	next := k.highestReady()
	if cur.state == StateRunning {
		if next == nilThread || k.threads[next].effective <= cur.effective {
			return
		}
		cur.state = StateReady
		k.enqueue(k.current, true)
	}
	k.switchTo(next)
}

func (k *Kernel) switchTo(next ThreadID) {
	prev := k.current
	k.removeReady(next)
	n := &k.threads[next]
	n.state = StateRunning
	if n.quantum == 0 {
		n.quantum = k.cfg.TimeSlice
	}
	if next == prev {
		return
	}
	k.current = next
	k.switches++
	k.cpu.Switch(&k.threads[prev].ctx, &n.ctx)
}

// block parks the running thread on l until unblock is called for it, or
// until deadline when timed. It returns why the thread was woken.
func (k *Kernel) block(l *threadList, reason BlockReason, deadline uint64, timed bool) UnblockReason {
	id := k.current
	t := &k.threads[id]
	t.state = StateBlocked
	t.reason = reason
	t.unblockReason = UnblockNone
	k.pushBack(l, id)
	if timed {
		t.timeout.arm(deadline, 0)
	}
	if reason == ReasonMutex && t.waitingOn != nil {
		k.updateInheritance(t.waitingOn.owner)
	}
	k.reschedule()
	return t.unblockReason
}

// unblock moves a blocked thread to the back of its ready level.
func (k *Kernel) unblock(id ThreadID, why UnblockReason) {
	t := &k.threads[id]
	if t.state != StateBlocked {
		return
	}
	if t.list != nil {
		k.remove(t.list, id)
	}
	t.timeout.stop()
	t.unblockReason = why
	if m := t.waitingOn; m != nil {
		t.waitingOn = nil
		if why != UnblockNormal && m.owner != nilThread {
			k.updateInheritance(m.owner)
		}
	}
	k.makeReady(id, false)
}

// updateInheritance recomputes the effective priority of id and of every
// owner down the chain of mutexes it waits on.
func (k *Kernel) updateInheritance(id ThreadID) {
	for id != nilThread {
		t := &k.threads[id]
		p := t.priority
		for m := t.owned; m != nil; m = m.nextOwned {
			if m.protocol != ProtocolInherit {
				continue
			}
			for w := m.waiters.head; w != nilThread; w = k.threads[w].next {
				if e := k.threads[w].effective; e > p {
					p = e
				}
			}
		}
		if p == t.effective {
			return
		}
		k.setEffective(id, p)
		if t.state != StateBlocked || t.waitingOn == nil {
			return
		}
		id = t.waitingOn.owner
	}
}

func (k *Kernel) setEffective(id ThreadID, p Priority) {
	t := &k.threads[id]
	switch t.state {
	case StateReady:
		k.removeReady(id)
		t.effective = p
		k.enqueue(id, false)
		k.resched = true
	case StateRunning:
		t.effective = p
		k.resched = true
	default:
		t.effective = p
	}
}

// pendSV runs after every interrupt, still masked.
func (k *Kernel) pendSV() {
	if k.started && k.resched {
		k.reschedule()
	}
}

// Yield moves the running thread to the back of its priority level.
func (k *Kernel) Yield() error {
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	t := &k.threads[k.current]
	t.state = StateReady
	t.quantum = k.cfg.TimeSlice
	k.enqueue(k.current, false)
	k.resched = true
	k.unlock(s)
	return nil
}

// SleepFor suspends the running thread for n ticks. SleepFor(0) yields.
func (k *Kernel) SleepFor(n uint64) error {
	if n == 0 {
		return k.Yield()
	}
	return k.SleepUntil(after(k.Ticks(), n))
}

// SleepUntil suspends the running thread until the tick counter reaches
// deadline. It returns ErrInterrupted when woken early by Thread.Interrupt
// or a caught signal.
func (k *Kernel) SleepUntil(deadline uint64) error {
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	defer k.unlock(s)
	if deadline <= k.ticks.Load() {
		return nil
	}
	if why := k.block(&k.sleepers, ReasonSleep, deadline, true); why == UnblockInterrupted {
		return ErrInterrupted
	}
	return nil
}

// Suspend parks the running thread until another context calls Resume.
func (k *Kernel) Suspend() error {
	if err := k.blockable(); err != nil {
		return err
	}
	s := k.lock()
	defer k.unlock(s)
	id := k.current
	t := &k.threads[id]
	t.state = StateSuspended
	k.pushBack(&k.suspended, id)
	k.reschedule()
	return nil
}

// Checkpoint is an explicit preemption point for threads that compute
// without calling into the kernel. Pending interrupts are serviced, a
// higher priority thread or an expired time slice takes the CPU, and
// pending signal handlers run.
func (k *Kernel) Checkpoint() {
	k.unlock(k.lock())
}
