package kernel

import "math"

// after returns the tick n ticks past now, saturating at the largest tick
// instead of wrapping.
func after(now, n uint64) uint64 {
	if at := now + n; at >= now {
		return at
	}
	return math.MaxUint64
}

// tick is the tick interrupt handler.
func (k *Kernel) tick() {
	now := k.ticks.Add(1)
	if !k.started {
		k.expireTimers(now)
		return
	}

	id := k.current
	t := &k.threads[id]
	t.runTicks++
	k.expireTimers(now)

	if id == idleThread || t.state != StateRunning {
		return
	}
	if t.quantum > 1 {
		t.quantum--
		return
	}
	t.quantum = k.cfg.TimeSlice
	if k.ready[t.effective].empty() {
		return
	}
	t.state = StateReady
	k.enqueue(id, false)
	k.resched = true
}
