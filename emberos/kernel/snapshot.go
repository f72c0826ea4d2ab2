package kernel

// ThreadInfo is a point-in-time view of one thread.
type ThreadInfo struct {
	ID        ThreadID
	Name      string
	Priority  Priority
	Effective Priority
	State     State
	Reason    BlockReason
	RunTicks  uint64
	Pending   SignalSet
	StackSize int
}

// Snapshot fills dst with the threads of k, in creation order, and returns
// the filled prefix. It takes the observer lock and must not be called from
// interrupt context.
func (k *Kernel) Snapshot(dst []ThreadInfo) []ThreadInfo {
	k.cpu.Lock()
	defer k.cpu.Unlock()

	dst = dst[:0]
	for id := ThreadID(1); int(id) <= k.count && len(dst) < cap(dst); id++ {
		t := &k.threads[id]
		info := ThreadInfo{
			ID:        id,
			Name:      t.name,
			Priority:  t.priority,
			Effective: t.effective,
			State:     t.state,
			RunTicks:  t.runTicks,
			Pending:   t.signals.pending,
			StackSize: len(t.stack),
		}
		if t.state == StateBlocked {
			info.Reason = t.reason
		}
		dst = append(dst, info)
	}
	return dst
}

// ThreadCount returns the number of threads created, the idle thread
// included.
func (k *Kernel) ThreadCount() int {
	k.cpu.Lock()
	defer k.cpu.Unlock()
	return k.count
}
