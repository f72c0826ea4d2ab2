package kernel

import "ember/emberos/kernel/port"

// ThreadID identifies a thread slot in the kernel's arena. Zero is never a
// valid thread.
type ThreadID uint16

const nilThread ThreadID = 0

// Priority orders threads; a higher value runs first. Zero is reserved for
// the idle thread.
type Priority uint8

// State is the scheduling state of a thread.
type State uint8

const (
	StateCreated State = iota
	StateReady
	StateRunning
	StateBlocked
	StateSuspended
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// BlockReason records what a blocked thread waits for.
type BlockReason uint8

const (
	ReasonNone BlockReason = iota
	ReasonSemaphore
	ReasonMutex
	ReasonConditionVariable
	ReasonSleep
	ReasonSignal
	ReasonJoin
)

func (r BlockReason) String() string {
	switch r {
	case ReasonNone:
		return "-"
	case ReasonSemaphore:
		return "semaphore"
	case ReasonMutex:
		return "mutex"
	case ReasonConditionVariable:
		return "condvar"
	case ReasonSleep:
		return "sleep"
	case ReasonSignal:
		return "signal"
	case ReasonJoin:
		return "join"
	default:
		return "unknown"
	}
}

// UnblockReason records why a blocked thread became ready again.
type UnblockReason uint8

const (
	UnblockNone UnblockReason = iota
	UnblockNormal
	UnblockTimeout
	UnblockInterrupted
)

func (r UnblockReason) err() error {
	switch r {
	case UnblockTimeout:
		return ErrTimedOut
	case UnblockInterrupted:
		return ErrInterrupted
	default:
		return nil
	}
}

// ThreadConfig describes a thread to create.
type ThreadConfig struct {
	Name     string
	Priority Priority
	// Stack is the stack region reserved for the thread. The kernel never
	// allocates stacks; it must hold at least MinStackSize bytes.
	Stack []byte
	Entry func(Thread)
}

// tcb is the thread control block.
type tcb struct {
	name      string
	entry     func(Thread)
	stack     []byte
	priority  Priority
	effective Priority

	state         State
	reason        BlockReason
	unblockReason UnblockReason
	quantum       uint32
	runTicks      uint64

	ctx  port.Context
	prev ThreadID
	next ThreadID
	list *threadList

	timeout   SoftwareTimer
	joiners   threadList
	owned     *Mutex
	waitingOn *Mutex
	signals   receiver
}

// Thread is a handle to a kernel thread.
type Thread struct {
	k  *Kernel
	id ThreadID
}

// ID returns the thread's slot number.
func (t Thread) ID() ThreadID { return t.id }

// Valid reports whether t refers to a thread.
func (t Thread) Valid() bool { return t.k != nil && t.id != nilThread }

// NewThread creates a thread in the Created state. It must be called from
// the boot goroutine before Start, or from a thread.
func (k *Kernel) NewThread(cfg ThreadConfig) (Thread, error) {
	if cfg.Entry == nil {
		return Thread{}, ErrNoEntry
	}
	if cfg.Priority == 0 || int(cfg.Priority) >= k.cfg.Priorities {
		return Thread{}, ErrInvalidPriority
	}
	if len(cfg.Stack) < MinStackSize {
		return Thread{}, ErrStackTooSmall
	}

	s := k.lock()
	defer k.unlock(s)
	return k.newThread(cfg)
}

func (k *Kernel) newThread(cfg ThreadConfig) (Thread, error) {
	if k.count >= len(k.threads)-1 {
		return Thread{}, ErrNoThreadSlots
	}
	k.count++
	id := ThreadID(k.count)
	k.threads[id] = tcb{
		name:      cfg.Name,
		entry:     cfg.Entry,
		stack:     cfg.Stack,
		priority:  cfg.Priority,
		effective: cfg.Priority,
		state:     StateCreated,
	}
	t := &k.threads[id]
	t.timeout = SoftwareTimer{k: k, fn: func() { k.unblock(id, UnblockTimeout) }}
	return Thread{k: k, id: id}, nil
}

// Start makes a created thread ready to run.
func (t Thread) Start() error {
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	tc := &k.threads[t.id]
	if tc.state != StateCreated {
		return ErrBadState
	}
	k.cpu.Spawn(&tc.ctx, func() { k.run(t.id) })
	k.makeReady(t.id, false)
	return nil
}

// run is the body of every thread goroutine.
func (k *Kernel) run(id ThreadID) {
	k.unlock(0)

	tc := &k.threads[id]
	k.call(id, tc.entry)

	k.lock()
	k.exit(id)
}

func (k *Kernel) call(id ThreadID, entry func(Thread)) {
	defer func() {
		if r := recover(); r != nil {
			s := k.lock()
			k.fault(FaultThreadPanic, r)
			k.unlock(s)
		}
	}()
	entry(Thread{k: k, id: id})
}

// exit terminates the running thread and gives the CPU away for good.
func (k *Kernel) exit(id ThreadID) {
	tc := &k.threads[id]
	tc.state = StateTerminated
	tc.timeout.stop()
	for w := k.popFront(&tc.joiners); w != nilThread; w = k.popFront(&tc.joiners) {
		k.unblock(w, UnblockNormal)
	}
	k.logf("thread %d (%s) terminated", id, tc.name)

	next := k.highestReady()
	k.removeReady(next)
	n := &k.threads[next]
	n.state = StateRunning
	if n.quantum == 0 {
		n.quantum = k.cfg.TimeSlice
	}
	k.current = next
	k.resched = false
	k.switches++
	k.cpu.Handoff(&n.ctx)
}

// Join waits, as w allows, for t to terminate.
func (t Thread) Join(w Waiter) error {
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	if t.id == k.current {
		return ErrDeadlock
	}
	tc := &k.threads[t.id]
	if tc.state == StateTerminated {
		return nil
	}
	return w.suspend(k, &tc.joiners, ReasonJoin)
}

// Resume makes a suspended thread ready again.
func (t Thread) Resume() error {
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	if k.threads[t.id].state != StateSuspended {
		return ErrBadState
	}
	k.remove(&k.suspended, t.id)
	k.makeReady(t.id, false)
	return nil
}

// Interrupt releases t from whatever it is blocked on; its wait returns
// ErrInterrupted. It reports whether t was blocked.
func (t Thread) Interrupt() bool {
	k := t.k
	s := k.lock()
	defer k.unlock(s)

	if k.threads[t.id].state != StateBlocked {
		return false
	}
	k.unblock(t.id, UnblockInterrupted)
	return true
}

// SetPriority changes the static priority of t. The effective priority
// still honours any priority inherited through mutexes.
func (t Thread) SetPriority(p Priority) error {
	k := t.k
	if p == 0 || int(p) >= k.cfg.Priorities {
		return ErrInvalidPriority
	}
	s := k.lock()
	defer k.unlock(s)

	tc := &k.threads[t.id]
	if tc.state == StateTerminated {
		return ErrBadState
	}
	tc.priority = p
	k.updateInheritance(t.id)
	return nil
}

// Name returns the name given at creation.
func (t Thread) Name() string {
	return t.k.threads[t.id].name
}

// The accessors below take the observer lock. They may be called from
// threads and from goroutines outside the kernel, but not from interrupt
// context (timer callbacks, RaiseInterrupt handlers, fault handlers).

// State returns the scheduling state of t.
func (t Thread) State() State {
	t.k.cpu.Lock()
	defer t.k.cpu.Unlock()
	return t.k.threads[t.id].state
}

// Priority returns the static priority of t.
func (t Thread) Priority() Priority {
	t.k.cpu.Lock()
	defer t.k.cpu.Unlock()
	return t.k.threads[t.id].priority
}

// EffectivePriority returns the priority t is scheduled at, including
// inheritance.
func (t Thread) EffectivePriority() Priority {
	t.k.cpu.Lock()
	defer t.k.cpu.Unlock()
	return t.k.threads[t.id].effective
}

// RunTicks returns how many ticks were charged to t while it was running.
func (t Thread) RunTicks() uint64 {
	t.k.cpu.Lock()
	defer t.k.cpu.Unlock()
	return t.k.threads[t.id].runTicks
}

// PendingSignals returns the signals generated for t and not yet consumed.
func (t Thread) PendingSignals() SignalSet {
	t.k.cpu.Lock()
	defer t.k.cpu.Unlock()
	return t.k.threads[t.id].signals.pending
}
