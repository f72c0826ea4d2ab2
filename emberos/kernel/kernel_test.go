package kernel

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
)

func newKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	if cfg.OnFault == nil {
		cfg.OnFault = func(f FaultInfo) { t.Errorf("unexpected fault: %s", f) }
	}
	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func spawn(t *testing.T, k *Kernel, name string, p Priority, entry func(Thread)) Thread {
	t.Helper()
	th, err := k.NewThread(ThreadConfig{
		Name:     name,
		Priority: p,
		Stack:    make([]byte, MinStackSize),
		Entry:    entry,
	})
	if err != nil {
		t.Fatalf("NewThread(%q) error = %v", name, err)
	}
	if err := th.Start(); err != nil {
		t.Fatalf("Start(%q) error = %v", name, err)
	}
	return th
}

// boot starts k and waits until every thread is blocked.
func boot(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	k.WaitIdle()
}

// interrupt runs fn in interrupt context and waits until the core is idle.
func interrupt(k *Kernel, fn func()) {
	k.WaitHandled(k.RaiseInterrupt(fn))
	k.WaitIdle()
}

// advance raises n ticks and waits until the core is idle.
func advance(k *Kernel, n int) {
	var seq uint64
	for i := 0; i < n; i++ {
		seq = k.RaiseTick()
	}
	k.WaitHandled(seq)
	k.WaitIdle()
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"one priority", Config{Priorities: 1}},
		{"too many priorities", Config{Priorities: MaxPriorities + 1}},
		{"negative threads", Config{MaxThreads: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("New() error = %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}

func TestNewThreadValidation(t *testing.T) {
	k := newKernel(t, Config{Priorities: 8, MaxThreads: 1})
	entry := func(Thread) {}
	stack := make([]byte, MinStackSize)

	tests := []struct {
		name string
		cfg  ThreadConfig
		want error
	}{
		{"no entry", ThreadConfig{Priority: 1, Stack: stack}, ErrNoEntry},
		{"idle priority", ThreadConfig{Priority: 0, Stack: stack, Entry: entry}, ErrInvalidPriority},
		{"priority out of range", ThreadConfig{Priority: 8, Stack: stack, Entry: entry}, ErrInvalidPriority},
		{"small stack", ThreadConfig{Priority: 1, Stack: stack[:MinStackSize-1], Entry: entry}, ErrStackTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := k.NewThread(tt.cfg); err != tt.want {
				t.Fatalf("NewThread() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := k.NewThread(ThreadConfig{Priority: 1, Stack: stack, Entry: entry}); err != nil {
		t.Fatalf("NewThread() error = %v", err)
	}
	if _, err := k.NewThread(ThreadConfig{Priority: 1, Stack: stack, Entry: entry}); err != ErrNoThreadSlots {
		t.Fatalf("NewThread() past MaxThreads error = %v, want %v", err, ErrNoThreadSlots)
	}
}

func TestStartTwice(t *testing.T) {
	k := newKernel(t, Config{})
	boot(t, k)
	var err error
	interrupt(k, func() { err = k.Start() })
	if err != ErrStarted {
		t.Fatalf("second Start() = %v, want %v", err, ErrStarted)
	}
}

func TestHighestPriorityRunsFirst(t *testing.T) {
	k := newKernel(t, Config{})
	var order []string
	for _, c := range []struct {
		name string
		p    Priority
	}{{"low", 1}, {"high", 9}, {"mid", 5}} {
		name := c.name
		spawn(t, k, name, c.p, func(Thread) { order = append(order, name) })
	}
	boot(t, k)

	want := []string{"high", "mid", "low"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestUnblockPreemptsLowerPriority(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var order []string

	spawn(t, k, "high", 8, func(Thread) {
		sem.Wait(Forever)
		order = append(order, "high")
	})
	spawn(t, k, "low", 2, func(Thread) {
		order = append(order, "low posts")
		sem.Post()
		order = append(order, "low resumes")
	})
	boot(t, k)

	want := []string{"low posts", "high", "low resumes"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestYieldRotatesEqualPriority(t *testing.T) {
	k := newKernel(t, Config{})
	var order []string
	for _, name := range []string{"a", "b"} {
		name := name
		spawn(t, k, name, 4, func(Thread) {
			order = append(order, name+"1")
			k.Yield()
			order = append(order, name+"2")
		})
	}
	boot(t, k)

	want := []string{"a1", "b1", "a2", "b2"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestRoundRobinSharesTheCPU(t *testing.T) {
	const slice, quanta = 5, 20
	k := newKernel(t, Config{TimeSlice: slice})
	var stop atomic.Bool
	spin := func(Thread) {
		for !stop.Load() {
			k.Checkpoint()
		}
	}
	a := spawn(t, k, "a", 3, spin)
	b := spawn(t, k, "b", 3, spin)
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var seq uint64
	for i := 0; i < slice*quanta; i++ {
		seq = k.RaiseTick()
	}
	k.WaitHandled(seq)
	ra, rb := a.RunTicks(), b.RunTicks()
	switches := k.Switches()
	stop.Store(true)
	k.WaitIdle()

	if ra != slice*quanta/2 || rb != slice*quanta/2 {
		t.Fatalf("RunTicks() = %d, %d, want %d each", ra, rb, slice*quanta/2)
	}
	if switches < quanta {
		t.Fatalf("Switches() = %d, want at least %d", switches, quanta)
	}
}

func TestSleepFor(t *testing.T) {
	k := newKernel(t, Config{})
	var err error = errors.New("not run")
	th := spawn(t, k, "sleeper", 3, func(Thread) { err = k.SleepFor(5) })
	boot(t, k)

	advance(k, 4)
	snap := k.Snapshot(make([]ThreadInfo, 0, 4))
	if got := snap[th.ID()-1]; got.State != StateBlocked || got.Reason != ReasonSleep {
		t.Fatalf("after 4 ticks = %s/%s, want blocked/sleep", got.State, got.Reason)
	}

	advance(k, 1)
	if s := th.State(); s != StateTerminated {
		t.Fatalf("after 5 ticks State() = %s, want terminated", s)
	}
	if err != nil {
		t.Fatalf("SleepFor() = %v, want nil", err)
	}
}

func TestSuspendResume(t *testing.T) {
	k := newKernel(t, Config{})
	var resumed bool
	th := spawn(t, k, "s", 3, func(Thread) {
		k.Suspend()
		resumed = true
	})
	boot(t, k)

	if s := th.State(); s != StateSuspended {
		t.Fatalf("State() = %s, want suspended", s)
	}
	var err error
	interrupt(k, func() { err = th.Resume() })
	if err != nil || !resumed {
		t.Fatalf("Resume() = %v, resumed = %v", err, resumed)
	}
	interrupt(k, func() { err = th.Resume() })
	if err != ErrBadState {
		t.Fatalf("Resume() of terminated = %v, want %v", err, ErrBadState)
	}
}

func TestJoin(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var order []string
	worker := spawn(t, k, "worker", 2, func(Thread) {
		sem.Wait(Forever)
		order = append(order, "worker")
	})
	spawn(t, k, "joiner", 5, func(th Thread) {
		if err := worker.Join(Forever); err != nil {
			t.Errorf("Join() = %v", err)
		}
		if err := th.Join(Forever); err != ErrDeadlock {
			t.Errorf("self Join() = %v, want %v", err, ErrDeadlock)
		}
		order = append(order, "joiner")
	})
	boot(t, k)
	interrupt(k, func() { sem.Post() })

	want := []string{"worker", "joiner"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestInterruptReleasesBlockedThread(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var err error
	th := spawn(t, k, "w", 3, func(Thread) { err = sem.Wait(Forever) })
	boot(t, k)

	var ok bool
	interrupt(k, func() { ok = th.Interrupt() })
	if !ok || err != ErrInterrupted {
		t.Fatalf("Interrupt() = %v, Wait() = %v, want true, %v", ok, err, ErrInterrupted)
	}
	if n := sem.Waiting(); n != 0 {
		t.Fatalf("Waiting() = %d, want 0", n)
	}
}

func TestBlockingInInterruptContextFaults(t *testing.T) {
	var faults []FaultKind
	k := newKernel(t, Config{OnFault: func(f FaultInfo) { faults = append(faults, f.Kind) }})
	sem := NewSemaphore(k, 0)
	boot(t, k)

	var err error
	interrupt(k, func() { err = sem.Wait(Forever) })
	if err != ErrInterruptContext {
		t.Fatalf("Wait() in interrupt = %v, want %v", err, ErrInterruptContext)
	}
	interrupt(k, func() { err = sem.Wait(NoWait) })
	if err != ErrWouldBlock {
		t.Fatalf("Wait(NoWait) in interrupt = %v, want %v", err, ErrWouldBlock)
	}
	want := []FaultKind{FaultInterruptContext}
	if !reflect.DeepEqual(faults, want) {
		t.Fatalf("faults = %v, want %v", faults, want)
	}
}

func TestThreadPanicFaultsAndTerminates(t *testing.T) {
	var got FaultInfo
	k := newKernel(t, Config{OnFault: func(f FaultInfo) { got = f }})
	th := spawn(t, k, "bad", 3, func(Thread) { panic("boom") })
	boot(t, k)

	if got.Kind != FaultThreadPanic || got.Name != "bad" || got.Value != "boom" {
		t.Fatalf("fault = %+v, want thread panic of bad", got)
	}
	if s := th.State(); s != StateTerminated {
		t.Fatalf("State() = %s, want terminated", s)
	}
}

func TestSetPriorityReorders(t *testing.T) {
	k := newKernel(t, Config{})
	var order []string
	var b Thread
	spawn(t, k, "a", 5, func(Thread) {
		order = append(order, "a")
		b.SetPriority(9)
		order = append(order, "a2")
	})
	b = spawn(t, k, "b", 2, func(Thread) { order = append(order, "b") })
	boot(t, k)

	want := []string{"a", "b", "a2"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if p := b.Priority(); p != 9 {
		t.Fatalf("Priority() = %d, want 9", p)
	}
}

func TestSnapshotListsThreads(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	spawn(t, k, "waiter", 3, func(Thread) { sem.Wait(Forever) })
	boot(t, k)

	snap := k.Snapshot(make([]ThreadInfo, 0, 8))
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
	}
	if snap[0].Name != "idle" || snap[0].State != StateRunning {
		t.Fatalf("Snapshot()[0] = %+v, want running idle", snap[0])
	}
	if snap[1].Name != "waiter" || snap[1].Reason != ReasonSemaphore {
		t.Fatalf("Snapshot()[1] = %+v, want waiter blocked on semaphore", snap[1])
	}
	if got := k.Snapshot(make([]ThreadInfo, 0, 1)); len(got) != 1 {
		t.Fatalf("Snapshot() with cap 1 returned %d entries", len(got))
	}
}
