package kernel

import (
	"math"
	"testing"
)

func TestAfterSaturates(t *testing.T) {
	tests := []struct {
		now, n, want uint64
	}{
		{0, 5, 5},
		{10, 0, 10},
		{1, math.MaxUint64, math.MaxUint64},
		{math.MaxUint64 - 1, 1, math.MaxUint64},
		{math.MaxUint64 - 1, 2, math.MaxUint64},
	}
	for _, tt := range tests {
		if got := after(tt.now, tt.n); got != tt.want {
			t.Fatalf("after(%d, %d) = %d, want %d", tt.now, tt.n, got, tt.want)
		}
	}
}

func TestHugeRelativeTimeoutsDoNotWrap(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var semDone, sleepDone bool

	sem1 := spawn(t, k, "sem", 4, func(Thread) {
		k.SleepFor(1)
		sem.Wait(For(math.MaxUint64))
		semDone = true
	})
	sleeper := spawn(t, k, "sleep", 4, func(Thread) {
		k.SleepFor(1)
		k.SleepFor(math.MaxUint64)
		sleepDone = true
	})
	boot(t, k)

	tm := NewSoftwareTimer(k, func() { t.Error("timer with huge delay fired") })
	advance(k, 2)
	var deadline uint64
	interrupt(k, func() {
		tm.Start(math.MaxUint64)
		deadline = tm.Deadline()
	})
	advance(k, 10)

	if semDone || sleepDone {
		t.Fatalf("sem done = %v, sleep done = %v, want both blocked", semDone, sleepDone)
	}
	if s := sem1.State(); s != StateBlocked {
		t.Fatalf("sem thread State() = %v, want %v", s, StateBlocked)
	}
	if s := sleeper.State(); s != StateBlocked {
		t.Fatalf("sleep thread State() = %v, want %v", s, StateBlocked)
	}
	if deadline != math.MaxUint64 || !tm.IsRunning() {
		t.Fatalf("Deadline(), IsRunning() = %d, %v, want %d, true", deadline, tm.IsRunning(), uint64(math.MaxUint64))
	}
}

func TestStopOnZeroTimer(t *testing.T) {
	var tm SoftwareTimer
	tm.Stop()
	if tm.IsRunning() {
		t.Fatal("IsRunning() = true on zero timer")
	}
}
