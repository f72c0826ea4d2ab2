package kernel

import (
	"fmt"
	"reflect"
	"testing"
)

func TestSemaphoreWakesWaiter(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var err error = fmt.Errorf("not run")
	th := spawn(t, k, "t", 4, func(Thread) { err = sem.Wait(Forever) })
	boot(t, k)

	if s := th.State(); s != StateBlocked {
		t.Fatalf("State() = %s, want blocked", s)
	}
	interrupt(k, func() { sem.Post() })

	if err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	if v := sem.Value(); v != 0 {
		t.Fatalf("Value() = %d, want 0", v)
	}
}

func TestSemaphoreAccountingAndFIFO(t *testing.T) {
	const initial = 2
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, initial)
	var done []string
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("t%d", i)
		spawn(t, k, name, 4, func(Thread) {
			if err := sem.Wait(Forever); err == nil {
				done = append(done, name)
			}
		})
	}
	boot(t, k)

	if len(done) != initial {
		t.Fatalf("completions = %d, want %d", len(done), initial)
	}
	if n := sem.Waiting(); n != 3 {
		t.Fatalf("Waiting() = %d, want 3", n)
	}

	posts := 0
	for want := initial + 1; want <= 5; want++ {
		interrupt(k, func() { sem.Post() })
		posts++
		if len(done) != want || len(done) > initial+posts {
			t.Fatalf("after %d posts completions = %d, want %d", posts, len(done), want)
		}
		if v := sem.Value(); v != 0 {
			t.Fatalf("Value() = %d, want 0 while threads wait", v)
		}
	}
	interrupt(k, func() { sem.Post() })
	if v := sem.Value(); v != 1 {
		t.Fatalf("Value() = %d, want 1", v)
	}

	want := []string{"t1", "t2", "t3", "t4", "t5"}
	if !reflect.DeepEqual(done, want) {
		t.Fatalf("completion order = %v, want %v", done, want)
	}
}

func TestSemaphoreNoWaitAndTimeout(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var noWait, timed error
	th := spawn(t, k, "t", 4, func(Thread) {
		noWait = sem.Wait(NoWait)
		timed = sem.Wait(For(3))
	})
	boot(t, k)

	if noWait != ErrWouldBlock {
		t.Fatalf("Wait(NoWait) = %v, want %v", noWait, ErrWouldBlock)
	}
	advance(k, 2)
	if s := th.State(); s != StateBlocked {
		t.Fatalf("after 2 ticks State() = %s, want blocked", s)
	}
	advance(k, 1)
	if timed != ErrTimedOut {
		t.Fatalf("Wait(For(3)) = %v, want %v", timed, ErrTimedOut)
	}
	if n := sem.Waiting(); n != 0 {
		t.Fatalf("Waiting() = %d, want 0", n)
	}
}

func TestSemaphoreWaitUntilPassedDeadline(t *testing.T) {
	k := newKernel(t, Config{})
	sem := NewSemaphore(k, 0)
	var err error
	gate := NewSemaphore(k, 0)
	spawn(t, k, "t", 4, func(Thread) {
		gate.Wait(Forever)
		err = sem.Wait(Until(k.Ticks()))
	})
	boot(t, k)
	advance(k, 3)
	interrupt(k, func() { gate.Post() })

	if err != ErrTimedOut {
		t.Fatalf("Wait(Until(now)) = %v, want %v", err, ErrTimedOut)
	}
}

func TestBoundedSemaphore(t *testing.T) {
	k := newKernel(t, Config{})
	if _, err := NewBoundedSemaphore(k, 3, 2); err != ErrInvalidConfig {
		t.Fatalf("NewBoundedSemaphore(3, 2) error = %v, want %v", err, ErrInvalidConfig)
	}
	sem, err := NewBoundedSemaphore(k, 1, 2)
	if err != nil {
		t.Fatalf("NewBoundedSemaphore() error = %v", err)
	}
	boot(t, k)

	var errs []error
	interrupt(k, func() {
		errs = append(errs, sem.Post(), sem.Post())
	})
	want := []error{nil, ErrOverflow}
	if !reflect.DeepEqual(errs, want) {
		t.Fatalf("Post() = %v, want %v", errs, want)
	}
	if v := sem.Value(); v != 2 {
		t.Fatalf("Value() = %d, want 2", v)
	}
}
