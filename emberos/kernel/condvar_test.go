package kernel

import (
	"reflect"
	"testing"
)

func TestCondVarProducerConsumer(t *testing.T) {
	k := newKernel(t, Config{})
	m := NewMutex(k, MutexNormal, ProtocolNone)
	cv := NewCondVar(k)
	gate := NewSemaphore(k, 0)
	ready := false
	var waitErr error
	var order []string

	spawn(t, k, "consumer", 5, func(Thread) {
		m.Lock(Forever)
		for !ready {
			if waitErr = cv.Wait(Forever, m); waitErr != nil {
				break
			}
		}
		order = append(order, "consumed")
		m.Unlock()
	})
	spawn(t, k, "producer", 3, func(Thread) {
		gate.Wait(Forever)
		m.Lock(Forever)
		ready = true
		cv.NotifyOne()
		order = append(order, "notified")
		m.Unlock()
		order = append(order, "produced")
	})
	boot(t, k)
	interrupt(k, func() { gate.Post() })

	if waitErr != nil {
		t.Fatalf("Wait() = %v, want nil", waitErr)
	}
	want := []string{"notified", "consumed", "produced"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestCondVarTimedWaitKeepsMutex(t *testing.T) {
	k := newKernel(t, Config{})
	m := NewMutex(k, MutexRecursive, ProtocolNone)
	cv := NewCondVar(k)
	var waitErr error
	var owned bool
	var unlocks []error

	spawn(t, k, "w", 4, func(th Thread) {
		m.Lock(Forever)
		m.Lock(Forever)
		waitErr = cv.Wait(For(3), m)
		o, ok := m.Owner()
		owned = ok && o.ID() == th.ID()
		for i := 0; i < 3; i++ {
			unlocks = append(unlocks, m.Unlock())
		}
	})
	boot(t, k)

	if _, ok := m.Owner(); ok {
		t.Fatal("mutex still owned while waiting")
	}
	advance(k, 3)
	if waitErr != ErrTimedOut {
		t.Fatalf("Wait(For(3)) = %v, want %v", waitErr, ErrTimedOut)
	}
	if !owned {
		t.Fatal("mutex not owned after Wait returned")
	}
	if want := []error{nil, nil, ErrNotOwner}; !reflect.DeepEqual(unlocks, want) {
		t.Fatalf("Unlock() = %v, want %v", unlocks, want)
	}
}

func TestCondVarNotifyAllWakesInOrder(t *testing.T) {
	k := newKernel(t, Config{})
	m := NewMutex(k, MutexNormal, ProtocolNone)
	cv := NewCondVar(k)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		spawn(t, k, name, 4, func(Thread) {
			m.Lock(Forever)
			cv.Wait(Forever, m)
			order = append(order, name)
			m.Unlock()
		})
	}
	boot(t, k)

	if len(order) != 0 {
		t.Fatalf("woken before notify: %v", order)
	}
	interrupt(k, cv.NotifyAll)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestCondVarRequiresOwnership(t *testing.T) {
	k := newKernel(t, Config{})
	m := NewMutex(k, MutexNormal, ProtocolNone)
	cv := NewCondVar(k)
	var err error
	spawn(t, k, "w", 4, func(Thread) { err = cv.Wait(Forever, m) })
	boot(t, k)

	if err != ErrNotOwner {
		t.Fatalf("Wait() without the mutex = %v, want %v", err, ErrNotOwner)
	}
}
